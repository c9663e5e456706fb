package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"symptom-meal-planner/internal/app"
	"symptom-meal-planner/internal/auth"
	"symptom-meal-planner/internal/config"
	"symptom-meal-planner/internal/logging"
	"symptom-meal-planner/internal/planner"
	"symptom-meal-planner/internal/source"

	"github.com/rs/zerolog/log"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, "console")

	ctx := context.Background()

	switch os.Args[1] {
	case "recipes":
		if err := printRecipes(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("listing recipes failed")
		}
	case "plan":
		planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
		symptoms := planCmd.String("symptoms", "", "Symptoms the plan must focus on")
		exceptionDays := planCmd.String("exception-days", "none", "Days that need light meals")
		planCmd.Parse(os.Args[2:])
		if *symptoms == "" {
			log.Fatal().Msg("-symptoms is required")
		}
		if err := generatePlan(ctx, cfg, *symptoms, *exceptionDays); err != nil {
			log.Fatal().Err(err).Msg("plan generation failed")
		}
	case "metrics-cleanup":
		cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
		days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
		cleanupCmd.Parse(os.Args[2:])

		store, closeDB, err := app.OpenMetrics(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open metrics store")
		}
		defer closeDB()

		affected, err := store.Cleanup(ctx, *days)
		if err != nil {
			log.Fatal().Err(err).Msg("cleanup failed")
		}
		fmt.Printf("Successfully removed %d old metric records.\n", affected)
	case "token":
		tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
		subject := tokenCmd.String("subject", "", "Client the token is issued to")
		ttl := tokenCmd.Duration("ttl", 30*24*time.Hour, "Token lifetime")
		tokenCmd.Parse(os.Args[2:])
		if *subject == "" {
			log.Fatal().Msg("-subject is required")
		}

		token, err := auth.IssueToken(cfg.APIJWTSecret, *subject, *ttl)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to issue token")
		}
		fmt.Println(token)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// printRecipes shows the shuffled store and where the plan sample ends.
func printRecipes(ctx context.Context, cfg *config.Config) error {
	store, err := app.IngestRecipes(ctx, source.NewClient(cfg), cfg.RecipeShuffleSeed)
	if err != nil {
		return err
	}

	for i, r := range store.All() {
		if i == planner.PlanSampleSize {
			fmt.Println("---- end of plan sample ----")
		}
		fmt.Printf("%3d  %-8s %s [%s]\n", i+1, r.ID, r.Title, strings.Join(r.Symptoms, ", "))
	}
	fmt.Printf("\n%d recipes; swaps draw %d from a fresh shuffle per request.\n", store.Len(), planner.SwapSampleSize)
	return nil
}

func generatePlan(ctx context.Context, cfg *config.Config, symptoms, exceptionDays string) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Generating meal plan for: %q (light days: %s)...\n", symptoms, exceptionDays)
	plan, err := a.Planner().GeneratePlan(ctx, planner.PlanRequest{Symptoms: symptoms, ExceptionDays: exceptionDays})
	if err != nil {
		return fmt.Errorf("failed to generate plan: %w", err)
	}

	out, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printUsage() {
	fmt.Println("Usage: meal-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  recipes            Fetch the recipe catalogue and print it in shuffled order")
	fmt.Println("  plan               Generate a weekly plan (-symptoms, -exception-days)")
	fmt.Println("  metrics-cleanup    Remove old metric records (-days)")
	fmt.Println("  token              Issue an API bearer token (-subject, -ttl)")
}
