package app

import (
	"context"
	"errors"
	"fmt"

	"symptom-meal-planner/internal/recipe"
	"symptom-meal-planner/internal/source"

	"github.com/rs/zerolog/log"
)

// IngestRecipes fetches the recipe catalogue once and freezes it into a
// shuffled store.
func IngestRecipes(ctx context.Context, client source.Client, seed uint64) (*recipe.Store, error) {
	records, err := client.FetchRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recipes: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("recipe source returned no recipes")
	}

	recipes := make([]recipe.Recipe, 0, len(records))
	for _, r := range records {
		recipes = append(recipes, r.Recipe())
	}

	store := recipe.NewStore(recipes, seed)
	log.Info().Int("recipes", store.Len()).Uint64("seed", seed).Msg("recipe store ready")
	return store, nil
}
