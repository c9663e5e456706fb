package app

import (
	"context"
	"errors"
	"fmt"

	"symptom-meal-planner/internal/config"
	"symptom-meal-planner/internal/database"
	"symptom-meal-planner/internal/llm"
	"symptom-meal-planner/internal/metrics"
	"symptom-meal-planner/internal/planner"
	"symptom-meal-planner/internal/recipe"
	"symptom-meal-planner/internal/source"
)

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	db           *database.DB
	metricsStore *metrics.Store
	textGen      llm.TextGenerator
	recipes      *recipe.Store
	mealPlanner  *planner.Planner
}

// Option overrides a dependency New would otherwise build from config.
type Option func(*options)

type options struct {
	textGen llm.TextGenerator
	tokens  llm.TokenCounter
	source  source.Client
}

func WithTextGenerator(g llm.TextGenerator) Option {
	return func(o *options) { o.textGen = g }
}

func WithTokenCounter(c llm.TokenCounter) Option {
	return func(o *options) { o.tokens = c }
}

func WithSourceClient(c source.Client) Option {
	return func(o *options) { o.source = c }
}

// New ingests the recipe store, opens the metrics database and builds the
// planner. Any failure here is fatal for the caller.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil {
		o.source = source.NewClient(cfg)
	}

	recipes, err := IngestRecipes(ctx, o.source, cfg.RecipeShuffleSeed)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if o.textGen == nil {
		if o.textGen, err = llm.NewTextGenerator(ctx, cfg); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create completion client: %w", err)
		}
	}
	if o.tokens == nil {
		o.tokens = llm.NewTokenCounter(cfg.LLMModel)
	}

	metricsStore := metrics.NewStore(db.SQL)
	return &App{
		cfg:          cfg,
		db:           db,
		metricsStore: metricsStore,
		textGen:      o.textGen,
		recipes:      recipes,
		mealPlanner:  planner.NewPlanner(recipes, o.textGen, o.tokens, metricsStore),
	}, nil
}

func (a *App) Planner() *planner.Planner { return a.mealPlanner }

func (a *App) Metrics() *metrics.Store { return a.metricsStore }

func (a *App) Recipes() *recipe.Store { return a.recipes }

// Close releases the completion client and the database.
func (a *App) Close() error {
	var errs []error
	if c, ok := a.textGen.(llm.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}

// OpenMetrics opens only the metrics database, for maintenance commands that
// must not hit the recipe source.
func OpenMetrics(cfg *config.Config) (*metrics.Store, func() error, error) {
	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return metrics.NewStore(db.SQL), db.Close, nil
}
