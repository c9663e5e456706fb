/*
Package server implements the HTTP transport for the meal planner: the plan
and swap endpoints plus health and usage reporting.
*/
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"symptom-meal-planner/internal/config"
	"symptom-meal-planner/internal/metrics"
	"symptom-meal-planner/internal/planner"

	"github.com/labstack/echo/v4"
)

// MealPlanner is the planning backend the handlers call into.
type MealPlanner interface {
	GeneratePlan(ctx context.Context, req planner.PlanRequest) (planner.MealPlan, error)
	SwapMeal(ctx context.Context, req planner.SwapRequest) (json.RawMessage, error)
	RecipeCount() int
}

// UsageReader reports token usage per day.
type UsageReader interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	cfg     *config.Config
	planner MealPlanner

	// usage may be nil when metrics are disabled.
	usage UsageReader

	*echo.Echo
}

// New builds the echo instance with middleware and routes registered.
func New(cfg *config.Config, mealPlanner MealPlanner, usage UsageReader) *Server {
	s := &Server{
		cfg:     cfg,
		planner: mealPlanner,
		usage:   usage,
		Echo:    echo.New(),
	}
	s.HideBanner = true
	s.HidePort = true
	s.HTTPErrorHandler = httpErrorHandler
	s.registerRoutes()
	return s
}

// HTTPServer wraps the router in a net/http server. The write timeout leaves
// room for a full completion call.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", s.cfg.Port),
		Handler:      s,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.cfg.CompletionTimeout + 30*time.Second,
	}
}
