package server

import (
	"net/http"

	"symptom-meal-planner/internal/auth"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func (s *Server) registerRoutes() {
	s.Use(middleware.RequestID())
	s.Use(middleware.Recover())
	s.Use(middleware.BodyLimit("2M"))
	s.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.cfg.CORSAllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		MaxAge:       300,
	}))
	s.Use(requestLogger())

	s.GET("/health", s.healthHandler)

	var protected []echo.MiddlewareFunc
	if s.cfg.APIJWTSecret != "" {
		protected = append(protected, auth.Middleware(s.cfg.APIJWTSecret))
	}
	s.POST("/meal-plan", s.mealPlanHandler, protected...)
	s.POST("/change-meal-plan", s.changeMealPlanHandler, protected...)
	s.GET("/usage", s.usageHandler, protected...)
}

// requestLogger writes one zerolog line per request.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			var event *zerolog.Event
			switch {
			case v.Status >= http.StatusInternalServerError:
				event = log.Error().Err(v.Error)
			case v.Error != nil:
				event = log.Warn().Err(v.Error)
			default:
				event = log.Info()
			}
			event.
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
