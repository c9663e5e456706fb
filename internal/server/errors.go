package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"symptom-meal-planner/internal/planner"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

var errInvalidRequest = errors.New("invalid request")

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// httpErrorHandler renders every handler error as an ErrorResponse.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Str("code", code).Msg("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to write error response")
	}
}

func classify(err error) (int, string, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, httpCode(he.Code), fmt.Sprint(he.Message)
	case errors.Is(err, errInvalidRequest):
		return http.StatusUnprocessableEntity, "invalid_request", strings.TrimPrefix(err.Error(), errInvalidRequest.Error()+": ")
	case errors.Is(err, planner.ErrMalformedMeal):
		return http.StatusUnprocessableEntity, "malformed_meal", err.Error()
	case errors.Is(err, planner.ErrCompletion):
		if errors.Is(err, context.Canceled) {
			return 499, "client_closed_request", "request canceled"
		}
		return http.StatusBadGateway, "completion_failed", "the completion service failed"
	case errors.Is(err, planner.ErrInvalidModelOutput):
		return http.StatusBadGateway, "invalid_model_output", "the model returned an unusable meal plan"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}
