package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"symptom-meal-planner/internal/metrics"
	"symptom-meal-planner/internal/planner"

	"github.com/labstack/echo/v4"
)

type resultResponse struct {
	Result any `json:"result"`
}

type usageResponse struct {
	Days   int                  `json:"days"`
	Usage  []metrics.DailyUsage `json:"usage"`
	System metrics.Health       `json:"system"`
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// mealPlanHandler serves POST /meal-plan.
func (s *Server) mealPlanHandler(c echo.Context) error {
	params, err := readParams(c)
	if err != nil {
		return err
	}
	symptoms, ok := params.String("symptoms")
	if !ok {
		return missingParam("symptoms")
	}
	exceptionDays, ok := params.String("exception_days")
	if !ok {
		return missingParam("exception_days")
	}

	plan, err := s.planner.GeneratePlan(c.Request().Context(), planner.PlanRequest{
		Symptoms:      symptoms,
		ExceptionDays: exceptionDays,
	})
	if err != nil {
		return err
	}
	return writeResult(c, plan)
}

// changeMealPlanHandler serves POST /change-meal-plan. The plan is either the
// whole request body (scalars in the query string) or the "meal_plan" field
// of a JSON envelope.
func (s *Server) changeMealPlanHandler(c echo.Context) error {
	params, err := readParams(c)
	if err != nil {
		return err
	}

	planRaw := params.raw
	if envelopePlan, ok := params.body["meal_plan"]; ok {
		planRaw = envelopePlan
	} else {
		// The body is the plan itself; its keys are days, not parameters.
		params.body = nil
	}
	if len(planRaw) == 0 {
		return missingParam("meal_plan")
	}

	var plan planner.MealPlan
	if err := json.Unmarshal(planRaw, &plan); err != nil {
		return fmt.Errorf("%w: meal_plan must be a JSON object", errInvalidRequest)
	}

	day, ok := params.String("day")
	if !ok {
		return missingParam("day")
	}
	mealTime, ok := params.String("meal_time")
	if !ok {
		return missingParam("meal_time")
	}
	wholePlan, ok, err := params.Bool("whole_plan")
	if err != nil {
		return err
	}
	if !ok {
		return missingParam("whole_plan")
	}

	result, err := s.planner.SwapMeal(c.Request().Context(), planner.SwapRequest{
		Plan:      plan,
		Day:       day,
		MealTime:  mealTime,
		WholePlan: wholePlan,
	})
	if errors.Is(err, planner.ErrWrongInputs) {
		return c.JSON(http.StatusOK, resultResponse{Result: "wrong inputs"})
	}
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

// writeResult renders {"result": v} without HTML escaping so plan text the
// client sent comes back byte for byte.
func writeResult(c echo.Context, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resultResponse{Result: v}); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, buf.Bytes())
}

// usageHandler serves GET /usage?days=N.
func (s *Server) usageHandler(c echo.Context) error {
	days := 7
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 365 {
			return fmt.Errorf("%w: days must be between 1 and 365", errInvalidRequest)
		}
		days = n
	}

	usage := []metrics.DailyUsage{}
	if s.usage != nil {
		var err error
		if usage, err = s.usage.GetDailyUsage(c.Request().Context(), days); err != nil {
			return fmt.Errorf("failed to read usage: %w", err)
		}
	}

	return c.JSON(http.StatusOK, usageResponse{
		Days:   days,
		Usage:  usage,
		System: metrics.ReadHealth(s.cfg.DatabasePath, s.planner.RecipeCount()),
	})
}

// requestParams collects named inputs from the query string, a form body or
// a JSON object body, in that order of precedence.
type requestParams struct {
	query url.Values
	form  url.Values
	body  map[string]json.RawMessage
	raw   json.RawMessage
}

func readParams(c echo.Context) (*requestParams, error) {
	p := &requestParams{query: c.QueryParams()}

	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEApplicationForm) || strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		form, err := c.FormParams()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse form", errInvalidRequest)
		}
		p.form = form
		return p, nil
	}

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read body", errInvalidRequest)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return p, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: body is not valid JSON", errInvalidRequest)
	}
	p.raw = raw
	// Non-object bodies simply contribute no named values.
	_ = json.Unmarshal(raw, &p.body)
	return p, nil
}

func (p *requestParams) String(key string) (string, bool) {
	if p.query.Has(key) {
		return p.query.Get(key), true
	}
	if p.form.Has(key) {
		return p.form.Get(key), true
	}
	if v, ok := p.body[key]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s, true
		}
	}
	return "", false
}

func (p *requestParams) Bool(key string) (bool, bool, error) {
	if v, ok := p.body[key]; ok && !p.query.Has(key) && !p.form.Has(key) {
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			return b, true, nil
		}
	}
	s, ok := p.String(key)
	if !ok {
		return false, false, nil
	}
	b, err := parseBool(s)
	if err != nil {
		return false, true, fmt.Errorf("%w: %s must be a boolean", errInvalidRequest, key)
	}
	return b, true, nil
}

// parseBool accepts the spellings clients send for boolean query values.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on", "t", "y":
		return true, nil
	case "false", "0", "no", "off", "f", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func missingParam(name string) error {
	return fmt.Errorf("%w: missing required parameter %q", errInvalidRequest, name)
}
