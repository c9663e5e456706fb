package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"symptom-meal-planner/internal/llm"
	"symptom-meal-planner/internal/recipe"
	"symptom-meal-planner/internal/shared"

	"github.com/rs/zerolog/log"
)

const (
	agentMealPlan = "MealPlan"
	agentMealSwap = "MealSwap"
)

// MetricsRecorder persists per-call execution metadata.
type MetricsRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// PlanRequest holds the inputs of a weekly plan.
type PlanRequest struct {
	Symptoms      string
	ExceptionDays string
}

// SwapRequest asks for one slot of an existing plan to be replaced.
type SwapRequest struct {
	Plan      MealPlan
	Day       string
	MealTime  string
	WholePlan bool
}

// Planner handles the generation of meal plans.
type Planner struct {
	store   *recipe.Store
	textGen llm.TextGenerator
	tokens  llm.TokenCounter
	metrics MetricsRecorder
}

// RecipeCount is the size of the catalogue the prompts sample from.
func (p *Planner) RecipeCount() int { return p.store.Len() }

// NewPlanner creates a new Planner instance. metrics may be nil.
func NewPlanner(store *recipe.Store, textGen llm.TextGenerator, tokens llm.TokenCounter, metrics MetricsRecorder) *Planner {
	return &Planner{
		store:   store,
		textGen: textGen,
		tokens:  tokens,
		metrics: metrics,
	}
}

// GeneratePlan builds a week plan from the head of the recipe store.
func (p *Planner) GeneratePlan(ctx context.Context, req PlanRequest) (MealPlan, error) {
	prompt, err := BuildPlanPrompt(req.Symptoms, req.ExceptionDays, p.store.Head(PlanSampleSize))
	if err != nil {
		return MealPlan{}, err
	}

	content, err := p.complete(ctx, agentMealPlan, prompt)
	if err != nil {
		return MealPlan{}, err
	}

	var plan MealPlan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return MealPlan{}, fmt.Errorf("%w: %w", ErrInvalidModelOutput, err)
	}
	if err := plan.Validate(); err != nil {
		return MealPlan{}, fmt.Errorf("%w: %w", ErrInvalidModelOutput, err)
	}
	return plan, nil
}

// SwapMeal replaces plan[day][meal_time] with two new foods drawn from a
// freshly shuffled sample. The result is either the whole updated plan or
// an object holding only the new slot.
func (p *Planner) SwapMeal(ctx context.Context, req SwapRequest) (json.RawMessage, error) {
	current, ok := req.Plan.Lookup(req.Day, req.MealTime)
	if !ok {
		return nil, ErrWrongInputs
	}
	selected, err := parseSelectedMeal(current)
	if err != nil {
		return nil, err
	}

	prompt, err := BuildSwapPrompt(selected, req.MealTime, p.store.ShuffledHead(SwapSampleSize, nil))
	if err != nil {
		return nil, err
	}

	content, err := p.complete(ctx, agentMealSwap, prompt)
	if err != nil {
		return nil, err
	}

	items, err := extractSlot([]byte(content), req.MealTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModelOutput, err)
	}

	var out any
	if req.WholePlan {
		out = req.Plan.Replace(req.Day, req.MealTime, items)
	} else {
		out = slotResult{mealTime: req.MealTime, items: items}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode swap result: %w", err)
	}
	return b, nil
}

func (p *Planner) complete(ctx context.Context, agent string, prompt Prompt) (string, error) {
	systemTokens := p.tokens.Count(prompt.System)
	log.Info().Str("agent", agent).Int("system_prompt_tokens", systemTokens).Msg("system prompt tokenized")

	start := time.Now()
	resp, err := p.textGen.GenerateContent(ctx, prompt.System, prompt.User)
	latency := time.Since(start)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	log.Info().
		Str("agent", agent).
		Str("model", resp.Usage.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("latency", latency).
		Msg("completion finished")

	if p.metrics != nil {
		meta := shared.AgentMeta{
			AgentName:          agent,
			Usage:              resp.Usage,
			Latency:            latency,
			SystemPromptTokens: systemTokens,
		}
		if err := p.metrics.RecordMeta(meta); err != nil {
			log.Warn().Err(err).Str("agent", agent).Msg("failed to record metrics")
		}
	}

	return stripCodeFence(resp.Content), nil
}

// extractSlot pulls the validated item list stored under mealTime.
func extractSlot(content []byte, mealTime string) (json.RawMessage, error) {
	var items json.RawMessage
	err := decodeObject(content, func(key string, value json.RawMessage) error {
		if key == mealTime {
			items = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		return nil, fmt.Errorf("output has no %q key", mealTime)
	}
	if _, err := ParseMealItems(items); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// slotResult encodes as {"<mealTime>": items}.
type slotResult struct {
	mealTime string
	items    json.RawMessage
}

func (s slotResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeKey(&buf, s.mealTime); err != nil {
		return nil, err
	}
	buf.Write(s.items)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// stripCodeFence removes a ```json fence some models add despite instructions.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return s
	}
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimPrefix(t, "json")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}
