package planner

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"

	"symptom-meal-planner/internal/recipe"
)

const (
	// PlanSampleSize is how many store recipes the plan prompt embeds.
	PlanSampleSize = 44
	// SwapSampleSize is how many reshuffled recipes the swap prompt embeds.
	SwapSampleSize = 45
)

//go:embed plan_prompt.md
var planPrompt string

//go:embed swap_prompt.md
var swapPrompt string

var (
	planTmpl = template.Must(template.New("plan").Parse(planPrompt))
	swapTmpl = template.Must(template.New("swap").Parse(swapPrompt))
)

// Prompt is a system/user message pair for one completion.
type Prompt struct {
	System string
	User   string
}

type planPromptData struct {
	ExceptionDays string
	Recipes       string
}

type swapPromptData struct {
	MealTime string
	Recipes  string
}

// BuildPlanPrompt renders the weekly plan prompt. Only the first
// PlanSampleSize recipes of sample are used; symptoms become the user message.
func BuildPlanPrompt(symptoms, exceptionDays string, sample []recipe.Recipe) (Prompt, error) {
	recipes, err := renderRecipes(sample, PlanSampleSize)
	if err != nil {
		return Prompt{}, err
	}

	var buf bytes.Buffer
	if err := planTmpl.Execute(&buf, planPromptData{ExceptionDays: exceptionDays, Recipes: recipes}); err != nil {
		return Prompt{}, fmt.Errorf("failed to render plan prompt: %w", err)
	}
	return Prompt{System: buf.String(), User: symptoms}, nil
}

// BuildSwapPrompt renders the single-slot replacement prompt.
func BuildSwapPrompt(selected [2]MealItem, mealTime string, sample []recipe.Recipe) (Prompt, error) {
	recipes, err := renderRecipes(sample, SwapSampleSize)
	if err != nil {
		return Prompt{}, err
	}

	var buf bytes.Buffer
	if err := swapTmpl.Execute(&buf, swapPromptData{MealTime: mealTime, Recipes: recipes}); err != nil {
		return Prompt{}, fmt.Errorf("failed to render swap prompt: %w", err)
	}

	user := fmt.Sprintf("%s for %s with symptoms: %s and %s for %s with symptoms: %s",
		selected[0].FoodTitle, mealTime, symptomList(selected[0].FoodSymptoms),
		selected[1].FoodTitle, mealTime, symptomList(selected[1].FoodSymptoms))

	return Prompt{System: buf.String(), User: user}, nil
}

func renderRecipes(sample []recipe.Recipe, limit int) (string, error) {
	if len(sample) > limit {
		sample = sample[:limit]
	}
	if sample == nil {
		sample = []recipe.Recipe{}
	}
	s, err := encodeJSON(sample)
	if err != nil {
		return "", fmt.Errorf("failed to encode recipe sample: %w", err)
	}
	return s, nil
}

func symptomList(symptoms []string) string {
	if symptoms == nil {
		symptoms = []string{}
	}
	s, _ := encodeJSON(symptoms)
	return s
}

// encodeJSON marshals v without HTML escaping so titles reach the model verbatim.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
