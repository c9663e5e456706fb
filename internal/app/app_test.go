package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"symptom-meal-planner/internal/config"
	"symptom-meal-planner/internal/planner"
	"symptom-meal-planner/internal/server"
)

const upstreamRecipes = `[
	{"id": 1, "title": "Oat Porridge", "symptom": [{"symptom": {"title": "fatigue"}}]},
	{"id": 2, "title": "Ginger Tea", "symptom": [{"symptom": {"title": "nausea"}}, {"symptom": {"title": "fatigue"}}]},
	{"id": 3, "title": "Lentil Soup", "symptom": [{"symptom": {"title": "fatigue"}}]},
	{"id": 4, "title": "Steamed Fish", "symptom": [{"symptom": {"title": "inflammation"}}]},
	{"id": 5, "title": "Rice Congee", "symptom": [{"symptom": {"title": "bloating"}}]}
]`

type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }

type chatRequest struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// completionStub answers every chat completion with the next queued content.
type completionStub struct {
	mu       sync.Mutex
	replies  []string
	requests []chatRequest
}

func (s *completionStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.requests = append(s.requests, req)
	content := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	resp := map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 900, "completion_tokens": 300, "total_tokens": 1200},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func item(id int, title, symptom string) string {
	return fmt.Sprintf(`{"food_title":%q,"food_id":%d,"food_symptoms":[%q]}`, title, id, symptom)
}

func weekPlan() string {
	var days []string
	for _, day := range planner.Week {
		slots := []string{
			fmt.Sprintf(`"breakfast":[%s,%s]`, item(1, "Oat Porridge", "fatigue"), item(2, "Ginger Tea", "fatigue")),
			fmt.Sprintf(`"lunch":[%s,%s]`, item(3, "Lentil Soup", "fatigue"), item(2, "Ginger Tea", "fatigue")),
			fmt.Sprintf(`"dinner":[%s,%s]`, item(3, "Lentil Soup", "fatigue"), item(1, "Oat Porridge", "fatigue")),
		}
		days = append(days, fmt.Sprintf("%q:{%s}", day, strings.Join(slots, ",")))
	}
	return "{" + strings.Join(days, ",") + "}"
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("rpp") != "300" {
			t.Errorf("Expected rpp=300, got %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, upstreamRecipes)
	}))
	defer upstream.Close()

	swapReply := fmt.Sprintf(`{"lunch":[%s,%s]}`, item(4, "Steamed Fish", "fatigue"), item(5, "Rice Congee", "fatigue"))
	stub := &completionStub{replies: []string{weekPlan(), swapReply}}
	llmServer := httptest.NewServer(stub)
	defer llmServer.Close()

	cfg := &config.Config{
		LLMProvider:       config.ProviderOpenAI,
		LLMModel:          "gpt-3.5-turbo-0613",
		OpenAIAPIKey:      "sk-test",
		OpenAIBaseURL:     llmServer.URL,
		CompletionTimeout: 5 * time.Second,
		RecipeSourceURL:   upstream.URL,
		RecipePageSize:    300,
		RecipeShuffleSeed: 50,
		Port:              "0",
		DatabasePath:      filepath.Join(t.TempDir(), "data", "meal-planner.db"),
		CORSAllowOrigins:  []string{"*"},
	}

	a, err := New(ctx, cfg, WithTokenCounter(fixedCounter(777)))
	if err != nil {
		t.Fatalf("Failed to start app: %v", err)
	}
	defer a.Close()

	if a.Recipes().Len() != 5 {
		t.Fatalf("Expected 5 recipes, got %d", a.Recipes().Len())
	}

	srv := server.New(cfg, a.Planner(), a.Metrics())

	// 1. Weekly plan
	req := httptest.NewRequest(http.MethodPost, "/meal-plan?symptoms=fatigue&exception_days=monday", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"result":`+weekPlan()+`}` {
		t.Errorf("Unexpected plan response %s", got)
	}

	if len(stub.requests) != 1 {
		t.Fatalf("Expected 1 completion request, got %d", len(stub.requests))
	}
	planCall := stub.requests[0]
	if planCall.Temperature == nil || *planCall.Temperature != 0 || planCall.Model != "gpt-3.5-turbo-0613" {
		t.Errorf("Unexpected completion parameters %+v", planCall)
	}
	if len(planCall.Messages) != 2 || planCall.Messages[1].Content != "fatigue" {
		t.Fatalf("Unexpected messages %+v", planCall.Messages)
	}
	for _, title := range []string{"Oat Porridge", "Ginger Tea", "Lentil Soup", "Steamed Fish", "Rice Congee"} {
		if !strings.Contains(planCall.Messages[0].Content, title) {
			t.Errorf("Expected %q in the system prompt", title)
		}
	}
	if !strings.Contains(planCall.Messages[0].Content, "only for monday") {
		t.Error("Expected exception days in the system prompt")
	}

	// 2. Swap monday lunch, keeping the rest of the week
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)

	req = httptest.NewRequest(http.MethodPost, "/change-meal-plan?day=monday&meal_time=lunch&whole_plan=true", strings.NewReader(string(envelope.Result)))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	oldMondayLunch := fmt.Sprintf(`"monday":{"breakfast":[%s,%s],"lunch":[%s,%s]`,
		item(1, "Oat Porridge", "fatigue"), item(2, "Ginger Tea", "fatigue"),
		item(3, "Lentil Soup", "fatigue"), item(2, "Ginger Tea", "fatigue"))
	newMondayLunch := fmt.Sprintf(`"monday":{"breakfast":[%s,%s],"lunch":[%s,%s]`,
		item(1, "Oat Porridge", "fatigue"), item(2, "Ginger Tea", "fatigue"),
		item(4, "Steamed Fish", "fatigue"), item(5, "Rice Congee", "fatigue"))
	want := `{"result":` + strings.Replace(weekPlan(), oldMondayLunch, newMondayLunch, 1) + `}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("Unexpected swap response\nwant %s\ngot  %s", want, got)
	}

	swapCall := stub.requests[1]
	wantUser := `Lentil Soup for lunch with symptoms: ["fatigue"] and Ginger Tea for lunch with symptoms: ["fatigue"]`
	if swapCall.Messages[1].Content != wantUser {
		t.Errorf("Unexpected swap user prompt %q", swapCall.Messages[1].Content)
	}

	// 3. Both calls were recorded
	usage, err := a.Metrics().GetDailyUsage(ctx, 1)
	if err != nil {
		t.Fatalf("GetDailyUsage failed: %v", err)
	}
	if len(usage) != 1 || usage[0].TotalExecution != 2 || usage[0].TotalPrompt != 1800 {
		t.Errorf("Unexpected usage %+v", usage)
	}
}

func TestNew_SourceFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	cfg := &config.Config{
		LLMProvider:     config.ProviderOpenAI,
		OpenAIAPIKey:    "sk-test",
		RecipeSourceURL: upstream.URL,
		RecipePageSize:  300,
		DatabasePath:    filepath.Join(t.TempDir(), "meal-planner.db"),
	}
	if _, err := New(context.Background(), cfg, WithTokenCounter(fixedCounter(0))); err == nil {
		t.Fatal("Expected startup to fail when the recipe source is down")
	}
}
