package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"symptom-meal-planner/internal/config"
	"symptom-meal-planner/internal/metrics"
	"symptom-meal-planner/internal/planner"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

const helpText = "Send your symptoms and, after a `|`, the days that need light meals.\n\nExample: `fatigue, bloating | monday and thursday`"

// sender is the slice of the Telegram API the bot uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// PlanGenerator produces a weekly plan.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req planner.PlanRequest) (planner.MealPlan, error)
	RecipeCount() int
}

// UsageReader reports token usage per day.
type UsageReader interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Bot wraps the Telegram API and the meal planner.
type Bot struct {
	api     sender
	planner PlanGenerator
	usage   UsageReader
	cfg     *config.Config
	timeout time.Duration

	// inflight tracks messages still being answered.
	inflight sync.WaitGroup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, planner PlanGenerator, usage UsageReader) (*Bot, error) {
	if cfg.TelegramBotToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info().Str("account", api.Self.UserName).Msg("telegram bot authorized")

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info().Str("description", resp.Description).Msg("webhook set")

	return newBot(api, cfg, planner, usage), nil
}

func newBot(api sender, cfg *config.Config, planner PlanGenerator, usage UsageReader) *Bot {
	return &Bot{
		api:     api,
		planner: planner,
		usage:   usage,
		cfg:     cfg,
		timeout: cfg.CompletionTimeout + 10*time.Second,
	}
}

// Handler serves the webhook and a health check.
func (b *Bot) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", b.handleWebhook)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Warn().Err(err).Msg("error parsing update")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.isAllowed(msg.From.ID) {
		log.Warn().Int64("user_id", msg.From.ID).Str("username", msg.From.UserName).Msg("unauthorized access attempt")
		return
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.processMessage(msg)
	}()
}

// Wait blocks until every accepted message has been answered or ctx ends.
// Call it after the HTTP server stops and before closing the planner's
// dependencies.
func (b *Bot) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) isAllowed(userID int64) bool {
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, userID) || (b.cfg.AdminTelegramID != 0 && userID == b.cfg.AdminTelegramID)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	switch strings.TrimSpace(msg.Text) {
	case "/metrics":
		b.handleMetricsRequest(msg)
	case "/start", "/help", "":
		b.reply(msg.Chat.ID, helpText)
	default:
		b.handlePlannerRequest(msg)
	}
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	b.handleMetricsCommand(msg.Chat.ID)
}

func (b *Bot) handlePlannerRequest(msg *tgbotapi.Message) {
	sentMsg, err := b.api.Send(markdown(tgbotapi.NewMessage(msg.Chat.ID, "🧑‍🍳 *Thinking...*\n(Matching recipes to your symptoms)")))
	if err != nil {
		log.Error().Err(err).Msg("failed to send initial reply")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	req := parseRequest(msg.Text)
	log.Info().Str("symptoms", req.Symptoms).Str("exception_days", req.ExceptionDays).Msg("generating plan from chat")

	plan, err := b.planner.GeneratePlan(ctx, req)
	var finalText string
	if err != nil {
		log.Error().Err(err).Msg("error generating plan")
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		finalText = fmt.Sprintf("❌ *Error generating plan:*\n```\n%v\n```", safeErr)
		if errors.Is(err, planner.ErrCompletion) {
			b.sendAdminAlert(fmt.Sprintf("⚠️ *Completion failure*\n```\n%v\n```", safeErr))
		}
	} else {
		finalText = formatPlanMarkdown(plan)
	}

	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, finalText)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		log.Error().Err(err).Msg("failed to send plan")
	}
}

// parseRequest splits "symptoms | exception days". Without a separator the
// whole text is treated as symptoms.
func parseRequest(text string) planner.PlanRequest {
	symptoms, days, found := strings.Cut(text, "|")
	req := planner.PlanRequest{Symptoms: strings.TrimSpace(symptoms), ExceptionDays: "none"}
	if found && strings.TrimSpace(days) != "" {
		req.ExceptionDays = strings.TrimSpace(days)
	}
	return req
}

func formatPlanMarkdown(plan planner.MealPlan) string {
	var sb strings.Builder
	sb.WriteString("📅 *Weekly Meal Plan*\n")

	for _, day := range plan.Days {
		fmt.Fprintf(&sb, "\n*%s*\n", escapeMarkdown(capitalize(day.Name)))
		for _, meal := range day.Meals {
			var items []struct {
				FoodTitle string `json:"food_title"`
			}
			_ = json.Unmarshal(meal.Items, &items)

			titles := make([]string, 0, len(items))
			for _, it := range items {
				titles = append(titles, escapeMarkdown(it.FoodTitle))
			}
			fmt.Fprintf(&sb, "• _%s_: %s\n", escapeMarkdown(meal.Time), strings.Join(titles, ", "))
		}
	}
	return sb.String()
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	usage, err := b.usage.GetDailyUsage(ctx, 7)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch metrics")
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.ReadHealth(b.cfg.DatabasePath, b.planner.RecipeCount())

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		fmt.Fprintf(&sb, "• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution)
	}

	sb.WriteString("\n🧠 *System Health*\n")
	fmt.Fprintf(&sb, "• RAM: %dMB (Heap) / %dMB (Sys)\n", health.HeapMB, health.SysMB)
	fmt.Fprintf(&sb, "• Goroutines: %d\n", health.Goroutines)
	fmt.Fprintf(&sb, "• Recipes: %d\n", health.Recipes)
	fmt.Fprintf(&sb, "• Metrics DB: %s\n", health.DatabaseSize)
	fmt.Fprintf(&sb, "• Uptime: %s\n", health.Uptime)

	b.reply(chatID, sb.String())
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.reply(b.cfg.AdminTelegramID, text)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(markdown(tgbotapi.NewMessage(chatID, text))); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

func markdown(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
