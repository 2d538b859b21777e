package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/salieri-auto/menunav/internal/event"
	"github.com/salieri-auto/menunav/internal/nav"
)

const (
	maxRetries  = 3
	retryBaseMs = 2000
	retryGrowth = 2
)

// Engine is the slice of the navigation engine the bot drives.
type Engine interface {
	Statistics() nav.Statistics
	Stop()
}

type Bot struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
	engine Engine
}

// NewBot creates a Telegram bot with retry logic for transient network
// failures. The underlying tgbotapi.NewBotAPI call contacts
// api.telegram.org which can occasionally fail with TCP resets;
// retrying avoids a fatal startup failure.
func NewBot(token string, chatID int64, logger *slog.Logger, engine Engine) (*Bot, error) {
	var api *tgbotapi.BotAPI
	var err error

	delay := time.Duration(retryBaseMs) * time.Millisecond
	for attempt := 1; attempt <= maxRetries; attempt++ {
		api, err = tgbotapi.NewBotAPI(token)
		if err == nil {
			break
		}
		if attempt < maxRetries {
			logger.Warn("Telegram API connection failed, retrying",
				slog.Int("attempt", attempt),
				slog.Int("maxRetries", maxRetries),
				slog.Duration("retryIn", delay),
				slog.Any("error", err),
			)
			time.Sleep(delay)
			delay *= retryGrowth
		}
	}
	if err != nil {
		return nil, fmt.Errorf("after %d attempts: %w", maxRetries, err)
	}
	return &Bot{bot: api, chatID: chatID, logger: logger, engine: engine}, nil
}

// Start consumes chat commands until ctx is cancelled. Only messages
// from the configured chat are honoured.
func (b *Bot) Start(ctx context.Context) error {
	offset, err := b.getLatestOffset()
	if err != nil {
		return err
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = 5
	updates := b.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			for range updates {
			}
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Chat == nil || update.Message.Chat.ID != b.chatID {
				continue
			}
			b.handleCommand(strings.ToLower(strings.TrimSpace(update.Message.Text)))
		}
	}
}

func (b *Bot) handleCommand(cmd string) {
	switch strings.TrimPrefix(cmd, "/") {
	case "stats", "status":
		b.send(formatStatistics(b.engine.Statistics()))
	case "stop":
		b.engine.Stop()
		b.send("Stop requested.")
	case "help":
		b.send("Commands: stats, stop, help")
	}
}

// EventHandler forwards run milestones to the chat. Per-transition
// events are skipped, they would flood the chat.
func (b *Bot) EventHandler() event.Handler {
	return func(_ context.Context, ev event.Event) error {
		switch e := ev.(type) {
		case event.RunStartedEvent:
			b.send(fmt.Sprintf("Run %s started from %s", e.RunID(), e.InitialState))
		case event.RunStuckEvent:
			b.send(fmt.Sprintf("Run %s looks stuck on %s (%d repeats)", e.RunID(), e.State, e.RepeatCount))
		case event.RunFinishedEvent:
			b.send(fmt.Sprintf("Run %s finished: %s, %d transitions, success rate %.2f",
				e.RunID(), e.Outcome, e.Transitions, e.SuccessRate))
		}
		return nil
	}
}

func (b *Bot) send(text string) {
	if _, err := b.bot.Send(tgbotapi.NewMessage(b.chatID, text)); err != nil {
		b.logger.Error("Failed to send Telegram message", slog.Any("error", err))
	}
}

func formatStatistics(stats nav.Statistics) string {
	var sb strings.Builder
	if stats.Running {
		fmt.Fprintf(&sb, "Run %s in progress, state %s\n", stats.RunID, stats.CurrentState)
	} else if stats.RunID == "" {
		sb.WriteString("No run yet\n")
	} else {
		fmt.Fprintf(&sb, "Run %s finished\n", stats.RunID)
	}
	fmt.Fprintf(&sb, "Transitions: %d (%d successful, rate %.2f)\n",
		stats.TotalTransitions, stats.SuccessfulTransitions, stats.SuccessRate)
	fmt.Fprintf(&sb, "Visited: %s", strings.Join(stats.VisitedStates, ", "))
	return sb.String()
}

func (b *Bot) getLatestOffset() (int, error) {
	upds, err := b.bot.GetUpdates(tgbotapi.NewUpdate(-1))
	if err != nil {
		return 0, err
	}
	offset := 0
	if len(upds) > 0 {
		offset = upds[0].UpdateID + 1
	}
	return offset, nil
}

// Close tears the polling session down and releases idle connections.
func (b *Bot) Close() {
	if b == nil || b.bot == nil {
		return
	}
	b.bot.StopReceivingUpdates()
	if c, ok := b.bot.Client.(*http.Client); ok && c != nil {
		if tr, ok := c.Transport.(*http.Transport); ok && tr != nil {
			tr.CloseIdleConnections()
		}
	}
}
