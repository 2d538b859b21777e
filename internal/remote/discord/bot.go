// Package discord reports run progress to a Discord channel and takes
// basic commands back. Two transports: a full bot session, or a plain
// webhook URL when no bot token is available.
package discord

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/salieri-auto/menunav/internal/config"
	"github.com/salieri-auto/menunav/internal/event"
	"github.com/salieri-auto/menunav/internal/nav"
	"github.com/salieri-auto/menunav/internal/vision"
)

// Engine is the slice of the navigation engine the bot drives.
type Engine interface {
	Statistics() nav.Statistics
	Stop()
}

type Bot struct {
	logger    *slog.Logger
	engine    Engine
	capturer  vision.Capturer
	channelID string
	admins    map[string]struct{}

	session *discordgo.Session
	webhook *webhookClient
}

// NewBot builds the notifier in webhook or session mode depending on
// the config. capturer may be nil, stuck notifications then go out
// without a screenshot.
func NewBot(cfg config.Discord, logger *slog.Logger, engine Engine, capturer vision.Capturer) (*Bot, error) {
	b := &Bot{
		logger:    logger,
		engine:    engine,
		capturer:  capturer,
		channelID: cfg.ChannelID,
		admins:    make(map[string]struct{}, len(cfg.BotAdmins)),
	}
	for _, id := range cfg.BotAdmins {
		b.admins[id] = struct{}{}
	}

	if cfg.UseWebhook {
		b.webhook = newWebhookClient(cfg.WebhookURL)
		return b, nil
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages
	b.session = session
	return b, nil
}

// Start opens the session (when in bot mode) and blocks until ctx is
// cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.session != nil {
		b.session.AddHandler(b.onMessageCreated)
		if err := b.session.Open(); err != nil {
			return fmt.Errorf("opening discord session: %w", err)
		}
		<-ctx.Done()
		return b.session.Close()
	}
	<-ctx.Done()
	return nil
}

func (b *Bot) onMessageCreated(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID || m.ChannelID != b.channelID {
		return
	}
	if _, ok := b.admins[m.Author.ID]; !ok {
		return
	}

	switch strings.ToLower(strings.TrimSpace(m.Content)) {
	case "stats", "status":
		stats := b.engine.Statistics()
		b.send(context.Background(), fmt.Sprintf(
			"Run %s: %d transitions, success rate %.2f, state %s",
			stats.RunID, stats.TotalTransitions, stats.SuccessRate, stats.CurrentState,
		), "", nil)
	case "stop":
		b.engine.Stop()
		b.send(context.Background(), "Stop requested.", "", nil)
	}
}

// EventHandler forwards run milestones to the channel, with a
// screenshot attached when the run looks stuck.
func (b *Bot) EventHandler() event.Handler {
	return func(ctx context.Context, ev event.Event) error {
		switch e := ev.(type) {
		case event.RunStartedEvent:
			b.send(ctx, fmt.Sprintf("Run %s started from %s", e.RunID(), e.InitialState), "", nil)
		case event.RunStuckEvent:
			name, data := b.screenshot()
			b.send(ctx, fmt.Sprintf("Run %s looks stuck on %s (%d repeats)",
				e.RunID(), e.State, e.RepeatCount), name, data)
		case event.RunFinishedEvent:
			b.send(ctx, fmt.Sprintf("Run %s finished: %s, %d transitions, success rate %.2f",
				e.RunID(), e.Outcome, e.Transitions, e.SuccessRate), "", nil)
		}
		return nil
	}
}

func (b *Bot) screenshot() (string, []byte) {
	if b.capturer == nil {
		return "", nil
	}
	frame, err := b.capturer.CaptureFrame()
	if err != nil {
		b.logger.Warn("Screenshot for notification failed", slog.Any("error", err))
		return "", nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return "", nil
	}
	return "stuck.png", buf.Bytes()
}

func (b *Bot) send(ctx context.Context, content, fileName string, fileData []byte) {
	var err error
	switch {
	case b.webhook != nil:
		err = b.webhook.Send(ctx, content, fileName, fileData)
	case len(fileData) > 0:
		_, err = b.session.ChannelMessageSendComplex(b.channelID, &discordgo.MessageSend{
			Content: content,
			Files: []*discordgo.File{{
				Name:        fileName,
				ContentType: "image/png",
				Reader:      bytes.NewReader(fileData),
			}},
		})
	default:
		_, err = b.session.ChannelMessageSend(b.channelID, content)
	}
	if err != nil {
		b.logger.Error("Failed to send Discord message", slog.Any("error", err))
	}
}
