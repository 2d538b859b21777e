package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	slogger "github.com/salieri-auto/menunav/cmd/menunav/log"
	"github.com/salieri-auto/menunav/internal/config"
	"github.com/salieri-auto/menunav/internal/event"
	"github.com/salieri-auto/menunav/internal/game"
	"github.com/salieri-auto/menunav/internal/nav"
	"github.com/salieri-auto/menunav/internal/remote/discord"
	ngrokremote "github.com/salieri-auto/menunav/internal/remote/ngrok"
	"github.com/salieri-auto/menunav/internal/remote/telegram"
	"github.com/salieri-auto/menunav/internal/server"
	"github.com/salieri-auto/menunav/internal/telemetry"
	"github.com/salieri-auto/menunav/internal/utils"
	"github.com/salieri-auto/menunav/internal/vision"
)

var (
	initialState string
	defaultsDir  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Navigate the game menus into a match",
	RunE:  runBot,
}

func init() {
	runCmd.Flags().StringVar(&initialState, "state", "", "state to start from (defaults to the configured initial state)")
	runCmd.Flags().StringVar(&defaultsDir, "defaults", "defaults", "directory seeding the template images on first start")
}

// wrapWithRecover wraps a function with panic recovery logic.
func wrapWithRecover(logger *slog.Logger, f func() error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(fmt.Sprintf("panic recovered: %v\nStacktrace: %s", r, debug.Stack()))
				slogger.FlushLog()
			}
		}()
		return f()
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		utils.ShowDialog("Error loading configuration", err.Error())
		return err
	}
	if err := cfg.Validate(); err != nil {
		utils.ShowDialog("Invalid configuration", err.Error())
		return err
	}
	if err := cfg.Bootstrap(defaultsDir); err != nil {
		return fmt.Errorf("preparing directories: %w", err)
	}

	logger, err := slogger.NewLogger(cfg.Debug.Log, cfg.Paths.LogsDir, "")
	if err != nil {
		return fmt.Errorf("starting logger: %w", err)
	}
	defer slogger.FlushAndClose()

	// Seal any plain-text notifier tokens and rewrite the config so
	// they never stay on disk unprotected.
	if changed, err := cfg.SealSecrets(); err != nil {
		logger.Warn("Could not seal notifier tokens", slog.Any("error", err))
	} else if changed {
		if err := cfg.Save(configPath); err != nil {
			logger.Warn("Could not persist sealed tokens", slog.Any("error", err))
		} else {
			logger.Info("Sealed notifier tokens in config file")
		}
	}

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("fatal error: %v\nStacktrace: %s", r, debug.Stack())
			logger.Error(msg)
			slogger.FlushAndClose()
			utils.ShowDialog("menunav error", msg)
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	window, err := game.FindWindow(cfg.Window.Title)
	if err != nil {
		utils.ShowDialog("Game window not found",
			fmt.Sprintf("Could not find a window titled %q. Is the game running?", cfg.Window.Title))
		return err
	}
	window.Focus()
	logger.Info("Attached to game window", slog.String("title", cfg.Window.Title))

	templates := vision.NewTemplateStore(cfg.Paths.ImagesDir)
	prober := vision.NewProber(templates, window, logger)
	hid := game.NewHID(window, config.Seconds(cfg.Vision.ClickDuration))

	clicker := nav.NewClicker(logger, prober, hid, nav.ClickOptions{
		Retries:        cfg.Vision.Retries,
		RetryDelay:     config.Seconds(cfg.Vision.DelayBetweenRetries),
		PostClickDelay: config.Seconds(cfg.Vision.PostClickDelay),
		FallbackKey:    cfg.Navigation.FallbackKey,
		Probe: vision.ProbeOptions{
			Timeout:      config.Seconds(cfg.Vision.Timeout),
			PollInterval: config.Seconds(cfg.Vision.CheckInterval),
			Threshold:    cfg.Vision.Threshold,
		},
	})
	recovery := nav.NewUndefinedRecovery(logger, prober, hid,
		nav.DefaultSignatures(), cfg.Navigation.FallbackKey, cfg.Vision.Threshold)

	listener := event.NewListener(logger)
	eng := nav.NewEngine(logger, hid, listener, nav.Options{
		InitialState:    cfg.Navigation.InitialState,
		MaxStopCount:    cfg.Navigation.MaxStopCount,
		BreakCount:      cfg.Navigation.BreakCount,
		FallbackKey:     cfg.Navigation.FallbackKey,
		TransitionDelay: config.Seconds(cfg.Navigation.StateTransitionDelay),
		MaxIterations:   cfg.Navigation.MaxIterations,
		NudgePause:      2 * time.Second,
	})
	for _, s := range nav.DefaultStates(logger, clicker, recovery) {
		eng.Register(s)
	}

	if err := preflight(eng, templates); err != nil {
		utils.ShowDialog("Missing template images", err.Error())
		return err
	}

	registry := prometheus.NewRegistry()
	listener.Register(telemetry.NewRecorder(registry).Handle)

	g.Go(wrapWithRecover(logger, func() error {
		return listener.Listen(ctx)
	}))

	// Without a dashboard there is nothing to keep the process alive
	// once the run is over.
	var onCompleted func()
	if !cfg.Server.Enabled {
		onCompleted = cancel
	}

	startRun := func() error {
		if eng.Statistics().Running {
			return nav.ErrAlreadyRunning
		}
		g.Go(wrapWithRecover(logger, func() error {
			return superviseRun(ctx, logger, eng, initialState, onCompleted)
		}))
		return nil
	}

	if cfg.Server.Enabled {
		srv, err := server.New(logger, eng, window, startRun)
		if err != nil {
			return err
		}
		listener.Register(srv.EventHandler())
		g.Go(wrapWithRecover(logger, func() error {
			return srv.Listen(ctx, cfg.Server.Port, registry)
		}))

		if cfg.Ngrok.Enabled {
			if cfg.Ngrok.Authtoken == "" && os.Getenv("NGROK_AUTHTOKEN") == "" {
				logger.Warn("ngrok enabled but no authtoken set, skipping tunnel start")
			} else if tunnel, err := ngrokremote.Start(ctx, cfg.Ngrok, cfg.Server.Port); err != nil {
				logger.Error("ngrok tunnel failed to start", slog.Any("error", err))
			} else {
				logger.Info("ngrok tunnel established", slog.String("url", tunnel.URL()))
				defer tunnel.Close()
			}
		}
	}

	if cfg.Discord.Enabled {
		token, err := config.OpenToken(cfg.Discord.Token)
		if err != nil {
			return fmt.Errorf("reading discord token: %w", err)
		}
		dcCfg := cfg.Discord
		dcCfg.Token = token
		bot, err := discord.NewBot(dcCfg, logger, eng, window)
		if err != nil {
			logger.Error("Discord could not be initialized", slog.Any("error", err))
			return err
		}
		listener.Register(bot.EventHandler())
		g.Go(wrapWithRecover(logger, func() error {
			return bot.Start(ctx)
		}))
	}

	if cfg.Telegram.Enabled {
		token, err := config.OpenToken(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("reading telegram token: %w", err)
		}
		bot, err := telegram.NewBot(token, cfg.Telegram.ChatID, logger, eng)
		if err != nil {
			logger.Error("Telegram could not be initialized", slog.Any("error", err))
			return err
		}
		defer bot.Close()
		listener.Register(bot.EventHandler())
		g.Go(wrapWithRecover(logger, func() error {
			return bot.Start(ctx)
		}))
	}

	// The run the command was launched for. Further runs can be
	// started from the dashboard while it is up.
	if err := startRun(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		eng.Stop()
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// superviseRun drives one navigation run inside the errgroup. Two
// start requests can pass the Running pre-check before either reaches
// the engine; the loser's ErrAlreadyRunning must not tear the group
// down, the run in flight keeps going.
func superviseRun(ctx context.Context, logger *slog.Logger, eng *nav.Engine, initial string, onCompleted func()) error {
	report, err := eng.Run(ctx, initial)
	if errors.Is(err, nav.ErrAlreadyRunning) {
		logger.Warn("Start request ignored, a run is already in progress")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("Run report",
		slog.String("runId", report.RunID),
		slog.String("outcome", string(report.Outcome)),
		slog.Int("iterations", report.Iterations),
		slog.Duration("duration", report.Duration),
	)
	if onCompleted != nil {
		onCompleted()
	}
	return nil
}

// preflight verifies that every template the registered states probe
// for is present and decodable, before any clicking starts.
func preflight(eng *nav.Engine, templates *vision.TemplateStore) error {
	var missing []string
	for _, id := range eng.StateIDs() {
		s, ok := eng.State(id)
		if !ok {
			continue
		}
		for _, tplID := range s.ExpectedTemplates() {
			if _, err := templates.Load(tplID); err != nil {
				missing = append(missing, fmt.Sprintf("%s (state %s): %v", tplID, id, err))
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("template images unavailable:\n  %s", strings.Join(missing, "\n  "))
	}
	return nil
}
