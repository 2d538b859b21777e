package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"image/png"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/salieri-auto/menunav/internal/event"
	"github.com/salieri-auto/menunav/internal/nav"
	"github.com/salieri-auto/menunav/internal/vision"
)

//go:embed all:templates
var templatesFS embed.FS

// Controller is the slice of the engine the dashboard needs.
type Controller interface {
	Statistics() nav.Statistics
	StateIDs() []string
	Stop()
}

// HttpServer serves the dashboard: a status page, a JSON status feed,
// a websocket event stream, prometheus metrics and a live screenshot.
type HttpServer struct {
	logger   *slog.Logger
	engine   Controller
	capturer vision.Capturer
	wsServer *WebSocketServer
	start    func() error

	templates *template.Template
	server    *http.Server
}

// New builds the dashboard server. start is invoked by POST /start to
// launch a new run; capturer may be nil when screenshots are
// unavailable.
func New(logger *slog.Logger, engine Controller, capturer vision.Capturer, start func() error) (*HttpServer, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.gohtml")
	if err != nil {
		return nil, fmt.Errorf("parsing dashboard templates: %w", err)
	}

	return &HttpServer{
		logger:    logger,
		engine:    engine,
		capturer:  capturer,
		wsServer:  NewWebSocketServer(logger),
		start:     start,
		templates: templates,
	}, nil
}

// EventHandler returns a handler that forwards every run event to the
// connected websocket clients. Register it on the event listener.
func (s *HttpServer) EventHandler() event.Handler {
	return func(_ context.Context, ev event.Event) error {
		payload := map[string]any{
			"type":    fmt.Sprintf("%T", ev),
			"runId":   ev.RunID(),
			"message": ev.Message(),
			"time":    ev.OccurredAt().Format(time.RFC3339),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		s.wsServer.Broadcast(data)
		return nil
	}
}

// Listen serves until ctx is cancelled, then shuts down gracefully.
func (s *HttpServer) Listen(ctx context.Context, port int, registry *prometheus.Registry) error {
	go s.wsServer.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.getRoot)
	mux.HandleFunc("/status", s.getStatus)
	mux.HandleFunc("/states", s.getStates)
	mux.HandleFunc("/screenshot", s.getScreenshot)
	mux.HandleFunc("/start", s.postStart)
	mux.HandleFunc("/stop", s.postStop)
	mux.HandleFunc("/ws", s.wsServer.HandleWebSocket)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	s.logger.Info("Dashboard listening", slog.Int("port", port))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *HttpServer) getRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := s.templates.ExecuteTemplate(w, "index.gohtml", s.engine.Statistics()); err != nil {
		s.logger.Error("Failed to render dashboard", slog.Any("error", err))
	}
}

func (s *HttpServer) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.engine.Statistics())
}

func (s *HttpServer) getStates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"states": s.engine.StateIDs()})
}

// getScreenshot returns the current window content as a PNG, handy for
// checking what the matcher actually sees.
func (s *HttpServer) getScreenshot(w http.ResponseWriter, _ *http.Request) {
	if s.capturer == nil {
		http.Error(w, "screenshots unavailable", http.StatusServiceUnavailable)
		return
	}
	frame, err := s.capturer.CaptureFrame()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, frame); err != nil {
		s.logger.Error("Failed to encode screenshot", slog.Any("error", err))
	}
}

func (s *HttpServer) postStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.start == nil {
		http.Error(w, "starting runs is disabled", http.StatusServiceUnavailable)
		return
	}
	if err := s.start(); err != nil {
		writeJSONStatus(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, map[string]string{"status": "started"})
}

func (s *HttpServer) postStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Stop()
	writeJSON(w, map[string]string{"status": "stopping"})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
