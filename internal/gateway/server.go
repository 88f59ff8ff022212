// Package gateway exposes the pipeline over HTTP: REST endpoints for
// lifecycle control and status, a WebSocket stream of pipeline events, health
// probes, and the Prometheus metrics endpoint.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/polyvox/polyvox/internal/event"
	"github.com/polyvox/polyvox/internal/health"
	"github.com/polyvox/polyvox/internal/observe"
	"github.com/polyvox/polyvox/internal/pipeline"
	"github.com/polyvox/polyvox/internal/store"
)

// shutdownTimeout bounds graceful HTTP shutdown once the run context ends.
const shutdownTimeout = 5 * time.Second

// Server serves the REST and WebSocket API in front of one pipeline
// Coordinator.
type Server struct {
	addr     string
	pipeline *pipeline.Coordinator
	events   *event.Broadcaster
	archive  store.Archive
	logger   *slog.Logger
	checkers []health.Checker
}

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithArchive exposes the transcript archive under GET /transcripts. Without
// it the route is not registered.
func WithArchive(archive store.Archive) Option {
	return func(s *Server) {
		s.archive = archive
	}
}

// WithReadinessCheck adds a named readiness check served under /readyz.
func WithReadinessCheck(c health.Checker) Option {
	return func(s *Server) {
		s.checkers = append(s.checkers, c)
	}
}

// New creates a Server listening on addr once Run is called.
func New(addr string, coord *pipeline.Coordinator, events *event.Broadcaster, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		pipeline: coord,
		events:   events,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully. It
// returns the first serve or shutdown error, or nil on a clean exit.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.routes(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("gateway listening", "addr", s.addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /pipeline/start", s.handleStart)
	mux.HandleFunc("POST /pipeline/stop", s.handleStop)
	mux.HandleFunc("GET /pipeline/status", s.handleStatus)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.archive != nil {
		mux.HandleFunc("GET /transcripts", s.handleTranscripts)
	}

	health.New(s.checkers...).Register(mux)

	return mux
}

// statusResponse is the JSON shape of a pipeline status snapshot.
type statusResponse struct {
	Running          bool     `json:"running"`
	State            string   `json:"state"`
	Device           string   `json:"device,omitempty"`
	SourceLanguage   string   `json:"source_language,omitempty"`
	TargetLanguages  []string `json:"target_languages,omitempty"`
	AudioLevel       float64  `json:"audio_level"`
	RecognizerModel  string   `json:"recognizer_model,omitempty"`
	TranslatorEngine string   `json:"translator_engine,omitempty"`
}

func toStatusResponse(st pipeline.Status) statusResponse {
	return statusResponse{
		Running:          st.Running,
		State:            st.State,
		Device:           st.Device,
		SourceLanguage:   st.SourceLanguage,
		TargetLanguages:  st.TargetLanguages,
		AudioLevel:       st.AudioLevel,
		RecognizerModel:  st.RecognizerModel,
		TranslatorEngine: st.TranslatorEngine,
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.Start(r.Context()); err != nil {
		s.logger.Error("pipeline start failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(s.pipeline.Status()))
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	if err := s.pipeline.Stop(); err != nil {
		s.logger.Error("pipeline stop failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(s.pipeline.Status()))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toStatusResponse(s.pipeline.Status()))
}

// transcriptsLimit caps how many archived transcripts one request may list.
const transcriptsLimit = 200

// transcriptEntry is the JSON shape of one archived transcript.
type transcriptEntry struct {
	Text         string    `json:"text"`
	Language     string    `json:"language"`
	Revision     bool      `json:"revision"`
	AudioSeconds float64   `json:"audio_seconds"`
	CreatedAt    time.Time `json:"created_at"`
}

// handleTranscripts lists the most recently archived transcripts, newest
// first. The limit query parameter defaults to 20.
func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, transcriptsLimit)
	}

	records, err := s.archive.RecentTranscripts(r.Context(), limit)
	if err != nil {
		s.logger.Error("transcript listing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "archive unavailable"})
		return
	}

	entries := make([]transcriptEntry, len(records))
	for i, rec := range records {
		entries[i] = transcriptEntry{
			Text:         rec.Text,
			Language:     rec.Language,
			Revision:     rec.Revision,
			AudioSeconds: rec.AudioSecs,
			CreatedAt:    rec.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transcripts": entries})
}

// handleWS upgrades the connection and streams every broadcast event to the
// client as JSON, starting with a status frame. A failed write unregisters
// the connection from the broadcaster.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "server shutting down")

	// CloseRead returns a context that ends when the client disconnects.
	ctx := conn.CloseRead(r.Context())

	metrics := observe.DefaultMetrics()
	metrics.Subscribers.Add(ctx, 1)
	defer metrics.Subscribers.Add(context.WithoutCancel(ctx), -1)

	// Subscribe before writing the status frame so no event published in
	// between is missed; deliveries queue until the frame is out.
	ready := make(chan struct{})
	var readyOnce sync.Once
	markReady := func() { readyOnce.Do(func() { close(ready) }) }
	defer markReady()

	cancel := s.events.Subscribe(event.SubscriberFunc(func(ev event.Event) error {
		<-ready
		writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
		defer cancelWrite()
		return wsjson.Write(writeCtx, conn, ev)
	}))
	defer cancel()

	st := s.pipeline.Status()
	initial := event.New(event.TypeStatus, event.Status{
		State:     st.State,
		Device:    st.Device,
		Languages: st.TargetLanguages,
	})
	if err := wsjson.Write(ctx, conn, initial); err != nil {
		return
	}
	markReady()

	<-ctx.Done()
	conn.Close(websocket.StatusNormalClosure, "")
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
	}
}
