package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/polyvox/polyvox/internal/event"
	"github.com/polyvox/polyvox/internal/observe"
	"github.com/polyvox/polyvox/internal/resilience"
	"github.com/polyvox/polyvox/internal/transcript"
	"github.com/polyvox/polyvox/pkg/audio"
	"github.com/polyvox/polyvox/pkg/provider/asr"
	"github.com/polyvox/polyvox/pkg/provider/mt"
)

// State is the lifecycle state of a Coordinator.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// DefaultWindowInterval is how often the coordinator checks the rolling
// buffer for a ready window. Windows overlap deliberately; the reconciler
// collapses the resulting duplicate transcripts.
const DefaultWindowInterval = 2 * time.Second

// DefaultSampleRate is the capture sample rate expected by the recognition
// engine.
const DefaultSampleRate = 16000

// Status is a point-in-time snapshot of the pipeline, assembled from live
// component state on every call.
type Status struct {
	Running          bool
	State            string
	Device           string
	SourceLanguage   string
	TargetLanguages  []string
	AudioLevel       float64
	RecognizerModel  string
	TranslatorEngine string
	RecognitionQueue int
	TranslationQueue int
}

// Coordinator owns the pipeline lifecycle: it opens the audio stream, wires
// buffer → recognition → reconciliation → translation together with bounded
// queues, and publishes every stage's results through the event broadcaster.
//
// One Coordinator instance is constructed per pipeline; there is no process
// wide instance. All methods are safe for concurrent use.
type Coordinator struct {
	source     audio.Source
	recognizer asr.Recognizer
	translator mt.Translator
	events     *event.Broadcaster

	logger    *slog.Logger
	metrics   *observe.Metrics
	corrector *transcript.Corrector
	breaker   *resilience.Breaker

	device         string
	sampleRate     int
	sourceLang     string
	targets        []string
	windowInterval time.Duration
	bufferOpts     []audio.BufferOption
	reconcileOpts  []ReconcilerOption
	recogQueueCap  int
	transQueueCap  int

	mu          sync.Mutex
	state       State
	cancel      context.CancelFunc
	stream      audio.Stream
	buffer      *audio.RollingBuffer
	reconciler  *Reconciler
	recognition *recognitionStage
	translation *translationStage
	wg          sync.WaitGroup
}

// Option is a functional option for configuring a Coordinator.
type Option func(*Coordinator)

// WithDevice sets the capture device descriptor passed to the audio source.
func WithDevice(device string) Option {
	return func(c *Coordinator) { c.device = device }
}

// WithSampleRate sets the capture sample rate in Hz. Default: 16000.
func WithSampleRate(rate int) Option {
	return func(c *Coordinator) {
		if rate > 0 {
			c.sampleRate = rate
		}
	}
}

// WithSourceLanguage sets the fallback source language used when the
// recognition engine does not report one.
func WithSourceLanguage(lang string) Option {
	return func(c *Coordinator) { c.sourceLang = lang }
}

// WithTargetLanguages sets the translation targets. An empty list disables
// the translation stage entirely.
func WithTargetLanguages(targets []string) Option {
	return func(c *Coordinator) { c.targets = targets }
}

// WithWindowInterval sets how often the rolling buffer is polled for a ready
// window. Default: 2s.
func WithWindowInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.windowInterval = d
		}
	}
}

// WithBufferOptions forwards options to the rolling audio buffer.
func WithBufferOptions(opts ...audio.BufferOption) Option {
	return func(c *Coordinator) { c.bufferOpts = append(c.bufferOpts, opts...) }
}

// WithReconcilerOptions forwards options to the transcript reconciler.
func WithReconcilerOptions(opts ...ReconcilerOption) Option {
	return func(c *Coordinator) { c.reconcileOpts = append(c.reconcileOpts, opts...) }
}

// WithRecognitionQueueCap overrides the recognition queue capacity.
func WithRecognitionQueueCap(n int) Option {
	return func(c *Coordinator) { c.recogQueueCap = n }
}

// WithTranslationQueueCap overrides the translation queue capacity.
func WithTranslationQueueCap(n int) Option {
	return func(c *Coordinator) { c.transQueueCap = n }
}

// WithCorrector attaches a glossary corrector applied to finalized
// transcripts before translation.
func WithCorrector(corr *transcript.Corrector) Option {
	return func(c *Coordinator) { c.corrector = corr }
}

// WithBreaker guards translation engine calls with a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Coordinator) { c.breaker = b }
}

// WithMetrics overrides the metrics instance. Default: observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the logger. Default: slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a stopped Coordinator. translator may be nil when no target
// languages are configured.
func New(
	source audio.Source,
	recognizer asr.Recognizer,
	translator mt.Translator,
	events *event.Broadcaster,
	opts ...Option,
) (*Coordinator, error) {
	if source == nil {
		return nil, errors.New("pipeline: audio source must not be nil")
	}
	if recognizer == nil {
		return nil, errors.New("pipeline: recognizer must not be nil")
	}
	if events == nil {
		return nil, errors.New("pipeline: event broadcaster must not be nil")
	}

	c := &Coordinator{
		source:         source,
		recognizer:     recognizer,
		translator:     translator,
		events:         events,
		logger:         slog.Default(),
		metrics:        observe.DefaultMetrics(),
		sampleRate:     DefaultSampleRate,
		windowInterval: DefaultWindowInterval,
	}
	for _, o := range opts {
		o(c)
	}

	if len(c.targets) > 0 && c.translator == nil {
		return nil, errors.New("pipeline: target languages configured but translator is nil")
	}
	return c, nil
}

// Start transitions Stopped → Starting → Running. A Start on a running
// pipeline is a no-op with a warning. If the audio source fails to open, the
// pipeline rolls back to Stopped and the error is returned.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()

	if c.state != StateStopped {
		state := c.state.String()
		c.mu.Unlock()
		c.logger.Warn("start requested but pipeline is not stopped", "state", state)
		return nil
	}
	c.state = StateStarting

	stream, err := c.source.Open(ctx, audio.StreamConfig{
		SampleRate: c.sampleRate,
		Device:     c.device,
	})
	if err != nil {
		c.state = StateStopped
		c.mu.Unlock()
		return fmt.Errorf("pipeline: open audio source: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.stream = stream
	c.cancel = cancel
	c.buffer = audio.NewRollingBuffer(c.sampleRate, c.bufferOpts...)
	c.reconciler = NewReconciler(c.reconcileOpts...)
	c.recognition = newRecognitionStage(
		c.recognizer, c.handleTranscript, c.events, c.metrics, c.logger, c.recogQueueCap)
	if len(c.targets) > 0 {
		c.translation = newTranslationStage(
			c.translator, c.handleTranslation, c.events, c.metrics, c.logger, c.breaker, c.transQueueCap)
		c.translation.start(runCtx)
	}
	c.recognition.start(runCtx)

	c.wg.Add(2)
	go c.captureLoop(runCtx, stream)
	go c.windowLoop(runCtx)

	c.state = StateRunning
	c.mu.Unlock()

	c.logger.Info("pipeline started",
		"device", stream.Device(),
		"sample_rate", c.sampleRate,
		"targets", c.targets,
		"model", c.recognizer.ModelInfo())
	c.publishStatus(runCtx)
	return nil
}

// Stop transitions Running → Stopped, tearing components down in reverse
// dependency order: capture first, then recognition, then translation.
// Calling Stop on a stopped pipeline is a no-op. Safe to call repeatedly and
// from error handlers.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	stream := c.stream
	recognition := c.recognition
	translation := c.translation
	c.mu.Unlock()

	cancel()
	err := stream.Close()

	c.wg.Wait()
	recognition.wait()
	if translation != nil {
		translation.wait()
	}

	c.mu.Lock()
	c.state = StateStopped
	c.stream = nil
	c.cancel = nil
	c.recognition = nil
	c.translation = nil
	c.mu.Unlock()

	c.logger.Info("pipeline stopped")
	c.publishStatus(context.Background())

	if err != nil {
		return fmt.Errorf("pipeline: close audio stream: %w", err)
	}
	return nil
}

// Close stops the pipeline and releases collaborator resources for any
// provider that supports it.
func (c *Coordinator) Close() error {
	errs := []error{c.Stop()}
	if closer, ok := c.recognizer.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	if closer, ok := c.translator.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

// Status assembles a snapshot from live component state. It never reports
// values left over from before a stop.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Running:         c.state == StateRunning,
		State:           c.state.String(),
		Device:          c.device,
		SourceLanguage:  c.sourceLang,
		TargetLanguages: append([]string(nil), c.targets...),
		RecognizerModel: c.recognizer.ModelInfo(),
	}
	if c.translator != nil {
		st.TranslatorEngine = c.translator.EngineInfo()
	}
	if c.state == StateRunning {
		st.Device = c.stream.Device()
		st.AudioLevel = c.buffer.Level()
		st.RecognitionQueue = c.recognition.pending()
		if c.translation != nil {
			st.TranslationQueue = c.translation.pending()
		}
	}
	return st
}

// captureLoop drains frames from the audio stream into the rolling buffer.
// Device status anomalies are surfaced as warnings, never as fatal errors.
func (c *Coordinator) captureLoop(ctx context.Context, stream audio.Stream) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case f, ok := <-stream.Frames():
			if !ok {
				return
			}
			if f.Status != "" {
				c.logger.Warn("audio device reported anomaly", "status", f.Status)
				c.events.Publish(event.New(event.TypeError, event.Error{
					Stage:   "capture",
					Message: f.Status,
				}))
			}
			c.buffer.Push(f)
		}
	}
}

// windowLoop periodically drains ready windows into the recognition stage and
// reports the current audio level.
func (c *Coordinator) windowLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.windowInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.metrics.AudioLevel.Record(ctx, c.buffer.Level())
			if w, ok := c.buffer.Window(); ok {
				c.recognition.submit(ctx, w)
			}
		}
	}
}

// handleTranscript receives raw transcripts from the recognition worker,
// reconciles them, applies the glossary corrector, and publishes the result.
func (c *Coordinator) handleTranscript(t *asr.Transcript) {
	f, ok := c.reconciler.Reconcile(t)
	if !ok {
		return
	}

	if c.corrector != nil {
		corrected, corrections := c.corrector.Correct(f.Text)
		if len(corrections) > 0 {
			c.logger.Debug("glossary corrections applied", "count", len(corrections))
			f.Text = corrected
		}
	}

	decision := "new"
	if f.IsCorrection {
		decision = "correction"
	}
	ctx := context.Background()
	c.metrics.RecordTranscript(ctx, decision)

	c.publish(ctx, event.New(event.TypeTranscription, event.Transcription{
		Text:               f.Text,
		Language:           c.language(f.Language),
		LanguageConfidence: f.LanguageConfidence,
		Revision:           f.IsCorrection,
		AudioSeconds:       f.AudioDuration.Seconds(),
		LatencySeconds:     f.ProcessingLatency.Seconds(),
	}))

	c.mu.Lock()
	translation := c.translation
	c.mu.Unlock()
	if translation != nil {
		translation.enqueue(ctx, f.Text, c.language(f.Language), c.targets)
	}
}

// handleTranslation publishes one per-language translation result.
func (c *Coordinator) handleTranslation(r *mt.Result) {
	c.publish(context.Background(), event.New(event.TypeTranslation, event.Translation{
		SourceText:     r.SourceText,
		TranslatedText: r.TranslatedText,
		SourceLanguage: r.SourceLanguage,
		TargetLanguage: r.TargetLanguage,
		Confidence:     r.Confidence,
		LatencySeconds: r.ProcessingLatency.Seconds(),
	}))
}

// language resolves the effective source language, preferring what the
// recognition engine detected.
func (c *Coordinator) language(detected string) string {
	if detected != "" {
		return detected
	}
	return c.sourceLang
}

// publishStatus broadcasts the current status snapshot.
func (c *Coordinator) publishStatus(ctx context.Context) {
	st := c.Status()
	c.publish(ctx, event.New(event.TypeStatus, event.Status{
		State:     st.State,
		Device:    st.Device,
		Languages: st.TargetLanguages,
	}))
}

func (c *Coordinator) publish(ctx context.Context, ev event.Event) {
	c.metrics.RecordEvent(ctx, string(ev.Type))
	c.events.Publish(ev)
}
