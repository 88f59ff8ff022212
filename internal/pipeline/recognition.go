package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/polyvox/polyvox/internal/event"
	"github.com/polyvox/polyvox/internal/observe"
	"github.com/polyvox/polyvox/pkg/audio"
	"github.com/polyvox/polyvox/pkg/provider/asr"
)

// DefaultRecognitionQueueCap bounds the number of windows waiting for the
// recognition worker. Windows overlap in time, so dropping excess ones loses
// latency, not speech.
const DefaultRecognitionQueueCap = 5

// recognitionStage feeds audio windows through the recognition engine one at
// a time. The engine is CPU/GPU-bound and treated as non-reentrant, so a
// single worker serializes all inference; Submit never blocks and drops the
// newest window when the queue is full.
type recognitionStage struct {
	rec     asr.Recognizer
	out     func(*asr.Transcript)
	events  *event.Broadcaster
	metrics *observe.Metrics
	logger  *slog.Logger

	queue chan *audio.Window
	wg    sync.WaitGroup
}

func newRecognitionStage(
	rec asr.Recognizer,
	out func(*asr.Transcript),
	events *event.Broadcaster,
	metrics *observe.Metrics,
	logger *slog.Logger,
	queueCap int,
) *recognitionStage {
	if queueCap <= 0 {
		queueCap = DefaultRecognitionQueueCap
	}
	return &recognitionStage{
		rec:     rec,
		out:     out,
		events:  events,
		metrics: metrics,
		logger:  logger,
		queue:   make(chan *audio.Window, queueCap),
	}
}

// start launches the worker. It exits when ctx is cancelled.
func (s *recognitionStage) start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// wait blocks until the worker has exited.
func (s *recognitionStage) wait() {
	s.wg.Wait()
}

// submit enqueues a window for recognition without blocking. When the queue
// is full the new window is dropped and a warning event fires.
func (s *recognitionStage) submit(ctx context.Context, w *audio.Window) {
	select {
	case s.queue <- w:
	default:
		s.logger.Warn("recognition queue full, dropping window",
			"window_duration", w.Duration(), "queue_cap", cap(s.queue))
		s.metrics.RecordQueueDrop(ctx, "recognition")
		s.events.Publish(event.New(event.TypeError, event.Error{
			Stage:   "recognition",
			Message: "queue full, audio window dropped",
		}))
	}
}

// pending reports the number of queued windows. Used for status snapshots.
func (s *recognitionStage) pending() int {
	return len(s.queue)
}

func (s *recognitionStage) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-s.queue:
			s.process(ctx, w)
		}
	}
}

// process runs one window through the engine. Engine failures are logged and
// surfaced as Error events; the worker never dies on them.
func (s *recognitionStage) process(ctx context.Context, w *audio.Window) {
	t, err := s.rec.Recognize(ctx, w)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("recognition failed", "window_duration", w.Duration(), "error", err)
		s.metrics.RecordStageError(ctx, "recognition")
		s.events.Publish(event.New(event.TypeError, event.Error{
			Stage:   "recognition",
			Message: err.Error(),
		}))
		return
	}

	s.metrics.RecordRecognition(ctx, t.ProcessingLatency.Seconds(), "ok")
	s.out(t)
}
