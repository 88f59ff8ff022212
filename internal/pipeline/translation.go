package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/polyvox/polyvox/internal/event"
	"github.com/polyvox/polyvox/internal/observe"
	"github.com/polyvox/polyvox/internal/resilience"
	"github.com/polyvox/polyvox/pkg/provider/mt"
)

// DefaultTranslationQueueCap bounds the number of transcripts waiting for the
// translation worker. Translation is best-effort relative to live
// transcription, so overflow drops the newest request.
const DefaultTranslationQueueCap = 10

// translationRequest is one finalized transcript to fan out across all target
// languages.
type translationRequest struct {
	text       string
	sourceLang string
	targets    []string
	enqueuedAt time.Time
}

// translationStage fans each finalized transcript out to every configured
// target language, in order, one engine call at a time. A per-target failure
// produces a placeholder result and the batch continues.
type translationStage struct {
	translator mt.Translator
	out        func(*mt.Result)
	events     *event.Broadcaster
	metrics    *observe.Metrics
	logger     *slog.Logger
	breaker    *resilience.Breaker

	queue chan translationRequest
	wg    sync.WaitGroup
}

func newTranslationStage(
	translator mt.Translator,
	out func(*mt.Result),
	events *event.Broadcaster,
	metrics *observe.Metrics,
	logger *slog.Logger,
	breaker *resilience.Breaker,
	queueCap int,
) *translationStage {
	if queueCap <= 0 {
		queueCap = DefaultTranslationQueueCap
	}
	return &translationStage{
		translator: translator,
		out:        out,
		events:     events,
		metrics:    metrics,
		logger:     logger,
		breaker:    breaker,
		queue:      make(chan translationRequest, queueCap),
	}
}

func (s *translationStage) start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

func (s *translationStage) wait() {
	s.wg.Wait()
}

// enqueue pushes a request without blocking. When the queue is full the new
// request is dropped and a warning event fires; queued requests are untouched.
func (s *translationStage) enqueue(ctx context.Context, text, sourceLang string, targets []string) {
	req := translationRequest{
		text:       text,
		sourceLang: sourceLang,
		targets:    targets,
		enqueuedAt: time.Now(),
	}
	select {
	case s.queue <- req:
	default:
		s.logger.Warn("translation queue full, dropping request", "queue_cap", cap(s.queue))
		s.metrics.RecordQueueDrop(ctx, "translation")
		s.events.Publish(event.New(event.TypeError, event.Error{
			Stage:   "translation",
			Message: "queue full, translation request dropped",
		}))
	}
}

// pending reports the number of queued requests. Used for status snapshots.
func (s *translationStage) pending() int {
	return len(s.queue)
}

func (s *translationStage) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.queue:
			s.process(ctx, req)
		}
	}
}

// process translates one request into every target language, in list order,
// emitting one result per language before moving to the next.
func (s *translationStage) process(ctx context.Context, req translationRequest) {
	for _, target := range req.targets {
		if ctx.Err() != nil {
			return
		}
		s.out(s.translateOne(ctx, req.text, req.sourceLang, target))
	}
}

// translateOne produces exactly one result for one target language. The
// same-language short-circuit never reaches the engine, and engine failures
// yield a placeholder result instead of aborting the batch.
func (s *translationStage) translateOne(ctx context.Context, text, sourceLang, target string) *mt.Result {
	src, _ := mt.CanonicalCode(sourceLang)
	dst, ok := mt.CanonicalCode(target)
	if !ok {
		s.logger.Warn("unknown target language, substituting fallback",
			"target", target, "fallback", mt.FallbackCode)
	}

	if src == dst {
		return &mt.Result{
			SourceText:     text,
			TranslatedText: text,
			SourceLanguage: src,
			TargetLanguage: dst,
			Confidence:     1.0,
		}
	}

	var result *mt.Result
	call := func() error {
		var err error
		result, err = s.translator.Translate(ctx, text, src, dst)
		return err
	}

	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(call)
	} else {
		err = call()
	}

	if err != nil {
		s.logger.Error("translation failed", "target", dst, "error", err)
		s.metrics.RecordTranslation(ctx, 0, dst, "error")
		s.metrics.RecordStageError(ctx, "translation")
		s.events.Publish(event.New(event.TypeError, event.Error{
			Stage:   "translation",
			Message: fmt.Sprintf("%s: %v", dst, err),
		}))
		return &mt.Result{
			SourceText:     text,
			TranslatedText: fmt.Sprintf("[Translation Error: %v]", err),
			SourceLanguage: src,
			TargetLanguage: dst,
			Err:            err,
		}
	}

	s.metrics.RecordTranslation(ctx, result.ProcessingLatency.Seconds(), dst, "ok")
	return result
}
