package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/polyvox/polyvox/internal/event"
	"github.com/polyvox/polyvox/internal/health"
	"github.com/polyvox/polyvox/internal/pipeline"
	"github.com/polyvox/polyvox/internal/store"
	audiomock "github.com/polyvox/polyvox/pkg/audio/mock"
	asrmock "github.com/polyvox/polyvox/pkg/provider/asr/mock"
	mtmock "github.com/polyvox/polyvox/pkg/provider/mt/mock"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *event.Broadcaster) {
	t.Helper()

	events := event.NewBroadcaster()
	t.Cleanup(events.Close)

	coord, err := pipeline.New(
		&audiomock.Source{},
		&asrmock.Recognizer{},
		&mtmock.Translator{},
		events,
		pipeline.WithTargetLanguages([]string{"spanish"}),
	)
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	t.Cleanup(func() { coord.Close() })

	return New("127.0.0.1:0", coord, events, opts...), events
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/pipeline/status")
	if err != nil {
		t.Fatalf("GET /pipeline/status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Running {
		t.Error("pipeline should not be running before start")
	}
	if body.State != "stopped" {
		t.Errorf("state = %q, want %q", body.State, "stopped")
	}
}

func TestStartStopEndpoints(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/pipeline/start", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /pipeline/start: %v", err)
	}
	var started statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, want 200", resp.StatusCode)
	}
	if !started.Running {
		t.Error("pipeline should be running after start")
	}

	resp, err = http.Post(ts.URL+"/pipeline/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /pipeline/stop: %v", err)
	}
	var stopped statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&stopped); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if stopped.Running {
		t.Error("pipeline should not be running after stop")
	}
}

func TestStartFailureReturns500(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	src := &audiomock.Source{OpenErr: errors.New("device busy")}
	coord, err := pipeline.New(src, &asrmock.Recognizer{}, nil, event.NewBroadcaster())
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	s.pipeline = coord

	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/pipeline/start", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /pipeline/start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, WithReadinessCheck(health.Checker{
		Name:  "archive",
		Check: func(ctx context.Context) error { return errors.New("connection refused") },
	}))
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", resp.StatusCode)
	}
}

// listOnlyArchive serves canned transcript listings for endpoint tests.
type listOnlyArchive struct {
	records   []store.TranscriptRecord
	lastLimit int
	listErr   error
}

func (a *listOnlyArchive) SaveTranscript(context.Context, store.TranscriptRecord) error {
	return nil
}

func (a *listOnlyArchive) SaveTranslation(context.Context, store.TranslationRecord) error {
	return nil
}

func (a *listOnlyArchive) RecentTranscripts(_ context.Context, limit int) ([]store.TranscriptRecord, error) {
	a.lastLimit = limit
	if a.listErr != nil {
		return nil, a.listErr
	}
	if limit < len(a.records) {
		return a.records[:limit], nil
	}
	return a.records, nil
}

func (a *listOnlyArchive) Ping(context.Context) error { return nil }

func (a *listOnlyArchive) Close() {}

var _ store.Archive = (*listOnlyArchive)(nil)

func TestTranscriptsEndpoint(t *testing.T) {
	t.Parallel()

	archive := &listOnlyArchive{records: []store.TranscriptRecord{
		{Text: "newest transcript", Language: "english", AudioSecs: 12.5},
		{Text: "older transcript", Language: "english", Revision: true},
	}}
	s, _ := newTestServer(t, WithArchive(archive))
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/transcripts?limit=2")
	if err != nil {
		t.Fatalf("GET /transcripts: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if archive.lastLimit != 2 {
		t.Errorf("archive queried with limit %d, want 2", archive.lastLimit)
	}

	var body struct {
		Transcripts []transcriptEntry `json:"transcripts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Transcripts) != 2 {
		t.Fatalf("transcripts = %d, want 2", len(body.Transcripts))
	}
	if body.Transcripts[0].Text != "newest transcript" {
		t.Errorf("first text = %q, want newest first", body.Transcripts[0].Text)
	}
	if !body.Transcripts[1].Revision {
		t.Error("second entry must carry the revision flag")
	}
}

func TestTranscriptsEndpointBadLimit(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, WithArchive(&listOnlyArchive{}))
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/transcripts?limit=zero")
	if err != nil {
		t.Fatalf("GET /transcripts: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTranscriptsEndpointDisabledWithoutArchive(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/transcripts")
	if err != nil {
		t.Fatalf("GET /transcripts: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestWebSocketStream(t *testing.T) {
	t.Parallel()

	s, events := newTestServer(t)
	ts := httptest.NewServer(s.routes())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame is always a status snapshot.
	var initial event.Event
	if err := wsjson.Read(ctx, conn, &initial); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if initial.Type != event.TypeStatus {
		t.Fatalf("initial frame type = %q, want %q", initial.Type, event.TypeStatus)
	}

	// Once the status frame has arrived the subscription is active: every
	// event published from here on must reach the client, in order.
	events.Publish(event.New(event.TypeTranscription, event.Transcription{
		Text:     "hello world",
		Language: "en",
	}))
	events.Publish(event.New(event.TypeTranslation, event.Translation{
		TranslatedText: "hola mundo",
		TargetLanguage: "spa_Latn",
	}))

	var ev event.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event frame: %v", err)
	}
	if ev.Type != event.TypeTranscription {
		t.Fatalf("frame type = %q, want %q", ev.Type, event.TypeTranscription)
	}
	data, ok := ev.Data.(map[string]any)
	if !ok {
		t.Fatalf("frame data type = %T, want map", ev.Data)
	}
	if got := data["text"]; got != "hello world" {
		t.Errorf("text = %v, want %q", got, "hello world")
	}

	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read second event frame: %v", err)
	}
	if ev.Type != event.TypeTranslation {
		t.Fatalf("second frame type = %q, want %q", ev.Type, event.TypeTranslation)
	}
}
