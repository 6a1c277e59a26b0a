package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/voxmood/emotion-audio-service/internal/analysis"
	"github.com/voxmood/emotion-audio-service/internal/capture"
)

// fakeBackend answers every analysis with a fixed emotion and records
// end-session notifications.
type fakeBackend struct {
	mu            sync.Mutex
	analyzed      []*capture.Chunk
	endedSessions []string
	failAnalyze   bool
	failEnd       bool
}

func (b *fakeBackend) AnalyzeChunk(ctx context.Context, chunk *capture.Chunk) (*analysis.Result, error) {
	b.mu.Lock()
	b.analyzed = append(b.analyzed, chunk)
	fail := b.failAnalyze
	b.mu.Unlock()

	if fail {
		return nil, errors.New("backend down")
	}
	return &analysis.Result{
		Emotion:    analysis.EmotionHappy,
		Confidence: 0.9,
		SessionID:  chunk.SessionID,
		ReceivedAt: time.Now(),
	}, nil
}

func (b *fakeBackend) EndSession(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	b.endedSessions = append(b.endedSessions, sessionID)
	fail := b.failEnd
	b.mu.Unlock()

	if fail {
		return errors.New("notify failed")
	}
	return nil
}

func (b *fakeBackend) ended() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.endedSessions))
	copy(out, b.endedSessions)
	return out
}

// fakeListener collects results and status transitions.
type fakeListener struct {
	mu       sync.Mutex
	results  []*analysis.Result
	statuses []Status
}

func (l *fakeListener) OnResult(r *analysis.Result) {
	l.mu.Lock()
	l.results = append(l.results, r)
	l.mu.Unlock()
}

func (l *fakeListener) OnStatusChange(s Status) {
	l.mu.Lock()
	l.statuses = append(l.statuses, s)
	l.mu.Unlock()
}

func (l *fakeListener) resultCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.results)
}

// stubDevice emits a large buffer on each start so every chunk passes the
// size filter.
type stubDevice struct {
	mu        sync.Mutex
	onSamples func([]float32)
	rate      int
}

func (d *stubDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.onSamples != nil {
		buf := make([]float32, 8000)
		d.onSamples(buf)
	}
	return nil
}

func (d *stubDevice) Stop() error     { return nil }
func (d *stubDevice) SampleRate() int { return d.rate }
func (d *stubDevice) Close() error    { return nil }

func stubFactory() capture.DeviceFactory {
	return func(onSamples func([]float32)) (capture.Device, error) {
		return &stubDevice{onSamples: onSamples, rate: 16000}, nil
	}
}

func deniedFactory() capture.DeviceFactory {
	return func(onSamples func([]float32)) (capture.Device, error) {
		return nil, errors.New("microphone access denied")
	}
}

func testControllerConfig() Config {
	return Config{
		Recorder: capture.Config{
			ChunkInterval: 30 * time.Millisecond,
			SettleDelay:   time.Millisecond,
			MinChunkBytes: 100,
			SampleRate:    16000,
		},
		Queue: analysis.QueueConfig{
			MinChunkBytes:   100,
			CoolDown:        time.Millisecond,
			RescheduleDelay: time.Millisecond,
			FlushThreshold:  5,
		},
		EndSessionTimeout: time.Second,
	}
}

func newTestController(backend Backend, listener Listener, factory capture.DeviceFactory) *Controller {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewController(logger, factory, backend, testControllerConfig(), listener, nil)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

func TestControllerSingleActiveSession(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(backend, nil, stubFactory())
	defer c.Close()

	id, err := c.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected non-empty session id")
	}

	if _, err := c.Start(); !errors.Is(err, ErrSessionActive) {
		t.Errorf("Expected ErrSessionActive, got %v", err)
	}
}

func TestControllerSessionIDsUnique(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(backend, nil, stubFactory())
	defer c.Close()

	id1, err := c.Start()
	if err != nil {
		t.Fatalf("First start failed: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	id2, err := c.Start()
	if err != nil {
		t.Fatalf("Second start failed: %v", err)
	}
	defer c.Stop()

	if id1 == id2 {
		t.Errorf("Expected distinct session ids, both were %s", id1)
	}
}

func TestControllerDeviceDeniedFatal(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(backend, nil, deniedFactory())
	defer c.Close()

	if _, err := c.Start(); err == nil {
		t.Fatal("Expected start to fail when device is denied")
	}

	snap := c.GetSnapshot()
	if snap.Active {
		t.Error("Expected no active session after device denial")
	}

	// The failed start must not poison later attempts with a working device
	c2 := newTestController(backend, nil, stubFactory())
	defer c2.Close()
	if _, err := c2.Start(); err != nil {
		t.Errorf("Start with working device failed: %v", err)
	}
}

func TestControllerRelaysResultsAndTimeline(t *testing.T) {
	backend := &fakeBackend{}
	listener := &fakeListener{}
	c := newTestController(backend, listener, stubFactory())
	defer c.Close()

	if _, err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return listener.resultCount() >= 1 })

	if c.Timeline().Len() == 0 {
		t.Error("Expected timeline entries after results")
	}

	entries := c.Timeline().Entries()
	if entries[0].Emotion != analysis.EmotionHappy {
		t.Errorf("Expected happy on timeline, got %s", entries[0].Emotion)
	}
	if entries[0].Confidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %f", entries[0].Confidence)
	}
}

func TestControllerStopNotifiesBackend(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(backend, nil, stubFactory())
	defer c.Close()

	id, err := c.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	ended := backend.ended()
	if len(ended) != 1 || ended[0] != id {
		t.Errorf("Expected end-session notification for %s, got %v", id, ended)
	}

	if err := c.Stop(); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession on double stop, got %v", err)
	}
}

func TestControllerStopSurvivesNotifyFailure(t *testing.T) {
	backend := &fakeBackend{failEnd: true}
	c := newTestController(backend, nil, stubFactory())
	defer c.Close()

	if _, err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Errorf("Expected local teardown despite notify failure, got %v", err)
	}

	if snap := c.GetSnapshot(); snap.Active {
		t.Error("Expected inactive session after stop")
	}
}

func TestControllerDiscardsLateResults(t *testing.T) {
	backend := &fakeBackend{}
	listener := &fakeListener{}
	c := newTestController(backend, listener, stubFactory())
	defer c.Close()

	id, err := c.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	before := c.Timeline().Len()
	resultsBefore := listener.resultCount()

	// Simulate a response that completes after the session ended
	c.handleResult(&analysis.Result{
		Emotion:    analysis.EmotionAngry,
		Confidence: 0.8,
		SessionID:  id,
		ReceivedAt: time.Now(),
	})

	if c.Timeline().Len() != before {
		t.Error("Late result must not mutate the timeline")
	}
	if listener.resultCount() != resultsBefore {
		t.Error("Late result must not reach the listener")
	}
}

func TestControllerStartClearsPreviousState(t *testing.T) {
	backend := &fakeBackend{}
	listener := &fakeListener{}
	c := newTestController(backend, listener, stubFactory())
	defer c.Close()

	if _, err := c.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool { return c.Timeline().Len() >= 1 })
	if err := c.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if _, err := c.Start(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	defer c.Stop()

	// The timeline restarts empty; a fresh result may already have landed,
	// but nothing from the previous session may survive. Entries carry the
	// new session's results only, so the count must be below the cap soon
	// after start.
	snap := c.GetSnapshot()
	if len(snap.Timeline) > 2 {
		t.Errorf("Expected timeline cleared on restart, got %d entries", len(snap.Timeline))
	}
}

func TestControllerSnapshot(t *testing.T) {
	backend := &fakeBackend{}
	c := newTestController(backend, nil, stubFactory())
	defer c.Close()

	snap := c.GetSnapshot()
	if snap.Active || snap.Status != StatusIdle {
		t.Errorf("Expected idle snapshot, got %+v", snap)
	}

	id, err := c.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	snap = c.GetSnapshot()
	if !snap.Active {
		t.Error("Expected active snapshot")
	}
	if snap.SessionID != id {
		t.Errorf("Expected session id %s in snapshot, got %s", id, snap.SessionID)
	}
}
