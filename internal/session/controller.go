package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxmood/emotion-audio-service/internal/analysis"
	"github.com/voxmood/emotion-audio-service/internal/capture"
	"github.com/voxmood/emotion-audio-service/internal/metrics"
)

var (
	// ErrSessionActive is returned when Start is called with a session running.
	ErrSessionActive = errors.New("a session is already active")
	// ErrNoSession is returned when Stop is called with no session running.
	ErrNoSession = errors.New("no active session")
)

// Status is the operator-facing state of the pipeline.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusAnalyzing Status = "analyzing"
	StatusDetected  Status = "detected"
	StatusError     Status = "error-continuing"
	StatusStopped   Status = "stopped"
)

// Backend is the remote analysis service as seen by the controller.
// Satisfied by *analysis.Client.
type Backend interface {
	analysis.Analyzer
	EndSession(ctx context.Context, sessionID string) error
}

// Listener receives results and status transitions for presentation. All
// callbacks are invoked from pipeline goroutines and must not block.
type Listener interface {
	OnResult(result *analysis.Result)
	OnStatusChange(status Status)
}

// Config contains session controller configuration.
type Config struct {
	Recorder capture.Config
	Queue    analysis.QueueConfig
	// EndSessionTimeout bounds the best-effort backend notification on stop.
	EndSessionTimeout time.Duration
}

// Snapshot is a point-in-time view of the controller for monitoring.
type Snapshot struct {
	Active    bool                `json:"active"`
	SessionID string              `json:"session_id,omitempty"`
	StartedAt time.Time           `json:"started_at,omitempty"`
	Status    Status              `json:"status"`
	Timeline  []TimelineEntry     `json:"timeline"`
	Recorder  capture.Stats       `json:"recorder"`
	Queue     analysis.QueueStats `json:"queue"`
}

// Controller owns session lifecycle and wires the recorder into the analysis
// queue. It enforces the single-active-session invariant and guards the
// timeline against results that arrive after their session ended.
type Controller struct {
	logger   *slog.Logger
	backend  Backend
	listener Listener
	metrics  *metrics.Metrics
	config   Config

	recorder *capture.Recorder
	queue    *analysis.Queue
	timeline *Timeline

	mu        sync.RWMutex
	active    bool
	sessionID string
	startedAt time.Time
	status    Status
}

// NewController creates a session controller. listener and m may be nil.
func NewController(logger *slog.Logger, deviceFactory capture.DeviceFactory,
	backend Backend, config Config, listener Listener, m *metrics.Metrics) *Controller {

	if config.EndSessionTimeout <= 0 {
		config.EndSessionTimeout = 5 * time.Second
	}

	c := &Controller{
		logger:   logger,
		backend:  backend,
		listener: listener,
		metrics:  m,
		config:   config,
		timeline: NewTimeline(TimelineCap),
		status:   StatusIdle,
	}

	c.queue = analysis.NewQueue(logger, backend, config.Queue, c.handleResult, c.handleAnalysisError)
	c.recorder = capture.NewRecorder(logger, deviceFactory, config.Recorder, c.handleChunk, c.handleRecordingStopped)

	return c
}

// Start begins a new recording session and returns its identifier. Starting
// while a session is active is rejected. Device-acquisition failure is fatal
// to the start and reported synchronously.
func (c *Controller) Start() (string, error) {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return "", ErrSessionActive
	}

	sessionID := newSessionID()
	c.sessionID = sessionID
	c.startedAt = time.Now()
	c.active = true // claimed before the device starts so a racing Start is rejected
	c.mu.Unlock()

	// Fresh session: nothing from a previous run may leak in
	c.queue.Clear()
	c.timeline.Clear()

	if err := c.recorder.Start(sessionID); err != nil {
		c.mu.Lock()
		c.active = false
		c.setStatusLocked(StatusIdle)
		c.mu.Unlock()
		return "", fmt.Errorf("failed to start session: %w", err)
	}

	c.setStatus(StatusAnalyzing)

	if c.metrics != nil {
		c.metrics.RecordSessionStarted()
	}

	c.logger.Info("Session started", slog.String("session_id", sessionID))
	return sessionID, nil
}

// Stop ends the active session: capture is terminated and the device
// released, then the backend is notified best-effort. A notification failure
// never blocks local teardown.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return ErrNoSession
	}
	sessionID := c.sessionID
	startedAt := c.startedAt
	c.mu.Unlock()

	// Stop the recorder first so its final flush is still attributed to the
	// live session; results for anything still in flight are discarded once
	// the session is marked inactive below.
	if err := c.recorder.Stop(); err != nil && !errors.Is(err, capture.ErrNotRecording) {
		c.logger.Warn("Recorder stop failed", slog.String("error", err.Error()))
	}

	c.mu.Lock()
	c.active = false
	c.setStatusLocked(StatusStopped)
	c.mu.Unlock()

	c.notifySessionEnd(sessionID)

	if c.metrics != nil {
		c.metrics.RecordSessionEnded(time.Since(startedAt).Seconds())
	}

	c.logger.Info("Session stopped",
		slog.String("session_id", sessionID),
		slog.Duration("duration", time.Since(startedAt)),
	)
	return nil
}

// Close shuts the controller down, ending any active session.
func (c *Controller) Close() {
	if err := c.Stop(); err != nil && !errors.Is(err, ErrNoSession) {
		c.logger.Warn("Error stopping session during shutdown", slog.String("error", err.Error()))
	}
	c.queue.Close()
}

// GetSnapshot returns a monitoring view of the controller.
func (c *Controller) GetSnapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Active:   c.active,
		Status:   c.status,
		Timeline: c.timeline.Entries(),
		Recorder: c.recorder.GetStats(),
		Queue:    c.queue.GetStats(),
	}
	if c.active {
		snap.SessionID = c.sessionID
		snap.StartedAt = c.startedAt
	}
	return snap
}

// Timeline exposes the emotion timeline for presentation.
func (c *Controller) Timeline() *Timeline {
	return c.timeline
}

// handleChunk receives chunks from the recorder and queues them for analysis.
func (c *Controller) handleChunk(chunk *capture.Chunk) {
	c.mu.RLock()
	current := c.sessionID
	active := c.active
	c.mu.RUnlock()

	if chunk.SessionID != current {
		return
	}

	// The final flush of a stopping session still reaches the queue; only
	// the status stays untouched once the session is no longer active.
	c.queue.Enqueue(chunk)

	if c.metrics != nil {
		c.metrics.RecordChunk(chunk.Size, chunk.Duration.Seconds())
		c.metrics.SetQueueDepth(c.queue.Depth())
	}
	if active {
		c.setStatus(StatusAnalyzing)
	}
}

// handleResult applies one analysis result. A result whose session has
// already ended is discarded without touching the timeline.
func (c *Controller) handleResult(result *analysis.Result) {
	c.mu.Lock()
	if !c.active || result.SessionID != c.sessionID {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordLateResult()
		}
		c.logger.Debug("Discarding late analysis result",
			slog.String("session_id", result.SessionID),
			slog.String("emotion", string(result.Emotion)),
		)
		return
	}
	c.setStatusLocked(StatusDetected)
	c.mu.Unlock()

	c.timeline.Add(TimelineEntry{
		Timestamp:  result.ReceivedAt,
		Emotion:    result.Emotion,
		Confidence: result.Confidence,
	})

	if c.metrics != nil {
		c.metrics.RecordEmotion(string(result.Emotion))
		c.metrics.RecordAnalysisSuccess(result.Elapsed.Seconds())
		c.metrics.SetQueueDepth(c.queue.Depth())
	}

	if c.listener != nil {
		c.listener.OnResult(result)
	}

	c.logger.Info("Emotion detected",
		slog.String("session_id", result.SessionID),
		slog.String("emotion", string(result.Emotion)),
		slog.Float64("confidence", result.Confidence),
	)
}

// handleAnalysisError reports a failed analysis. The session continues.
func (c *Controller) handleAnalysisError(err error) {
	if c.metrics != nil {
		c.metrics.RecordAnalysisFailure()
		c.metrics.SetQueueDepth(c.queue.Depth())
	}

	c.mu.Lock()
	if c.active {
		c.setStatusLocked(StatusError)
	}
	c.mu.Unlock()
}

// handleRecordingStopped fires when the recorder ends. A non-nil error means
// the device was lost mid-session, which ends the session.
func (c *Controller) handleRecordingStopped(err error) {
	if err == nil {
		return
	}

	c.mu.Lock()
	wasActive := c.active
	sessionID := c.sessionID
	startedAt := c.startedAt
	c.active = false
	c.setStatusLocked(StatusStopped)
	c.mu.Unlock()

	if !wasActive {
		return
	}

	c.logger.Error("Recording stopped unexpectedly",
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
	c.notifySessionEnd(sessionID)

	if c.metrics != nil {
		c.metrics.RecordSessionEnded(time.Since(startedAt).Seconds())
	}
}

// notifySessionEnd tells the backend the session is over, best-effort.
func (c *Controller) notifySessionEnd(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.EndSessionTimeout)
	defer cancel()

	if err := c.backend.EndSession(ctx, sessionID); err != nil {
		c.logger.Warn("Session end notification failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Controller) setStatus(status Status) {
	c.mu.Lock()
	c.setStatusLocked(status)
	c.mu.Unlock()
}

// setStatusLocked updates the status and notifies the listener. Callers hold c.mu.
func (c *Controller) setStatusLocked(status Status) {
	if c.status == status {
		return
	}
	c.status = status
	if c.listener != nil {
		go c.listener.OnStatusChange(status)
	}
}

// newSessionID allocates a session identifier unique per start call and
// ordered by start time. UUIDv7 carries a timestamp prefix; fall back to a
// random UUID if the system clock source fails.
func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
