package analysis

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxmood/emotion-audio-service/internal/capture"
)

// QueueState represents the consumer state of the analysis queue.
type QueueState int

const (
	QueueIdle QueueState = iota
	QueueDraining
)

func (s QueueState) String() string {
	if s == QueueDraining {
		return "draining"
	}
	return "idle"
}

// Analyzer is the remote call the queue serializes. Satisfied by *Client.
type Analyzer interface {
	AnalyzeChunk(ctx context.Context, chunk *capture.Chunk) (*Result, error)
}

// QueueConfig contains analysis queue configuration.
type QueueConfig struct {
	MinChunkBytes   int           // heads below this are discarded without a remote call
	CoolDown        time.Duration // mandatory spacing after every remote call
	RescheduleDelay time.Duration // delay before the next head after a discard
	FlushThreshold  int           // backlog depth that triggers a full discard on error
}

// QueueStats reports queue counters for monitoring.
type QueueStats struct {
	State          string `json:"state"`
	Depth          int    `json:"depth"`
	InFlight       bool   `json:"in_flight"`
	Enqueued       uint64 `json:"enqueued"`
	Analyzed       uint64 `json:"analyzed"`
	Failed         uint64 `json:"failed"`
	DiscardedSmall uint64 `json:"discarded_small"`
	Flushed        uint64 `json:"flushed"`
}

// Queue is a bounded single-consumer FIFO between the chunk recorder and the
// analysis backend. The one-at-a-time consumption rule is structural: a
// single drain goroutine exists only while the queue is in the draining
// state, so at most one remote call is ever outstanding.
type Queue struct {
	config   QueueConfig
	analyzer Analyzer
	logger   *slog.Logger
	onResult func(*Result)
	onError  func(error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	items    []*capture.Chunk
	state    QueueState
	inFlight bool
	closed   bool

	enqueued       uint64
	analyzed       uint64
	failed         uint64
	discardedSmall uint64
	flushed        uint64
}

// NewQueue creates an analysis queue. onResult receives every successful
// analysis in chunk arrival order; onError receives each failure.
func NewQueue(logger *slog.Logger, analyzer Analyzer, config QueueConfig,
	onResult func(*Result), onError func(error)) *Queue {

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		config:   config,
		analyzer: analyzer,
		logger:   logger,
		onResult: onResult,
		onError:  onError,
		ctx:      ctx,
		cancel:   cancel,
		state:    QueueIdle,
	}
}

// Enqueue appends a chunk to the tail and wakes the consumer if it is idle.
func (q *Queue) Enqueue(chunk *capture.Chunk) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	q.items = append(q.items, chunk)
	q.enqueued++

	if q.state == QueueIdle {
		q.state = QueueDraining
		q.wg.Add(1)
		go q.drain()
	}
	q.mu.Unlock()
}

// Clear discards every queued chunk. Used when a new session begins.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.flushed += uint64(len(q.items))
	q.items = nil
	q.mu.Unlock()
}

// Depth returns the number of chunks waiting (not counting any in flight).
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// GetStats returns a snapshot of queue counters.
func (q *Queue) GetStats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return QueueStats{
		State:          q.state.String(),
		Depth:          len(q.items),
		InFlight:       q.inFlight,
		Enqueued:       q.enqueued,
		Analyzed:       q.analyzed,
		Failed:         q.failed,
		DiscardedSmall: q.discardedSmall,
		Flushed:        q.flushed,
	}
}

// Close stops the consumer and discards queued chunks. An in-flight request
// is cancelled through its context.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
}

// drain is the single consumer loop. It pops heads in FIFO order, applies
// the minimum-size filter, submits to the backend, and spaces consecutive
// calls by the cool-down the backend's rate limit demands. It exits and
// returns the queue to idle once empty.
func (q *Queue) drain() {
	defer q.wg.Done()

	for {
		q.mu.Lock()
		if q.closed || q.ctx.Err() != nil || len(q.items) == 0 {
			q.state = QueueIdle
			q.mu.Unlock()
			return
		}
		chunk := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		if chunk.Size < q.config.MinChunkBytes {
			q.mu.Lock()
			q.discardedSmall++
			q.mu.Unlock()

			q.logger.Debug("Skipping undersized chunk",
				slog.String("session_id", chunk.SessionID),
				slog.Uint64("seq", chunk.Seq),
				slog.Int("size_bytes", chunk.Size),
			)
			q.sleep(q.config.RescheduleDelay)
			continue
		}

		q.mu.Lock()
		q.inFlight = true
		q.mu.Unlock()

		result, err := q.analyzer.AnalyzeChunk(q.ctx, chunk)

		q.mu.Lock()
		q.inFlight = false
		if err != nil {
			q.failed++
			// A deep backlog during sustained failure is stale audio,
			// not data worth retrying late. Discard it wholesale.
			if depth := len(q.items); depth > q.config.FlushThreshold {
				q.flushed += uint64(depth)
				q.items = nil
				q.mu.Unlock()
				q.logger.Warn("Analysis failing with deep backlog, flushing queue",
					slog.Int("discarded", depth),
					slog.String("error", err.Error()),
				)
			} else {
				q.mu.Unlock()
				q.logger.Warn("Analysis failed, continuing",
					slog.String("session_id", chunk.SessionID),
					slog.Uint64("seq", chunk.Seq),
					slog.String("error", err.Error()),
				)
			}
			if q.onError != nil {
				q.onError(err)
			}
		} else {
			q.analyzed++
			q.mu.Unlock()
			if q.onResult != nil {
				q.onResult(result)
			}
		}

		q.sleep(q.config.CoolDown)
	}
}

// sleep waits for d unless the queue is shut down first.
func (q *Queue) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-q.ctx.Done():
	}
}
