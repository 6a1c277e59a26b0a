package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxmood/emotion-audio-service/internal/audio"
)

// State represents the recorder's position in the chunk-boundary cycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateFlushing:
		return "flushing"
	default:
		return "idle"
	}
}

var (
	// ErrAlreadyRecording is returned when Start is called on a running recorder.
	ErrAlreadyRecording = errors.New("recorder is already running")
	// ErrNotRecording is returned when Stop is called on an idle recorder.
	ErrNotRecording = errors.New("recorder is not running")
)

// Chunk is one fixed-interval span of captured audio, encoded as a WAV
// container. Immutable once emitted.
type Chunk struct {
	SessionID  string        `json:"session_id"`
	Seq        uint64        `json:"seq"`
	Data       []byte        `json:"-"`
	Size       int           `json:"size_bytes"`
	Duration   time.Duration `json:"duration"`
	RecordedAt time.Time     `json:"recorded_at"`
	SampleRate int           `json:"sample_rate"`
}

// Config contains chunk recorder configuration.
type Config struct {
	ChunkInterval time.Duration // interval between chunk boundaries
	SettleDelay   time.Duration // pause between device stop and restart
	MinChunkBytes int           // chunks below this are startup noise, dropped
	SampleRate    int           // target encode rate
}

// DeviceFactory opens a capture device delivering samples to the callback.
// It is invoked once per session start so device-acquisition failures are
// reported synchronously to the caller.
type DeviceFactory func(onSamples func([]float32)) (Device, error)

// Stats reports recorder counters for monitoring.
type Stats struct {
	State           string `json:"state"`
	ChunksEmitted   uint64 `json:"chunks_emitted"`
	ChunksDiscarded uint64 `json:"chunks_discarded"`
	EncodeFailures  uint64 `json:"encode_failures"`
	SamplesCaptured uint64 `json:"samples_captured"`
}

// Recorder owns the capture device for a session and emits one encoded chunk
// per interval by cycling the device through an explicit
// Recording -> Flushing -> Recording state machine.
type Recorder struct {
	config    Config
	logger    *slog.Logger
	newDevice DeviceFactory
	onChunk   func(*Chunk)
	onStopped func(error) // mid-session device loss, nil on clean stop

	mu        sync.Mutex
	state     State
	device    Device
	sessionID string
	seq       uint64
	samples   []float32

	chunksEmitted   uint64
	chunksDiscarded uint64
	encodeFailures  uint64
	samplesCaptured uint64

	stopChan chan struct{}
	stopOnce *sync.Once
	wg       sync.WaitGroup
}

// NewRecorder creates a chunk recorder. onChunk receives every chunk that
// passes the minimum-size filter; onStopped is called when recording ends,
// with a non-nil error on unexpected device loss.
func NewRecorder(logger *slog.Logger, factory DeviceFactory, config Config,
	onChunk func(*Chunk), onStopped func(error)) *Recorder {

	if config.SampleRate <= 0 {
		config.SampleRate = audio.TargetSampleRate
	}

	return &Recorder{
		config:    config,
		logger:    logger,
		newDevice: factory,
		onChunk:   onChunk,
		onStopped: onStopped,
		state:     StateIdle,
	}
}

// Start acquires the capture device and begins the chunk-boundary cycle.
// Device-acquisition failure is returned synchronously and the recorder
// stays idle.
func (r *Recorder) Start(sessionID string) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.state = StateRecording
	r.sessionID = sessionID
	r.seq = 0
	r.samples = nil
	r.stopChan = make(chan struct{})
	r.stopOnce = new(sync.Once)
	stopChan := r.stopChan
	r.mu.Unlock()

	// The device may deliver samples from inside Start, so it must not be
	// started while holding the recorder lock.
	device, err := r.newDevice(r.appendSamples)
	if err != nil {
		r.resetIdle()
		return fmt.Errorf("failed to acquire capture device: %w", err)
	}

	r.mu.Lock()
	r.device = device
	r.mu.Unlock()

	if err := device.Start(); err != nil {
		_ = device.Close()
		r.resetIdle()
		return fmt.Errorf("failed to start capture: %w", err)
	}

	r.wg.Add(1)
	go r.boundaryLoop(stopChan)

	r.logger.Info("Recording started",
		slog.String("session_id", sessionID),
		slog.Int("device_sample_rate", device.SampleRate()),
		slog.Duration("chunk_interval", r.config.ChunkInterval),
	)

	return nil
}

// Stop ends the session, flushes the final partial chunk, and releases the
// device.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.state == StateIdle {
		r.mu.Unlock()
		return ErrNotRecording
	}
	stopChan := r.stopChan
	stopOnce := r.stopOnce
	r.mu.Unlock()

	stopOnce.Do(func() { close(stopChan) })
	r.wg.Wait()

	return nil
}

// GetStats returns a snapshot of recorder counters.
func (r *Recorder) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		State:           r.state.String(),
		ChunksEmitted:   r.chunksEmitted,
		ChunksDiscarded: r.chunksDiscarded,
		EncodeFailures:  r.encodeFailures,
		SamplesCaptured: r.samplesCaptured,
	}
}

// resetIdle rolls the recorder back to idle after a failed start.
func (r *Recorder) resetIdle() {
	r.mu.Lock()
	r.state = StateIdle
	r.device = nil
	r.samples = nil
	r.mu.Unlock()
}

// appendSamples runs on the device callback path. It must only accumulate.
func (r *Recorder) appendSamples(samples []float32) {
	r.mu.Lock()
	if r.state == StateRecording || r.state == StateFlushing {
		r.samples = append(r.samples, samples...)
		r.samplesCaptured += uint64(len(samples))
	}
	r.mu.Unlock()
}

// boundaryLoop drives the interval timer that fabricates fixed-length chunks
// from the continuous capture stream.
func (r *Recorder) boundaryLoop(stopChan chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.ChunkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.rotate(); err != nil {
				r.logger.Error("Device lost mid-session",
					slog.String("session_id", r.sessionID),
					slog.String("error", err.Error()),
				)
				r.teardown()
				if r.onStopped != nil {
					r.onStopped(err)
				}
				return
			}

		case <-stopChan:
			r.finalFlush()
			r.teardown()
			if r.onStopped != nil {
				r.onStopped(nil)
			}
			return
		}
	}
}

// rotate executes one chunk boundary: stop the device to flush buffered
// frames, emit the accumulated audio as a chunk, then restart capture after
// a short settle delay so no audio is dropped at the seam.
func (r *Recorder) rotate() error {
	r.mu.Lock()
	r.state = StateFlushing
	device := r.device
	r.mu.Unlock()

	if err := device.Stop(); err != nil {
		return fmt.Errorf("chunk boundary stop failed: %w", err)
	}

	r.emitAccumulated()

	time.Sleep(r.config.SettleDelay)

	if err := device.Start(); err != nil {
		return fmt.Errorf("chunk boundary restart failed: %w", err)
	}

	r.mu.Lock()
	r.state = StateRecording
	r.mu.Unlock()

	return nil
}

// finalFlush stops the device and emits whatever was collected since the
// last boundary.
func (r *Recorder) finalFlush() {
	r.mu.Lock()
	device := r.device
	r.mu.Unlock()

	if err := device.Stop(); err != nil {
		r.logger.Warn("Final device stop failed", slog.String("error", err.Error()))
	}
	r.emitAccumulated()
}

// emitAccumulated converts the sample buffer collected since the previous
// boundary into one encoded chunk. Encode failures drop the chunk and keep
// the session alive; the source audio for that interval is unrecoverable.
func (r *Recorder) emitAccumulated() {
	r.mu.Lock()
	raw := r.samples
	r.samples = nil
	sessionID := r.sessionID
	deviceRate := r.device.SampleRate()
	r.mu.Unlock()

	if len(raw) == 0 {
		return
	}

	resampled := audio.Resample(raw, deviceRate, r.config.SampleRate)
	pcm := audio.Quantize(resampled)

	data, err := audio.EncodeWAV(pcm, r.config.SampleRate)
	if err != nil {
		r.mu.Lock()
		r.encodeFailures++
		r.mu.Unlock()
		r.logger.Warn("Dropping chunk: encode failed",
			slog.String("session_id", sessionID),
			slog.Int("samples", len(pcm)),
			slog.String("error", err.Error()),
		)
		return
	}

	if len(data) < r.config.MinChunkBytes {
		r.mu.Lock()
		r.chunksDiscarded++
		r.mu.Unlock()
		r.logger.Debug("Discarding undersized chunk",
			slog.String("session_id", sessionID),
			slog.Int("size_bytes", len(data)),
			slog.Int("min_bytes", r.config.MinChunkBytes),
		)
		return
	}

	r.mu.Lock()
	r.seq++
	seq := r.seq
	r.chunksEmitted++
	r.mu.Unlock()

	chunk := &Chunk{
		SessionID:  sessionID,
		Seq:        seq,
		Data:       data,
		Size:       len(data),
		Duration:   time.Duration(len(pcm)) * time.Second / time.Duration(r.config.SampleRate),
		RecordedAt: time.Now(),
		SampleRate: r.config.SampleRate,
	}

	r.logger.Debug("Chunk emitted",
		slog.String("session_id", sessionID),
		slog.Uint64("seq", seq),
		slog.Int("size_bytes", chunk.Size),
		slog.Duration("duration", chunk.Duration),
	)

	if r.onChunk != nil {
		r.onChunk(chunk)
	}
}

// teardown releases the device and returns the recorder to idle.
func (r *Recorder) teardown() {
	r.mu.Lock()
	device := r.device
	r.device = nil
	r.state = StateIdle
	r.samples = nil
	r.mu.Unlock()

	if device != nil {
		if err := device.Close(); err != nil {
			r.logger.Warn("Device close failed", slog.String("error", err.Error()))
		}
	}
}
