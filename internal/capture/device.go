package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

// Device abstracts a mono float32 capture source so the recorder can be
// tested without real hardware. Start begins delivering samples to the
// callback passed to the constructor; Stop halts delivery and flushes any
// frames still buffered by the device before returning.
type Device interface {
	Start() error
	Stop() error
	SampleRate() int
	Close() error
}

// MalgoDevice captures microphone audio through the miniaudio bindings.
type MalgoDevice struct {
	ctx       *malgo.AllocatedContext
	device    *malgo.Device
	rate      int
	running   atomic.Bool
	onSamples func([]float32)
}

// NewMalgoDevice opens the default capture device requesting mono float32 at
// the given sample rate. The device may negotiate a different native rate;
// SampleRate reports the actual one. Acquisition failure is returned
// synchronously so the caller can refuse to start a session.
func NewMalgoDevice(sampleRate int, onSamples func([]float32)) (*MalgoDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	d := &MalgoDevice{
		ctx:       ctx,
		onSamples: onSamples,
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			if !d.running.Load() || d.onSamples == nil {
				return
			}
			d.onSamples(bytesToFloat32(input))
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to open capture device: %w", err)
	}

	d.device = device
	d.rate = int(device.SampleRate())

	return d, nil
}

// Start begins capture. Samples flow to the constructor callback until Stop.
func (d *MalgoDevice) Start() error {
	d.running.Store(true)
	if err := d.device.Start(); err != nil {
		d.running.Store(false)
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

// Stop halts capture. miniaudio drains pending callback frames before the
// device transitions to stopped, so all captured audio has been delivered
// when Stop returns.
func (d *MalgoDevice) Stop() error {
	d.running.Store(false)
	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

// SampleRate returns the native rate the device actually captures at.
func (d *MalgoDevice) SampleRate() int {
	return d.rate
}

// Close releases the device and its audio context.
func (d *MalgoDevice) Close() error {
	d.running.Store(false)
	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.ctx != nil {
		err := d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
		if err != nil {
			return fmt.Errorf("failed to release audio context: %w", err)
		}
	}
	return nil
}

// bytesToFloat32 reinterprets a little-endian float32 byte buffer from the
// audio callback as samples.
func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}
