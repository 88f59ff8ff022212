// Package device implements an [audio.Source] backed by the operating
// system's default capture APIs (ALSA/PulseAudio, CoreAudio, WASAPI) via the
// miniaudio bindings.
package device

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/polyvox/polyvox/pkg/audio"
)

// frameChanSize bounds frames queued between the device callback and the
// consumer. The callback never blocks; frames beyond this are dropped and
// reported via Frame.Status on the next delivered frame.
const frameChanSize = 64

// Source opens OS capture devices. The zero value is ready to use.
type Source struct {
	mu   sync.Mutex
	mctx *malgo.AllocatedContext
}

var _ audio.Source = (*Source)(nil)

// Open starts capturing mono float32 PCM at cfg.SampleRate from the default
// input device. cfg.Device is currently informational only; device selection
// follows the OS default.
func (s *Source) Open(ctx context.Context, cfg audio.StreamConfig) (audio.Stream, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("device: invalid sample rate %d", cfg.SampleRate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mctx == nil {
		mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return nil, fmt.Errorf("device: init audio context: %w", err)
		}
		s.mctx = mctx
	}

	st := &stream{
		frames: make(chan audio.Frame, frameChanSize),
		rate:   cfg.SampleRate,
		name:   "default input",
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = 1
	devCfg.SampleRate = uint32(cfg.SampleRate)

	dev, err := malgo.InitDevice(s.mctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: st.onData,
	})
	if err != nil {
		return nil, fmt.Errorf("device: open capture device: %w", err)
	}
	st.dev = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("device: start capture: %w", err)
	}

	if err := ctx.Err(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

type stream struct {
	frames chan audio.Frame
	rate   int
	name   string

	dev *malgo.Device

	mu      sync.Mutex
	closed  bool
	dropped int
}

var _ audio.Stream = (*stream)(nil)

// onData runs on the miniaudio capture thread. It must not block, so a full
// frame channel drops the batch and flags the loss on the next frame through.
func (st *stream) onData(_, input []byte, frameCount uint32) {
	if frameCount == 0 {
		return
	}
	samples := decodeF32(input, int(frameCount))

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}
	frame := audio.Frame{
		Samples:    samples,
		SampleRate: st.rate,
		Timestamp:  time.Now(),
	}
	if st.dropped > 0 {
		frame.Status = fmt.Sprintf("input overflow: %d frames dropped", st.dropped)
	}
	select {
	case st.frames <- frame:
		st.dropped = 0
	default:
		st.dropped++
	}
	st.mu.Unlock()
}

func (st *stream) Frames() <-chan audio.Frame { return st.frames }

func (st *stream) Device() string { return st.name }

func (st *stream) Close() error {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return nil
	}
	st.closed = true
	st.mu.Unlock()

	st.dev.Uninit()
	close(st.frames)
	return nil
}

// decodeF32 reinterprets little-endian float32 PCM bytes as samples.
func decodeF32(data []byte, frameCount int) []float32 {
	n := min(frameCount, len(data)/4)
	out := make([]float32, n)
	for i := range n {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}
