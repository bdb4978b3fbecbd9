//go:build (linux && cgo) || windows || darwin

package engine

import (
	"fmt"
	"io"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/hajimehoshi/oto/v2"
)

// oto allows a single context per process, so it outlives Free/Init cycles.
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoErr     error
	otoParams  [3]int
)

func sharedContext(sampleRate, channels, bitDepth int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(sampleRate, channels, bitDepth)
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoContext = ctx
		otoParams = [3]int{sampleRate, channels, bitDepth}
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoParams != [3]int{sampleRate, channels, bitDepth} {
		return nil, fmt.Errorf("oto context already running at %v", otoParams)
	}
	return otoContext, nil
}

// deviceOutput feeds the mixer to an oto player. Read is called from oto's
// goroutine and takes the engine lock for the duration of one buffer.
type deviceOutput struct {
	mu       *sync.Mutex
	source   beep.Streamer
	player   oto.Player
	channels int
	bitDepth int
	frames   [][2]float64
	closed   bool
}

func newDeviceOutput(mu *sync.Mutex, source beep.Streamer, sampleRate, channels, bitDepth int) (*deviceOutput, error) {
	ctx, err := sharedContext(sampleRate, channels, bitDepth)
	if err != nil {
		return nil, err
	}
	if err := ctx.Resume(); err != nil {
		return nil, fmt.Errorf("failed to resume oto context: %w", err)
	}

	out := &deviceOutput{
		mu:       mu,
		source:   source,
		channels: channels,
		bitDepth: bitDepth,
	}
	out.player = ctx.NewPlayer(out)
	out.player.Play()
	return out, nil
}

// Read implements io.Reader for the oto player
func (o *deviceOutput) Read(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0, io.EOF
	}

	size := frameSize(o.channels, o.bitDepth)
	count := len(p) / size
	if count == 0 {
		return 0, nil
	}
	if cap(o.frames) < count {
		o.frames = make([][2]float64, count)
	}
	frames := o.frames[:count]

	n, ok := o.source.Stream(frames)
	if !ok {
		n = 0
	}
	// Silence keeps the device stream alive between songs
	for i := n; i < count; i++ {
		frames[i] = [2]float64{}
	}

	return encodePCM(p, frames, o.channels, o.bitDepth), nil
}

// Close stops the player. The caller must not hold the engine lock.
func (o *deviceOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()

	if err := o.player.Close(); err != nil {
		return err
	}
	if otoContext != nil {
		return otoContext.Suspend()
	}
	return nil
}

var _ io.Reader = (*deviceOutput)(nil)
