//go:build !((linux && cgo) || windows || darwin)

package engine

// AudioAvailable reports whether this build can produce sound.
const AudioAvailable = false

// Beep stands in for the audio engine on builds without device output.
// It never initializes, so every load fails cleanly.
type Beep struct {
	*Memory
}

// NewBeep creates the stand-in engine
func NewBeep() *Beep {
	return &Beep{Memory: NewMemory()}
}

// Init always fails with a driver error
func (e *Beep) Init(opts InitOptions) error {
	return newError("Init", CodeDriver, nil)
}

var _ Engine = (*Beep)(nil)
