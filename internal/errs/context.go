package errs

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// Context holds the last failure recorded by the call surface
type Context struct {
	mu       sync.Mutex
	label    string
	msg      string
	report   bool
	reports  int
	failures int
	logger   zerolog.Logger
}

// NewContext creates an error context with reporting enabled
func NewContext(logger zerolog.Logger) *Context {
	return &Context{
		report: true,
		logger: logger.With().Str("component", "errors").Logger(),
	}
}

// Enter sets the operation label used for failures that carry no label of
// their own.
func (c *Context) Enter(label string) {
	c.mu.Lock()
	c.label = label
	c.mu.Unlock()
}

// Label returns the current operation label
func (c *Context) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.label
}

// Record stores err as the last failure and reports it when enabled.
// A nil err is ignored; successful calls never clear the last message.
func (c *Context) Record(err error) {
	if err == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	label := ContextOf(err)
	msg := err.Error()
	var e *Error
	if errors.As(err, &e) {
		msg = e.Msg
	}
	if label != "" {
		c.label = label
	}
	c.msg = msg
	c.failures++

	if !c.report {
		return
	}
	c.reports++
	kind, _ := KindOf(err)
	c.logger.Error().
		Str("context", c.label).
		Str("kind", kind.String()).
		Msg(msg)
}

// Message returns "<context>: <message>" for the last failure, or "" if
// nothing has failed yet.
func (c *Context) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.msg == "" {
		return ""
	}
	if c.label == "" {
		return c.msg
	}
	return c.label + ": " + c.msg
}

// Reset clears the label and last message
func (c *Context) Reset() {
	c.mu.Lock()
	c.label = ""
	c.msg = ""
	c.mu.Unlock()
}

// SetReporting turns logging of recorded failures on or off
func (c *Context) SetReporting(enabled bool) {
	c.mu.Lock()
	c.report = enabled
	c.mu.Unlock()
}

// Reporting reports whether recorded failures are logged
func (c *Context) Reporting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

// Reports returns how many failures have been logged
func (c *Context) Reports() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reports
}

// Failures returns how many failures have been recorded, reported or not
func (c *Context) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}
