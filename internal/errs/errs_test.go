package errs

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

var errSentinel = errors.New("sentinel")

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{"with context", New(Validation, "Failed to play song", "Invalid song ID."), "Failed to play song: Invalid song ID."},
		{"without context", New(State, "", "Attribute is read-only."), "Attribute is read-only."},
		{"formatted", Newf(Validation, "Failed to set channel volume", "Value (%d) not between 0 and 100.", 101), "Failed to set channel volume: Value (101) not between 0 and 100."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestWrapMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(State, "ctx", errSentinel, "msg"))

	if !errors.Is(err, errSentinel) {
		t.Error("Expected errors.Is to match the wrapped sentinel")
	}

	kind, ok := KindOf(err)
	if !ok || kind != State {
		t.Errorf("Expected kind state, got %v (ok=%v)", kind, ok)
	}

	if ContextOf(err) != "ctx" {
		t.Errorf("Expected context 'ctx', got %q", ContextOf(err))
	}
}

func TestKindOfPlainError(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("Expected plain errors to have no kind")
	}
}

func TestContextRecord(t *testing.T) {
	var buf bytes.Buffer
	c := NewContext(zerolog.New(&buf))

	if c.Message() != "" {
		t.Errorf("Expected empty message, got %q", c.Message())
	}

	c.Enter("Failed to load song")
	c.Record(New(Validation, "", "Unknown file extension."))

	if got := c.Message(); got != "Failed to load song: Unknown file extension." {
		t.Errorf("Unexpected message %q", got)
	}

	c.Record(New(Engine, "Failed to load module", "Could not open file."))
	if got := c.Message(); got != "Failed to load module: Could not open file." {
		t.Errorf("Unexpected message %q", got)
	}

	if c.Reports() != 2 {
		t.Errorf("Expected 2 reports, got %d", c.Reports())
	}
	if !strings.Contains(buf.String(), "Could not open file.") {
		t.Errorf("Expected report in log output, got %q", buf.String())
	}
}

func TestContextRecordNilKeepsMessage(t *testing.T) {
	c := NewContext(zerolog.Nop())
	c.Record(New(State, "Failed to stop song", "Song may have corrupt ID."))
	c.Record(nil)

	if c.Message() != "Failed to stop song: Song may have corrupt ID." {
		t.Errorf("Expected message to survive a nil record, got %q", c.Message())
	}
}

func TestContextReportingDisabled(t *testing.T) {
	var buf bytes.Buffer
	c := NewContext(zerolog.New(&buf))
	c.SetReporting(false)

	c.Record(New(Validation, "ctx", "msg"))

	if c.Reporting() {
		t.Error("Expected reporting to be disabled")
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no log output, got %q", buf.String())
	}
	if c.Message() != "ctx: msg" {
		t.Errorf("Expected message to be recorded anyway, got %q", c.Message())
	}
}

func TestContextFailures(t *testing.T) {
	c := NewContext(zerolog.Nop())
	c.Record(New(Validation, "ctx", "first"))
	c.SetReporting(false)
	c.Record(New(Validation, "ctx", "second"))
	c.Record(nil)

	if c.Failures() != 2 {
		t.Errorf("Expected 2 failures, got %d", c.Failures())
	}
	if c.Reports() != 1 {
		t.Errorf("Expected 1 report, got %d", c.Reports())
	}
}
