package log

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
)

// captureLogger records events for assertions.
type captureLogger struct {
	events []Event
}

func (c *captureLogger) Log(event Event) {
	c.events = append(c.events, event)
}

func TestMultiLogger(t *testing.T) {
	a := &captureLogger{}
	b := &captureLogger{}
	m := NewMultiLogger(a, b, NoopLogger{})

	m.Log(Event{SessionID: "s1", Category: CategoryWrite})
	m.Log(Event{SessionID: "s1", Category: CategoryQuery})

	if len(a.events) != 2 || len(b.events) != 2 {
		t.Errorf("loggers received %d/%d events, want 2/2", len(a.events), len(b.events))
	}
	if a.events[1].Category != CategoryQuery {
		t.Errorf("second event category = %v, want QUERY", a.events[1].Category)
	}
}

// TestMultiLoggerFeedsTranscript covers the simulator's logger chain:
// one fan-out serving a live sink and the CBOR transcript file.
func TestMultiLoggerFeedsTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traffic.cborlog")
	fl, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	live := &captureLogger{}
	m := NewMultiLogger(live, fl)
	m.Log(Event{SessionID: "s1", Category: CategoryWrite, Command: ":TRIG:LEVEL 0.5"})
	m.Log(Event{SessionID: "s1", Category: CategoryReply, Response: "0.5"})
	if err := fl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(live.events) != 2 {
		t.Fatalf("live sink received %d events, want 2", len(live.events))
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if event.SessionID != "s1" {
			t.Errorf("event session = %q, want s1", event.SessionID)
		}
		count++
	}
	if count != 2 {
		t.Errorf("transcript holds %d events, want 2", count)
	}
}
