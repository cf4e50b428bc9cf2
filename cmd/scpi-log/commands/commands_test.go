package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/scpi-protocol/scpi-go/pkg/log"
)

// writeTestTranscript builds a small transcript file and returns its path.
func writeTestTranscript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.cborlog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base, SessionID: "sess-a", Direction: log.DirectionOut,
			Category: log.CategoryWrite, Command: ":TRIG:LEVEL 0.5", Path: "TRIG:LEVEL"},
		{Timestamp: base.Add(time.Second), SessionID: "sess-a", Direction: log.DirectionOut,
			Category: log.CategoryQuery, Command: ":TRIG:LEVEL?", Path: "TRIG:LEVEL"},
		{Timestamp: base.Add(2 * time.Second), SessionID: "sess-a", Direction: log.DirectionIn,
			Category: log.CategoryReply, Command: ":TRIG:LEVEL?", Response: "0.5", Path: "TRIG:LEVEL"},
		{Timestamp: base.Add(3 * time.Second), SessionID: "sess-b", Direction: log.DirectionOut,
			Category: log.CategoryError, Command: ":NO:SUCH?", Path: "NO:SUCH", Error: "timeout"},
	}
	for _, e := range events {
		logger.Log(e)
	}
	return path
}

func TestRunView(t *testing.T) {
	path := writeTestTranscript(t)

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"WRITE", "QUERY", "REPLY", "ERROR", "> :TRIG:LEVEL 0.5", "< 0.5", "! timeout"} {
		if !strings.Contains(out, want) {
			t.Errorf("view output missing %q:\n%s", want, out)
		}
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := writeTestTranscript(t)

	filter, err := BuildFilter("", "", "error", "", "", "")
	if err != nil {
		t.Fatalf("BuildFilter failed: %v", err)
	}

	var buf bytes.Buffer
	if err := RunView(path, filter, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "ERROR") {
		t.Errorf("filtered view missing error event:\n%s", out)
	}
	if strings.Contains(out, "REPLY") {
		t.Errorf("filtered view leaked reply event:\n%s", out)
	}
}

func TestBuildFilterRejectsBadFlags(t *testing.T) {
	if _, err := BuildFilter("", "sideways", "", "", "", ""); err == nil {
		t.Error("bad direction accepted")
	}
	if _, err := BuildFilter("", "", "noise", "", "", ""); err == nil {
		t.Error("bad category accepted")
	}
	if _, err := BuildFilter("", "", "", "", "not-a-time", ""); err == nil {
		t.Error("bad time-start accepted")
	}
}

func TestRunFilter(t *testing.T) {
	path := writeTestTranscript(t)
	out := filepath.Join(t.TempDir(), "filtered.cborlog")

	filter, err := BuildFilter("sess-a", "", "", "", "", "")
	if err != nil {
		t.Fatalf("BuildFilter failed: %v", err)
	}
	if err := RunFilter(path, out, filter); err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	stats, err := CollectStats(out)
	if err != nil {
		t.Fatalf("reading filtered transcript: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("filtered events = %d, want 3", stats.Total)
	}
	if len(stats.Sessions) != 1 {
		t.Errorf("filtered sessions = %d, want 1", len(stats.Sessions))
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := writeTestTranscript(t)
	out := filepath.Join(t.TempDir(), "events.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := readLines(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 4 {
		t.Fatalf("exported %d lines, want 4", len(data))
	}

	var first exportEvent
	if err := json.Unmarshal([]byte(data[0]), &first); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if first.Category != "WRITE" || first.Path != "TRIG:LEVEL" {
		t.Errorf("first event = %+v, want WRITE on TRIG:LEVEL", first)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := writeTestTranscript(t)
	out := filepath.Join(t.TempDir(), "events.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	lines, err := readLines(out)
	if err != nil {
		t.Fatal(err)
	}
	// Header plus four events.
	if len(lines) != 5 {
		t.Errorf("csv has %d lines, want 5", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,session_id,direction") {
		t.Errorf("csv header = %q", lines[0])
	}
}

func TestRunExportUnknownFormat(t *testing.T) {
	path := writeTestTranscript(t)
	if err := RunExport(path, "xml", ""); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestCollectStats(t *testing.T) {
	path := writeTestTranscript(t)

	stats, err := CollectStats(path)
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if len(stats.Sessions) != 2 {
		t.Errorf("Sessions = %d, want 2", len(stats.Sessions))
	}
	if stats.Paths["TRIG:LEVEL"] != 3 {
		t.Errorf("TRIG:LEVEL count = %d, want 3", stats.Paths["TRIG:LEVEL"])
	}
	if got := stats.Last.Sub(stats.First); got != 3*time.Second {
		t.Errorf("span = %s, want 3s", got)
	}
}

// readLines reads a file and splits it into non-empty lines.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
