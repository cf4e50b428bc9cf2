package commands

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/scpi-protocol/scpi-go/pkg/log"
)

// exportEvent is the JSON shape of one transcript event.
type exportEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	SessionID  string    `json:"session_id"`
	Direction  string    `json:"direction"`
	Category   string    `json:"category"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	Command    string    `json:"command,omitempty"`
	Response   string    `json:"response,omitempty"`
	Path       string    `json:"path,omitempty"`
	Channel    *int      `json:"channel,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// RunExport converts a transcript to JSONL or CSV.
func RunExport(path, format, output string) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format %q (want jsonl or csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	enc := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := enc.Encode(toExportEvent(event)); err != nil {
			return err
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "session_id", "direction", "category",
		"remote_addr", "command", "response", "path", "channel", "error"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		channel := ""
		if event.Channel != nil {
			channel = strconv.Itoa(*event.Channel)
		}
		record := []string{
			event.Timestamp.UTC().Format(time.RFC3339Nano),
			event.SessionID,
			event.Direction.String(),
			event.Category.String(),
			event.RemoteAddr,
			event.Command,
			event.Response,
			event.Path,
			channel,
			event.Error,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
}

func toExportEvent(event log.Event) exportEvent {
	return exportEvent{
		Timestamp:  event.Timestamp,
		SessionID:  event.SessionID,
		Direction:  event.Direction.String(),
		Category:   event.Category.String(),
		RemoteAddr: event.RemoteAddr,
		Command:    event.Command,
		Response:   event.Response,
		Path:       event.Path,
		Channel:    event.Channel,
		Error:      event.Error,
	}
}
