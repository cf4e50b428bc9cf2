// Package commands implements the scpi-log CLI commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/scpi-protocol/scpi-go/pkg/log"
)

// BuildFilter assembles a transcript filter from flag values.
func BuildFilter(sessionID, direction, category, path, timeStart, timeEnd string) (log.Filter, error) {
	filter := log.Filter{
		SessionID: sessionID,
		Path:      strings.Trim(path, ":"),
	}

	if direction != "" {
		d, err := parseDirection(direction)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Direction = &d
	}
	if category != "" {
		c, err := parseCategory(category)
		if err != nil {
			return log.Filter{}, err
		}
		filter.Category = &c
	}
	if timeStart != "" {
		t, err := time.Parse(time.RFC3339, timeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("bad time-start: %w", err)
		}
		filter.TimeStart = &t
	}
	if timeEnd != "" {
		t, err := time.Parse(time.RFC3339, timeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("bad time-end: %w", err)
		}
		filter.TimeEnd = &t
	}

	return filter, nil
}

// parseDirection maps a flag value to a Direction.
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "out":
		return log.DirectionOut, nil
	case "in":
		return log.DirectionIn, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want in or out)", s)
	}
}

// parseCategory maps a flag value to a Category.
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "open":
		return log.CategoryOpen, nil
	case "close":
		return log.CategoryClose, nil
	case "write":
		return log.CategoryWrite, nil
	case "query":
		return log.CategoryQuery, nil
	case "reply":
		return log.CategoryReply, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("unknown category %q", s)
	}
}

// RunView prints every matching event in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		formatEvent(w, event)
	}
}

// formatEvent writes one event as a single line plus detail lines.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [sess:%s] %-3s %-5s", ts, shortenID(event.SessionID),
		event.Direction.String(), event.Category.String())

	if event.Channel != nil {
		fmt.Fprintf(w, " ch%d", *event.Channel)
	}
	if event.Path != "" {
		fmt.Fprintf(w, " %s", event.Path)
	}
	fmt.Fprintln(w)

	if event.Command != "" {
		fmt.Fprintf(w, "  > %s\n", event.Command)
	}
	if event.Response != "" {
		fmt.Fprintf(w, "  < %s\n", event.Response)
	}
	if event.Error != "" {
		fmt.Fprintf(w, "  ! %s\n", event.Error)
	}
}

// shortenID returns the first 8 characters of a session ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
