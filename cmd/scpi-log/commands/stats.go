package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/scpi-protocol/scpi-go/pkg/log"
)

// Stats summarizes a transcript.
type Stats struct {
	Total      int
	ByCategory map[log.Category]int
	Sessions   map[string]int
	Paths      map[string]int
	Errors     int
	First      time.Time
	Last       time.Time
}

// CollectStats walks the transcript and accumulates counts.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	stats := &Stats{
		ByCategory: make(map[log.Category]int),
		Sessions:   make(map[string]int),
		Paths:      make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		stats.Total++
		stats.ByCategory[event.Category]++
		if event.SessionID != "" {
			stats.Sessions[event.SessionID]++
		}
		if event.Path != "" {
			stats.Paths[event.Path]++
		}
		if event.Category == log.CategoryError {
			stats.Errors++
		}

		if stats.First.IsZero() || event.Timestamp.Before(stats.First) {
			stats.First = event.Timestamp
		}
		if event.Timestamp.After(stats.Last) {
			stats.Last = event.Timestamp
		}
	}

	return stats, nil
}

// RunStats prints a transcript summary.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Events:    %d\n", stats.Total)
	fmt.Fprintf(w, "Sessions:  %d\n", len(stats.Sessions))
	fmt.Fprintf(w, "Errors:    %d\n", stats.Errors)
	if !stats.First.IsZero() {
		fmt.Fprintf(w, "Span:      %s to %s (%s)\n",
			stats.First.UTC().Format(time.RFC3339),
			stats.Last.UTC().Format(time.RFC3339),
			stats.Last.Sub(stats.First).Round(time.Millisecond))
	}

	fmt.Fprintln(w, "\nBy category:")
	for c := log.CategoryOpen; c <= log.CategoryError; c++ {
		if n := stats.ByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-6s %d\n", c.String(), n)
		}
	}

	if len(stats.Paths) > 0 {
		fmt.Fprintln(w, "\nBusiest parameters:")
		for _, pc := range topPaths(stats.Paths, 10) {
			fmt.Fprintf(w, "  %-30s %d\n", pc.path, pc.count)
		}
	}

	return nil
}

type pathCount struct {
	path  string
	count int
}

// topPaths returns the n most frequently addressed paths.
func topPaths(paths map[string]int, n int) []pathCount {
	counts := make([]pathCount, 0, len(paths))
	for p, c := range paths {
		counts = append(counts, pathCount{p, c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].path < counts[j].path
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
