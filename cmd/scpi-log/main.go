// Command scpi-log is a tool for viewing and analyzing instrument
// transcript files.
//
// Transcript files are created by the configuration engine and the
// instrument server when a transcript logger is attached (for example
// scpi-shell's -transcript flag).
//
// Usage:
//
//	scpi-log <command> [flags] <file.cborlog>
//
// Commands:
//
//	view     View transcript in human-readable format
//	export   Export transcript to JSONL or CSV format
//	filter   Filter transcript and write to new file
//	stats    Show statistics about the transcript
//
// Examples:
//
//	# View all events
//	scpi-log view run1.cborlog
//
//	# View only failed commands
//	scpi-log view --category error run1.cborlog
//
//	# View everything sent to one parameter
//	scpi-log filter --path TRIG:LEVEL -o trig.cborlog run1.cborlog
//
//	# Export to JSONL
//	scpi-log export --format jsonl run1.cborlog
//
//	# Show statistics
//	scpi-log stats run1.cborlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/scpi-protocol/scpi-go/cmd/scpi-log/commands"
)

const usage = `scpi-log - Instrument Transcript Analyzer

Usage:
  scpi-log <command> [flags] <file.cborlog>

Commands:
  view     View transcript in human-readable format
  export   Export transcript to JSONL or CSV format
  filter   Filter transcript and write to new file
  stats    Show statistics about the transcript

Use "scpi-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `scpi-log view - View transcript in human-readable format

Usage:
  scpi-log view [flags] <file.cborlog>

Flags:
`)
		fs.PrintDefaults()
	}

	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (open, close, write, query, reply, error)")
	path := fs.String("path", "", "Filter by configuration path")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: transcript file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := commands.BuildFilter("", *direction, *category, *path, "", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := commands.RunView(fs.Arg(0), filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `scpi-log export - Export transcript to JSONL or CSV format

Usage:
  scpi-log export [flags] <file.cborlog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: transcript file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunExport(fs.Arg(0), *format, *output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `scpi-log filter - Filter transcript and write to new file

Usage:
  scpi-log filter [flags] <file.cborlog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	sessionID := fs.String("session", "", "Filter by session ID")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (open, close, write, query, reply, error)")
	path := fs.String("path", "", "Filter by configuration path")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: transcript file path required")
		fs.Usage()
		os.Exit(1)
	}
	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	filter, err := commands.BuildFilter(*sessionID, *direction, *category, *path, *timeStart, *timeEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := commands.RunFilter(fs.Arg(0), *output, filter); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `scpi-log stats - Show statistics about the transcript

Usage:
  scpi-log stats <file.cborlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: transcript file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := commands.RunStats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
