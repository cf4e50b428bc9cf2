package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/scpi-protocol/scpi-go/pkg/log"
)

// RunFilter copies matching events from one transcript into another.
func RunFilter(path, output string, filter log.Filter) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer reader.Close()

	writer, err := log.NewFileLogger(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	defer writer.Close()

	count := 0
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		writer.Log(event)
		count++
	}

	fmt.Printf("Wrote %d events to %s\n", count, output)
	return nil
}
