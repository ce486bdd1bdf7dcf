package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/attrbus/attrbus-go/pkg/log"
)

// RunFilter copies the matching events of a trace file into output and
// returns how many were copied.
func RunFilter(path, output string, filter log.Filter) (int, error) {
	if output == "" {
		return 0, errors.New("output file required")
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := log.NewFileLogger(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return logger.Written(), fmt.Errorf("failed to read event: %w", err)
		}
		logger.Log(event)
	}

	if err := logger.Err(); err != nil {
		return logger.Written(), fmt.Errorf("failed to write event: %w", err)
	}
	return logger.Written(), nil
}
