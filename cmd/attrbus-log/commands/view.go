// Package commands implements the attrbus-log CLI commands.
package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/attrbus/attrbus-go/pkg/log"
)

// RunView prints the matching events of a trace file in human-readable form.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes one event:
//
//	2026-01-28T10:15:32.123456Z [cid:abc12345] ATTRIBUTE changed:title
//	  Value: "milk"
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [cid:%s] %-9s %s\n", ts, shortenID(event.EntityID), event.Category, event.Name)

	if event.ModelID != "" {
		fmt.Fprintf(w, "  ID: %s\n", event.ModelID)
	}
	if event.Key != "" {
		fmt.Fprintf(w, "  Value: %s\n", formatValue(event.Value))
	}
	if event.Cycle != "" && event.Cycle != "IDLE" {
		fmt.Fprintf(w, "  Cycle: %s\n", event.Cycle)
	}
	if event.Error != nil {
		fmt.Fprintf(w, "  Error: %s\n", event.Error.Message)
	}
	fmt.Fprintln(w)
}

// shortenID returns the first 8 characters of an id.
func shortenID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatValue renders a value compactly as JSON, falling back to %v.
func formatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := string(data)
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return strings.TrimSpace(s)
}
