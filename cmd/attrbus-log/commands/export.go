package commands

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/attrbus/attrbus-go/pkg/log"
)

// exportRecord is the JSON shape of an exported event.
type exportRecord struct {
	Timestamp time.Time `json:"timestamp"`
	EntityID  string    `json:"cid"`
	ModelID   string    `json:"id,omitempty"`
	Name      string    `json:"event"`
	Category  string    `json:"category"`
	Key       string    `json:"key,omitempty"`
	Value     any       `json:"value,omitempty"`
	Cycle     string    `json:"cycle,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func toRecord(ev log.Event) exportRecord {
	rec := exportRecord{
		Timestamp: ev.Timestamp,
		EntityID:  ev.EntityID,
		ModelID:   ev.ModelID,
		Name:      ev.Name,
		Category:  ev.Category.String(),
		Key:       ev.Key,
		Value:     ev.Value,
		Cycle:     ev.Cycle,
	}
	if ev.Error != nil {
		rec.Error = ev.Error.Message
	}
	return rec
}

// RunExport writes the matching events as jsonl or csv to output, or to
// stdout when output is empty.
func RunExport(path, format, output string, filter log.Filter) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		return exportCSV(reader, w)
	}
	return exportJSONL(reader, w)
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(toRecord(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)

	header := []string{"timestamp", "cid", "id", "event", "category", "key", "value", "cycle", "error"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		rec := toRecord(event)
		value := ""
		if rec.Key != "" {
			value = formatValue(rec.Value)
		}
		row := []string{
			rec.Timestamp.UTC().Format(time.RFC3339Nano),
			rec.EntityID,
			rec.ModelID,
			rec.Name,
			rec.Category,
			rec.Key,
			value,
			rec.Cycle,
			rec.Error,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
