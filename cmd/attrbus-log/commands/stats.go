package commands

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/attrbus/attrbus-go/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[log.Category]int
	Entities         map[string]*EntityStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// EntityStats holds statistics for a single model.
type EntityStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	ModelID   string
	Cycles    int
	KeyCounts map[string]int
}

// CollectStats reads a trace file and aggregates it.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[log.Category]int),
		Entities:         make(map[string]*EntityStats),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		ent, ok := stats.Entities[event.EntityID]
		if !ok {
			ent = &EntityStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
				KeyCounts: make(map[string]int),
			}
			stats.Entities[event.EntityID] = ent
		}
		ent.Events++
		if event.Timestamp.After(ent.LastSeen) {
			ent.LastSeen = event.Timestamp
		}
		if event.ModelID != "" {
			ent.ModelID = event.ModelID
		}
		if event.Key != "" {
			ent.KeyCounts[event.Key]++
		}
		if event.Category == log.CategoryBulk {
			ent.Cycles++
		}
		if event.Error != nil {
			stats.Errors++
		}
	}
}

// RunStats prints statistics about a trace file.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Model Event Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	cats := make([]log.Category, 0, len(stats.EventsByCategory))
	for cat := range stats.EventsByCategory {
		cats = append(cats, cat)
	}
	slices.Sort(cats)
	for _, cat := range cats {
		fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", stats.EventsByCategory[cat])
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Models: %d\n", len(stats.Entities))
	ids := make([]string, 0, len(stats.Entities))
	for id := range stats.Entities {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b string) int {
		return stats.Entities[a].FirstSeen.Compare(stats.Entities[b].FirstSeen)
	})
	for _, id := range ids {
		ent := stats.Entities[id]
		fmt.Fprintf(w, "  [%s] %d events, %d cycles\n", shortenID(id), ent.Events, ent.Cycles)
		if ent.ModelID != "" {
			fmt.Fprintf(w, "           ID: %s\n", ent.ModelID)
		}
		keys := make([]string, 0, len(ent.KeyCounts))
		for key := range ent.KeyCounts {
			keys = append(keys, key)
		}
		slices.Sort(keys)
		for _, key := range keys {
			fmt.Fprintf(w, "           %s: %d changes\n", key, ent.KeyCounts[key])
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
