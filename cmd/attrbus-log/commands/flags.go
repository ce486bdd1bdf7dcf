package commands

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/attrbus/attrbus-go/pkg/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FilterOptions holds the raw filter flags shared by the commands.
type FilterOptions struct {
	EntityID   string
	ModelID    string
	Name       string
	Key        string
	Category   string
	TimeStart  string
	TimeEnd    string
	ErrorsOnly bool
}

// BuildFilter converts flag values into a log.Filter.
func BuildFilter(opts FilterOptions) (log.Filter, error) {
	filter := log.Filter{
		EntityID:   opts.EntityID,
		ModelID:    opts.ModelID,
		Name:       opts.Name,
		Key:        opts.Key,
		ErrorsOnly: opts.ErrorsOnly,
	}

	if opts.Category != "" {
		c, ok := log.ParseCategory(opts.Category)
		if !ok {
			return log.Filter{}, fmt.Errorf("invalid category: %s (use attribute, bulk, invalid, lifecycle, sync, error, other)", opts.Category)
		}
		filter.Category = &c
	}
	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return log.Filter{}, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}
