package model

import "errors"

// Model errors.
var (
	// ErrValidation is returned by Save and Fetch when the validation gate
	// vetoes the resulting attributes.
	ErrValidation = errors.New("model validation failed")

	// ErrMissingURL is returned when neither a URL func nor a URL root is
	// configured.
	ErrMissingURL = errors.New("a url or url root must be specified")

	// ErrNoSyncer is returned by persistence operations on a model without a Syncer.
	ErrNoSyncer = errors.New("model has no syncer")
)
