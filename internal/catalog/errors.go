package catalog

import "errors"

var (
	// ErrEmptyDomain is returned when a record has no usable domain.
	ErrEmptyDomain = errors.New("record has an empty domain")

	// ErrCorruptDocument is returned by Load when the catalog file exists but
	// is not a valid catalog document.
	ErrCorruptDocument = errors.New("catalog document is corrupt")

	// ErrNoStore is returned by Checkpoint on a catalog without a store.
	ErrNoStore = errors.New("catalog has no store")
)
