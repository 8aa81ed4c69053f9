package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, caches and the catalog
// loader return these (optionally wrapped) so services can translate them into
// domain errors:
//   - ErrNotFound: record does not exist in the store or cache
//   - ErrConflict: record with the same key already stored
//   - ErrInvalidState: component used before it was ready (e.g. no catalog snapshot)
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
