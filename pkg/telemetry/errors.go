package telemetry

import "errors"

var (
	// ErrInvalidActionKind is returned when an interaction uses an
	// unknown action kind; the event is not recorded.
	ErrInvalidActionKind = errors.New("invalid action kind")

	// ErrContentNotFound is returned by read-side lookups for content
	// ids that were never registered.
	ErrContentNotFound = errors.New("content not found")

	// ErrUnknownPeriod is returned for period queries outside
	// hour/day/week.
	ErrUnknownPeriod = errors.New("unknown metrics period")
)
