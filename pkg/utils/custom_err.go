package utils

import "errors"

var (
	ErrInvalidPage     = errors.New("invalid page parameter")
	ErrInvalidPageSize = errors.New("invalid page size parameter")
	ErrDatabaseError   = errors.New("database error")

	ErrPartnerPlaceNotFound = errors.New("partner place not found")

	// ErrValidation rejects a request before any store is touched.
	ErrValidation = errors.New("validation error")

	// ErrIndexUnavailable means the vector index (or the embedding provider feeding it)
	// could not be reached. It is not the same as "no matches".
	ErrIndexUnavailable = errors.New("vector index unavailable")

	ErrEnrichmentFailed = errors.New("enrichment failed")
	ErrSyncFailed       = errors.New("sync failed")
	ErrSyncInProgress   = errors.New("sync batch already running")

	// ErrServiceUnavailable is only returned when neither the index nor the places gateway
	// produced anything for a search.
	ErrServiceUnavailable = errors.New("search service unavailable")

	ErrUnexpectedBehaviorOfAI = errors.New("embedding provider returned an unexpected response")
)
