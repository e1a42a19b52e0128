package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrNoValidInsights  = errors.New("no valid insights in batch")
	ErrExtractionFailed = errors.New("extraction service failed")
)
