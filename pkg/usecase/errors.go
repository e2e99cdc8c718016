package usecase

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrJobTitleCacheMiss means a roster record names a label that job title
	// reconciliation could not resolve in the same pass
	ErrJobTitleCacheMiss = goerr.New("job title not found in cache")
)

// Context keys for error values
const (
	LabelKey      = "label"
	ExternalIDKey = "external_id"
)
