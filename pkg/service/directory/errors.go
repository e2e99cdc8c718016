package directory

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
)

// Failure kinds of FetchRoster. Every error returned by the client wraps one of these.
var (
	ErrInvalidHeader  = goerr.New("invalid request header value")
	ErrRequestFailed  = goerr.New("failed to send directory request")
	ErrInvalidStatus  = goerr.New("unexpected directory response status")
	ErrReadBody       = goerr.New("failed to read directory response body")
	ErrDecodeBody     = goerr.New("failed to decode directory response body")
	ErrInvalidRecord  = goerr.New("invalid directory record")
	ErrMissingBaseURL = goerr.New("directory URL is required")

	// record-level kinds, both also match ErrInvalidRecord
	ErrInvalidEnabledFlag      = goerr.Wrap(ErrInvalidRecord, "accountEnabled must be 0 or 1")
	ErrInvalidRegistrationDate = goerr.Wrap(ErrInvalidRecord, "invalid userRegistrationDatetime")
)

// StatusError is returned when the directory answers with a non-200 status.
// Body holds whatever could be read from the response, possibly empty.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("directory responded with status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrInvalidStatus
}
