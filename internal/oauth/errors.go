package oauth

import "errors"

// FlowError carries the HTTP-equivalent status for a callback-flow failure.
// Handlers map it straight onto the response.
type FlowError struct {
	Status  int
	Code    string
	Message string
}

func (e *FlowError) Error() string { return e.Code + ": " + e.Message }

// Sentinel failures of the provider-facing calls. Neither is retried here;
// retries, if wanted at all, belong to the caller.
var (
	ErrExchangeFailed = errors.New("provider code exchange failed")
	ErrProfileFailed  = errors.New("provider profile fetch failed")
)
