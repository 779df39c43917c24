package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v81/github"
)

// Kind classifies why a snapshot fetch failed. The audit engine never
// retries; callers map kinds to user-facing advice and the exit code.
type Kind string

const (
	// KindUnauthorized means the token is missing, invalid, or lacks the
	// required scopes for the organisation.
	KindUnauthorized Kind = "unauthorized"
	// KindNotFound means the organisation does not exist or the token
	// cannot see it.
	KindNotFound Kind = "not_found"
	// KindRateLimited means GitHub's primary or secondary rate limit was hit.
	KindRateLimited Kind = "rate_limited"
	// KindTransient covers network failures and unexpected server responses.
	KindTransient Kind = "transient"
)

// FetchError is a classified failure from the Data Provider. All fetch
// failures are fatal to the current audit run: no partial snapshot is
// returned and no report is emitted.
type FetchError struct {
	Kind Kind
	// Op names the fetch step that failed (e.g. "get organisation").
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether a later identical run could plausibly succeed
// without operator action.
func (e *FetchError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTransient
}

// KindOf extracts the classification from an error chain, defaulting to
// transient for unclassified failures.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}

// classify wraps an underlying go-github error with a failure kind derived
// from the response.
func classify(op string, resp *github.Response, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return &FetchError{Kind: KindRateLimited, Op: op, Err: err}
	}

	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &FetchError{Kind: KindUnauthorized, Op: op, Err: err}
		case http.StatusNotFound:
			return &FetchError{Kind: KindNotFound, Op: op, Err: err}
		}
	}

	return &FetchError{Kind: KindTransient, Op: op, Err: err}
}
