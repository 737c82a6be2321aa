package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v79/github"
)

// Kind classifies a tracker operation failure.
type Kind string

const (
	// KindNotFound means the item or repository does not exist.
	KindNotFound Kind = "not_found"
	// KindRateLimited means the remote quota is exhausted.
	KindRateLimited Kind = "rate_limited"
	// KindTransport covers network failures and timeouts.
	KindTransport Kind = "transport"
	// KindMalformed means the payload had an unexpected shape.
	KindMalformed Kind = "malformed"
)

// Error is a classified tracker failure. Op names the gateway operation
// that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("tracker: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a tracker NotFound failure.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsRateLimited reports whether err is a tracker RateLimited failure.
func IsRateLimited(err error) bool { return hasKind(err, KindRateLimited) }

// IsTransport reports whether err is a tracker Transport failure.
func IsTransport(err error) bool { return hasKind(err, KindTransport) }

// IsMalformed reports whether err is a tracker Malformed failure.
func IsMalformed(err error) bool { return hasKind(err, KindMalformed) }

func hasKind(err error, kind Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

// classify maps a go-github error to the tracker error taxonomy.
func classify(op string, resp *github.Response, err error) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return &Error{Kind: KindRateLimited, Op: op, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindMalformed, Op: op, Err: err}
	}

	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
			return &Error{Kind: KindNotFound, Op: op, Err: err}
		case resp.StatusCode == http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Op: op, Err: err}
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return &Error{Kind: KindMalformed, Op: op, Err: err}
		}
	}

	// Network errors, timeouts, and 5xx responses that survived retries.
	return &Error{Kind: KindTransport, Op: op, Err: err}
}
