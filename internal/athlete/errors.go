package athlete

import (
	"errors"
	"fmt"
)

// ErrMalformedPage is returned when a page cannot be attributed to an
// athlete, e.g. the source URL lacks the competitor or sector parameter.
var ErrMalformedPage = errors.New("malformed athlete page")

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

// Fetch failure kinds.
const (
	FetchErrorNetwork    FetchErrorKind = "network"
	FetchErrorHTTPStatus FetchErrorKind = "http_status"
	FetchErrorTimeout    FetchErrorKind = "timeout"
)

// FetchError is returned by Fetcher implementations. No partial content
// accompanies it.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == FetchErrorHTTPStatus:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchErrorKindOf returns the kind of a FetchError anywhere in err's chain,
// or "" when err is not a fetch failure.
func FetchErrorKindOf(err error) FetchErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
