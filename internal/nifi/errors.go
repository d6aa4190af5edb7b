package nifi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies API failures so callers can separate fatal
// conditions from per-component ones that a long-running walk should
// record and skip.
type ErrorKind int

const (
	// KindAuth covers rejected credentials and expired tokens. Fatal.
	KindAuth ErrorKind = iota

	// KindNotFound means the component vanished between listing and
	// acting on it. Treated as already-deleted during teardown.
	KindNotFound

	// KindStaleRevision means the optimistic-lock version we sent no
	// longer matches the server's. Recoverable per component.
	KindStaleRevision

	// KindComponentBusy means the server refused because the component
	// is running or has queued data. Recoverable per component.
	KindComponentBusy

	// KindUnreachable covers transport-level failures. Fatal.
	KindUnreachable

	// KindBadResponse covers unexpected status codes and unparseable
	// bodies. A 4xx rejection condemns only the payload that was sent
	// and is recoverable per component; 5xx and garbled responses are
	// fatal.
	KindBadResponse

	// KindTimeout means one call exceeded its own deadline. The next
	// component gets a fresh deadline, so walks record and continue.
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "authentication"
	case KindNotFound:
		return "not found"
	case KindStaleRevision:
		return "stale revision"
	case KindComponentBusy:
		return "component busy"
	case KindUnreachable:
		return "unreachable"
	case KindBadResponse:
		return "bad response"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// APIError is the error type returned by every Client method.
type APIError struct {
	Kind       ErrorKind
	Op         string // "delete processor", "create connection", ...
	Component  string // display name or id, may be empty
	StatusCode int    // zero for transport failures
	Message    string // server response body or transport error text
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Component != "" {
		fmt.Fprintf(&b, " %q", e.Component)
	}
	fmt.Fprintf(&b, ": %s", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// Recoverable reports whether the error is one a teardown or
// replication walk should record against the single component and
// continue past, rather than abort the run.
func Recoverable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindStaleRevision, KindComponentBusy, KindNotFound, KindTimeout:
		return true
	case KindBadResponse:
		// A 4xx condemns the one payload that was sent; auth, not-found
		// and conflict have their own kinds, so this is typically a 400
		// the server raised against a single component's configuration.
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
	}
	return false
}

// classifyConflict separates the two meanings NiFi gives HTTP 409: a
// stale revision (the body mentions the version check) versus a
// component that is running or holds queued data.
func classifyConflict(body string) ErrorKind {
	lower := strings.ToLower(body)
	if strings.Contains(lower, "revision") || strings.Contains(lower, "up-to-date") ||
		strings.Contains(lower, "up to date") {
		return KindStaleRevision
	}
	return KindComponentBusy
}
