package resilient

import (
	"errors"
	"fmt"
	"strings"
)

// a single failed attempt that may succeed on retry
type TransientError struct {
	Op      string
	Attempt int
	Err     error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: attempt %d: %v", e.Op, e.Attempt, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// non-2xx response from a remote service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, body)
}

// every attempt failed
type ExhaustedRetriesError struct {
	Op       string
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%s: retry limit reached after %d attempts: %v", e.Op, e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err so the retrier returns it without further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
