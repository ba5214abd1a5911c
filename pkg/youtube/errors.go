package youtube

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrQuotaExceeded means the platform refused the call because the daily
	// quota is spent. Callers treat it as the end of their phase.
	ErrQuotaExceeded = errors.New("youtube: quota exceeded")
	// ErrBudgetExhausted means the local ledger could not afford the call,
	// so it was never issued.
	ErrBudgetExhausted = errors.New("youtube: local quota budget exhausted")
)

// APIError is a non-2xx response from the Data API
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube api: status %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("youtube api: status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrQuotaExceeded) match quota responses
func (e *APIError) Is(target error) bool {
	return target == ErrQuotaExceeded && e.quotaExceeded()
}

func (e *APIError) quotaExceeded() bool {
	if e.StatusCode != 403 {
		return false
	}
	switch e.Reason {
	case "quotaExceeded", "dailyLimitExceeded":
		return true
	}
	return strings.Contains(e.Message, "quotaExceeded")
}

// ErrorClass tells the retry policy what to do with a failed call
type ErrorClass int

const (
	ErrorClassNone      ErrorClass = iota
	ErrorClassTransient            // retry with backoff
	ErrorClassQuota                // abort now, no retry
	ErrorClassFatal                // abort now, report failure
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassNone:
		return "none"
	case ErrorClassTransient:
		return "transient"
	case ErrorClassQuota:
		return "quota"
	default:
		return "fatal"
	}
}

// ClassifyError maps an error from a remote call to its class.
// 5xx responses and network failures are transient; 403 with a quota reason
// is quota; everything else is fatal.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassNone
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrBudgetExhausted) {
		return ErrorClassQuota
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 && apiErr.StatusCode <= 599 {
			return ErrorClassTransient
		}
		return ErrorClassFatal
	}

	// dial failures, resets and timeouts
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorClassTransient
	}
	return ErrorClassFatal
}
