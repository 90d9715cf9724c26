// Package xerrors implements the structured error taxonomy spec.md 4.2
// describes: every fallible engine operation returns a TradingError tagged
// with a Kind and a Category, so retry logic (spec.md 7) can switch on
// Category alone without inspecting message text.
package xerrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// Category drives retry behavior. Retryable errors may be retried with
// backoff by the execution layer; NonRetryable surface immediately;
// Fatal triggers the lifecycle halt transition.
type Category string

const (
	Retryable    Category = "retryable"
	NonRetryable Category = "non_retryable"
	Fatal        Category = "fatal"
)

// Kind identifies the specific failure; Category is derived from Kind at
// construction time (see categoryFor) but can be overridden via WithCategory
// for foreign-error classification edge cases.
type Kind string

const (
	KindNetwork           Kind = "network"
	KindTimeout           Kind = "timeout"
	KindRateLimit         Kind = "rate_limit"
	KindAuth              Kind = "auth"
	KindOrderRejected     Kind = "order_rejected"
	KindOrderNotFound     Kind = "order_not_found"
	KindInsufficientBal   Kind = "insufficient_balance"
	KindConfig            Kind = "config"
	KindSystem            Kind = "system"
	KindInvalidCandle     Kind = "invalid_candle"
	KindDivByZero         Kind = "div_by_zero"
	KindInvalidState      Kind = "invalid_state"
)

var defaultCategory = map[Kind]Category{
	KindNetwork:         Retryable,
	KindTimeout:         Retryable,
	KindRateLimit:       Retryable,
	KindAuth:            NonRetryable,
	KindOrderRejected:   NonRetryable,
	KindOrderNotFound:   NonRetryable,
	KindInsufficientBal: NonRetryable,
	KindConfig:          Fatal,
	KindSystem:          Fatal,
	KindInvalidCandle:   NonRetryable,
	KindDivByZero:       NonRetryable,
	KindInvalidState:    NonRetryable,
}

// TradingError is the engine's concrete error type. It implements the
// stdlib error interface so errors.Is/errors.As keep working at Go API
// boundaries, per spec.md's "Result-returning where fallible, error at
// boundaries" rule.
type TradingError struct {
	KindValue     Kind
	CategoryValue Category
	Message       string
	Context       map[string]any
	Hint          string
	RetryAfter    time.Duration
	cause         error
}

func (e *TradingError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.KindValue))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

func (e *TradingError) Unwrap() error { return e.cause }

func (e *TradingError) Kind() Kind         { return e.KindValue }
func (e *TradingError) Category() Category { return e.CategoryValue }

// New builds a TradingError with the default category for kind.
func New(kind Kind, format string, args ...any) *TradingError {
	return &TradingError{
		KindValue:     kind,
		CategoryValue: defaultCategory[kind],
		Message:       fmt.Sprintf(format, args...),
	}
}

// Wrap builds a TradingError around an existing error, preserving it for
// errors.Unwrap chains.
func Wrap(kind Kind, cause error, format string, args ...any) *TradingError {
	e := New(kind, format, args...)
	e.cause = cause
	return e
}

// WithContext attaches structured context (e.g. guard name, order id) and
// returns the same error for chaining at the construction site.
func (e *TradingError) WithContext(key string, value any) *TradingError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func (e *TradingError) WithHint(hint string) *TradingError {
	e.Hint = hint
	return e
}

func (e *TradingError) WithRetryAfter(d time.Duration) *TradingError {
	e.RetryAfter = d
	e.CategoryValue = Retryable
	return e
}

// RateLimit builds a KindRateLimit error carrying the venue's advertised
// retry-after duration, honored verbatim by the execution layer (spec.md 7).
func RateLimit(retryAfter time.Duration, format string, args ...any) *TradingError {
	return New(KindRateLimit, format, args...).WithRetryAfter(retryAfter)
}

// As reports whether err is (or wraps) a *TradingError, mirroring the
// standard library idiom.
func As(err error) (*TradingError, bool) {
	var te *TradingError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Classify converts a foreign error (HTTP client, OS-level network error)
// into a TradingError, inspecting — in order — a structured HTTP status
// code, OS error codes, then message substrings, exactly as spec.md 4.2
// mandates.
func Classify(err error) *TradingError {
	if err == nil {
		return nil
	}
	if te, ok := As(err); ok {
		return te
	}

	if hs, ok := httpStatus(err); ok {
		switch {
		case hs == http.StatusTooManyRequests:
			return Wrap(KindRateLimit, err, "rate limited (http %d)", hs)
		case hs == http.StatusUnauthorized || hs == http.StatusForbidden:
			return Wrap(KindAuth, err, "auth rejected (http %d)", hs)
		case hs >= 500:
			return Wrap(KindSystem, err, "server error (http %d)", hs)
		}
	}

	switch {
	case errors.Is(err, syscall.ETIMEDOUT):
		return Wrap(KindTimeout, err, "operation timed out")
	case errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED):
		return Wrap(KindNetwork, err, "network error")
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "etimedout") || strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return Wrap(KindTimeout, err, "operation timed out")
	case strings.Contains(msg, "econnrefused") || strings.Contains(msg, "econnreset") || strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") || strings.Contains(msg, "no such host"):
		return Wrap(KindNetwork, err, "network error")
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "invalid signature"):
		return Wrap(KindAuth, err, "auth rejected")
	case strings.Contains(msg, "insufficient") && strings.Contains(msg, "balance"):
		return Wrap(KindInsufficientBal, err, "insufficient balance")
	case strings.Contains(msg, "rejected"):
		return Wrap(KindOrderRejected, err, "order rejected")
	case strings.Contains(msg, "not found"):
		return Wrap(KindOrderNotFound, err, "order not found")
	}

	return Wrap(KindSystem, err, "unclassified error")
}

// httpStatusCoder is satisfied by HTTP client errors that carry a structured
// status code (the collaborator HTTP client is expected to implement this;
// the core never constructs HTTP requests itself — spec.md 1 scopes
// concrete HTTP clients out).
type httpStatusCoder interface {
	StatusCode() int
}

func httpStatus(err error) (int, bool) {
	var coder httpStatusCoder
	if errors.As(err, &coder) {
		return coder.StatusCode(), true
	}
	return 0, false
}
