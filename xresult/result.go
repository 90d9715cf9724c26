// Package xresult implements a Rust-style Result[T] sum type so fallible
// constructors (decimal literals, candles, order intents) fail explicitly
// instead of through panics or sentinel zero values, per spec.md 4.2 and the
// "runtime exceptions used for validation" redesign note.
package xresult

// Result is Ok(value) xor Err(err); never both, never neither.
type Result[T any] struct {
	value T
	err   error
	ok    bool
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{value: v, ok: true} }

// Err wraps a failure. Panics if err is nil — an Err with no error is a
// programmer mistake, not a valid state.
func Err[T any](err error) Result[T] {
	if err == nil {
		panic("xresult.Err: nil error")
	}
	return Result[T]{err: err}
}

func (r Result[T]) IsOk() bool  { return r.ok }
func (r Result[T]) IsErr() bool { return !r.ok }

// Unwrap returns the value or panics with the wrapped error. Reserved for
// test/bench code and system boundaries where a failure is already fatal.
func (r Result[T]) Unwrap() T {
	if !r.ok {
		panic("xresult: Unwrap called on Err: " + r.err.Error())
	}
	return r.value
}

// UnwrapErr returns the error, or nil if this is Ok.
func (r Result[T]) UnwrapErr() error {
	return r.err
}

// UnwrapOr returns the value, or fallback if this is Err.
func (r Result[T]) UnwrapOr(fallback T) T {
	if !r.ok {
		return fallback
	}
	return r.value
}

// Get returns (value, error) the idiomatic Go way, for callers that don't
// want to chain combinators.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

// Map transforms the Ok value, passing through any Err unchanged.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.IsErr() {
		return Err[U](r.err)
	}
	return Ok(f(r.value))
}

// MapErr transforms the wrapped error, passing through any Ok unchanged.
func MapErr[T any](r Result[T], f func(error) error) Result[T] {
	if r.IsOk() {
		return r
	}
	return Err[T](f(r.err))
}

// FlatMap chains a fallible continuation, short-circuiting on the first Err.
func FlatMap[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.IsErr() {
		return Err[U](r.err)
	}
	return f(r.value)
}

// TryCatch runs f and converts a panic into an Err, mirroring the source's
// try/catch boundary at the edge of foreign code (JSON decode, external SDK
// calls) — used sparingly, only where a library call is not itself
// Result-returning.
func TryCatch[T any](f func() (T, error)) (result Result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Err[T](panicError{rec})
		}
	}()
	v, err := f()
	if err != nil {
		return Err[T](err)
	}
	return Ok(v)
}

type panicError struct{ v any }

func (p panicError) Error() string {
	if err, ok := p.v.(error); ok {
		return "recovered panic: " + err.Error()
	}
	return "recovered panic"
}
