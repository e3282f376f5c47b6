package core

// Result is the outcome of a degradable step: a metric extractor, the security
// scan or an AI call. A failed step carries the zero value, OK=false and a
// human-readable reason instead of an error.
type Result[T any] struct {
	Value  T
	OK     bool
	Reason string
}

// Succeeded wraps a value produced without failure.
func Succeeded[T any](v T) Result[T] {
	return Result[T]{Value: v, OK: true}
}

// Failed returns a zero-valued result with the given reason.
func Failed[T any](reason string) Result[T] {
	return Result[T]{Reason: reason}
}

// FailedWith returns a failed result that keeps a partial value, for example
// the raw diagnostics of a crashed analyzer.
func FailedWith[T any](v T, reason string) Result[T] {
	return Result[T]{Value: v, Reason: reason}
}
