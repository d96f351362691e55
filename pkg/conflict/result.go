// Package conflict implements the pre-deploy and pre-retrieve conflict check
// pipeline: composable checkers that either continue with a (possibly
// narrowed) payload or cancel the operation.
package conflict

// Result is the outcome of a check step: Continue with a payload or Cancel
// with an optional message. The zero value is a Continue with a zero payload.
type Result[T any] struct {
	payload   T
	message   string
	cancelled bool
}

// Continue wraps a payload that may proceed to the next step.
func Continue[T any](payload T) Result[T] {
	return Result[T]{payload: payload}
}

// Cancel stops the pipeline. msg may be empty.
func Cancel[T any](msg string) Result[T] {
	return Result[T]{message: msg, cancelled: true}
}

// Cancelled reports whether the result stops the pipeline.
func (r Result[T]) Cancelled() bool { return r.cancelled }

// Payload returns the continued payload, or the zero value for a Cancel.
func (r Result[T]) Payload() T { return r.payload }

// Message returns the cancellation message.
func (r Result[T]) Message() string { return r.message }

// String renders the result for logs.
func (r Result[T]) String() string {
	if r.cancelled {
		if r.message == "" {
			return "cancel"
		}
		return "cancel: " + r.message
	}
	return "continue"
}
