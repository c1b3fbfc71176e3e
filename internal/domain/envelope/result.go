// Package envelope defines the uniform result shape for calls made to the
// remote decision service.
package envelope

// Result is the settled outcome of exactly one network call.
//
// OK is true iff a response was received and its status is in the 2xx range.
// Status is 0 when no response was received. Data is nil unless the body
// decoded as well-formed JSON, so a 2xx with a malformed body is OK with nil
// Data. ErrorText is only set when OK is false.
type Result[T any] struct {
	OK        bool
	Status    int
	Data      *T
	ErrorText string

	// Err is the underlying error when OK is false. It matches ErrTransport,
	// ErrTimeout or ErrHTTPStatus with errors.Is.
	Err error
}

// HasData reports whether the body parsed into structured data.
func (r Result[T]) HasData() bool {
	return r.Data != nil
}

// Received reports whether the server produced any HTTP response.
func (r Result[T]) Received() bool {
	return r.Status != 0
}

// Value returns the parsed body, or the zero value of T when absent.
func (r Result[T]) Value() T {
	var zero T
	if r.Data == nil {
		return zero
	}
	return *r.Data
}

// Failure builds the envelope for a call that never received a response.
func Failure[T any](err error) Result[T] {
	text := "Network error"
	if err != nil && err.Error() != "" {
		text = err.Error()
	}
	return Result[T]{
		OK:        false,
		Status:    0,
		ErrorText: text,
		Err:       err,
	}
}
