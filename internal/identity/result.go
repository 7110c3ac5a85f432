package identity

// Result is the uniform outcome of a facade operation: either a payload or
// a non-empty list of human-readable errors, never both.
type Result[T any] struct {
	Value  T        `json:"value,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// Unit is the payload of operations that return nothing on success.
type Unit struct{}

// Ok wraps a successful payload.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Fail wraps one or more error descriptions. An empty call still yields a
// failed result so the success/failure invariant holds.
func Fail[T any](descriptions ...string) Result[T] {
	if len(descriptions) == 0 {
		descriptions = []string{"unspecified error"}
	}
	return Result[T]{Errors: descriptions}
}

// OK reports whether the result is a success.
func (r Result[T]) OK() bool {
	return len(r.Errors) == 0
}
