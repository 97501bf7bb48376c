package stack

// Option configures a Stack.
type Option[T any] func(*Stack[T])

// WithTeardown registers fn to run on every element as it is popped.
func WithTeardown[T any](fn func(*T)) Option[T] {
	return func(s *Stack[T]) {
		s.teardown = fn
	}
}
