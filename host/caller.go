package host

// Caller invokes a foreign function at fn with integer/pointer arguments using
// the host's native calling convention and returns its integer result.
type Caller interface {
	Call(fn uintptr, args ...uintptr) uintptr
}

// CallerFunc adapts a plain function to the Caller interface.
type CallerFunc func(fn uintptr, args ...uintptr) uintptr

func (f CallerFunc) Call(fn uintptr, args ...uintptr) uintptr {
	return f(fn, args...)
}
