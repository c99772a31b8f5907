package trace

const (
	// RecursionLimit is how many frames of a recursion-overflow fault are
	// considered for the filtered trace.
	RecursionLimit = 3

	// DefaultRecursionKind is the exception type name CPython raises when the
	// interpreter's recursion depth is exceeded.
	DefaultRecursionKind = "RecursionError"
)

// Limiter bounds the frames of a self-recursive stack overflow. It is
// inactive for every other exception kind.
type Limiter struct {
	active bool
	limit  int
	seen   int
}

// NewLimiter returns a Limiter that only engages when typeName equals
// recursionKind.
func NewLimiter(typeName, recursionKind string) *Limiter {
	return &Limiter{
		active: recursionKind != "" && typeName == recursionKind,
		limit:  RecursionLimit,
	}
}

// Active reports whether the limiter applies to this fault.
func (l *Limiter) Active() bool {
	return l.active
}

// Allow counts one scanned frame and reports whether it may still enter the
// filtered trace.
func (l *Limiter) Allow() bool {
	if !l.active {
		return true
	}
	l.seen++
	return l.seen <= l.limit
}
