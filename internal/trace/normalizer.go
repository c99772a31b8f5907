package trace

import "strings"

// Normalizer turns a fault's raw frame chain into a Report. It holds only
// read-only configuration, so one Normalizer may be shared across goroutines.
type Normalizer struct {
	classifier    Classifier
	recursionKind string
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithRecursionKind overrides the exception type name treated as a
// recursion overflow.
func WithRecursionKind(kind string) Option {
	return func(n *Normalizer) {
		n.recursionKind = kind
	}
}

// New returns a Normalizer classifying frames against packagesRoot.
func New(packagesRoot string, opts ...Option) *Normalizer {
	n := &Normalizer{
		classifier:    NewClassifier(packagesRoot),
		recursionKind: DefaultRecursionKind,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Classifier returns the frame classifier in use.
func (n *Normalizer) Classifier() Classifier {
	return n.classifier
}

// ForRoot returns a copy of n classifying against a different packages root.
func (n *Normalizer) ForRoot(packagesRoot string) *Normalizer {
	c := *n
	c.classifier = NewClassifier(packagesRoot)
	return &c
}

// Stats counts what a scan did with the frames it saw.
type Stats struct {
	Scanned          int
	DroppedLibrary   int
	DroppedRecursion int
}

// Normalize builds the report for exc.
func (n *Normalizer) Normalize(exc Exception) Report {
	r, _ := n.Scan(exc.TypeName(), exc.Message(), exc.Frames())
	return r
}

// NormalizeChain builds the report for an already extracted chain.
func (n *Normalizer) NormalizeChain(typeName, message string, chain TraceChain) Report {
	r, _ := n.Scan(typeName, message, chain)
	return r
}

// Scan performs the single forward pass over chain. The innermost frame is
// always the error point; the first library-owned frame is recorded once and
// never kept; user frames are kept in order, subject to the recursion limit.
func (n *Normalizer) Scan(typeName, message string, chain TraceChain) (Report, Stats) {
	var (
		last          *Frame
		firstExternal *Frame
		stats         Stats
	)
	kept := make([]Frame, 0, len(chain))
	limiter := NewLimiter(typeName, n.recursionKind)

	for _, raw := range chain {
		f := raw
		f.Code = strings.TrimSpace(f.Code)
		last = &f
		stats.Scanned++

		if !limiter.Allow() {
			stats.DroppedRecursion++
			continue
		}

		user := n.classifier.IsUserDefined(f.File)
		switch {
		case user:
			kept = append(kept, f)
		case firstExternal == nil:
			firstExternal = &f
		default:
			stats.DroppedLibrary++
		}
	}

	return Report{
		ErrorPoint:            last,
		FilteredTrace:         kept,
		FirstSitePackageError: firstExternal,
		Exception:             typeName,
		Message:               message,
	}, stats
}
