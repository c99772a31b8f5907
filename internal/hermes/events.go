package hermes

import "github.com/MikeSquared-Agency/stackoverfix/internal/trace"

// RawTraceEvent is published by instrumented programs on SubjectTraceRaw.
// Either Traceback (CPython text) or Exception (an extracted chain) is set.
type RawTraceEvent struct {
	EventID      string                 `json:"event_id,omitempty"`
	Source       string                 `json:"source"`
	Traceback    string                 `json:"traceback,omitempty"`
	Exception    *trace.StaticException `json:"exception,omitempty"`
	PackagesRoot string                 `json:"packages_root,omitempty"`
}

// NormalizedEvent is published on SubjectTraceNormalized.
type NormalizedEvent struct {
	EventID string       `json:"event_id"`
	Source  string       `json:"source"`
	Report  trace.Report `json:"report"`
}
