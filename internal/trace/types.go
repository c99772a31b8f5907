package trace

// Frame is one call-site record of a fault's propagation chain.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
	Code     string `json:"code"`
}

// TraceChain is ordered outermost caller first, innermost failure site last.
type TraceChain []Frame

// Report is the normalized form of a single captured fault.
type Report struct {
	ErrorPoint            *Frame  `json:"error_point"`
	FilteredTrace         []Frame `json:"filtered_trace"`
	FirstSitePackageError *Frame  `json:"first_site_package_error"`
	Exception             string  `json:"exception"`
	Message               string  `json:"message"`
}

// Exception is the narrow view of a host-platform fault the normalizer needs.
// Implementations live next to the platform that produces the fault
// (see internal/pytrace and internal/goexc).
type Exception interface {
	TypeName() string
	Message() string
	Frames() TraceChain
}

// StaticException is an Exception whose chain is already materialized,
// e.g. decoded from a JSON request body.
type StaticException struct {
	Type  string     `json:"exception"`
	Msg   string     `json:"message"`
	Chain TraceChain `json:"frames"`
}

func (e StaticException) TypeName() string   { return e.Type }
func (e StaticException) Message() string    { return e.Msg }
func (e StaticException) Frames() TraceChain { return e.Chain }
