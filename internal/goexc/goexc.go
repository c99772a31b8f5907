// Package goexc adapts Go faults (oops-annotated errors and recovered
// panics) to the normalizer's Exception view.
package goexc

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/samsarahq/go/oops"

	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

// Exception is a captured Go fault.
type Exception struct {
	typeName string
	message  string
	frames   trace.TraceChain
}

func (e *Exception) TypeName() string         { return e.typeName }
func (e *Exception) Message() string          { return e.message }
func (e *Exception) Frames() trace.TraceChain { return e.frames }

type reasoner interface {
	Reason() string
}

// FromError builds an Exception from err. Errors created or wrapped with
// oops carry the stack where they originated; any other error yields an
// empty chain. oops records files relative to their last "/src/" element;
// those are resolved back through DefaultSources and stay relative when no
// known src root holds them.
func FromError(err error) *Exception {
	return fromError(err, DefaultSources)
}

func fromError(err error, src *SourceLines) *Exception {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var chain trace.TraceChain
	if stacks := oops.Frames(err); stacks != nil {
		// oops errors render their stack in Error(); keep only the reason
		// chain and the wrapped cause.
		msg = oops.Cause(err).Error()
		if r, ok := err.(reasoner); ok && r.Reason() != "" {
			msg = r.Reason() + ": " + msg
		}
		if len(stacks) > 0 {
			chain = toChain(stacks[0], src)
		}
	}

	return &Exception{
		typeName: typeName(rootCause(err)),
		message:  msg,
		frames:   chain,
	}
}

// Capture runs fn and returns the panic it raised, or nil if fn returned
// normally. Frames come from the panicking goroutine's own stack, so file
// paths stay absolute.
func Capture(fn func()) (exc *Exception) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		exc = &Exception{
			typeName: strings.TrimPrefix(fmt.Sprintf("%T", p), "*"),
			message:  fmt.Sprint(p),
			frames:   dropPanicFrames(callerChain(DefaultSources)),
		}
	}()
	fn()
	return nil
}

// callerChain returns the stack of its caller in call-stack order.
func callerChain(src *SourceLines) trace.TraceChain {
	pcs := make([]uintptr, 64)
	for {
		n := runtime.Callers(2, pcs)
		if n < len(pcs) || len(pcs) >= maxCallers {
			pcs = pcs[:n]
			break
		}
		pcs = make([]uintptr, 2*len(pcs))
	}

	var inner []runtime.Frame
	frames := runtime.CallersFrames(pcs)
	for {
		f, more := frames.Next()
		inner = append(inner, f)
		if !more {
			break
		}
	}

	chain := make(trace.TraceChain, 0, len(inner))
	for i := len(inner) - 1; i >= 0; i-- {
		f := inner[i]
		chain = append(chain, trace.Frame{
			File:     f.File,
			Line:     f.Line,
			Function: f.Function,
			Code:     src.Line(f.File, f.Line),
		})
	}
	return chain
}

const maxCallers = 1 << 16

// rootCause unwraps to the innermost non-oops error.
func rootCause(err error) error {
	cause := oops.Cause(err)
	for {
		next := errors.Unwrap(cause)
		if next == nil {
			return cause
		}
		cause = oops.Cause(next)
	}
}

func typeName(err error) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// toChain converts oops frames, innermost first, into call-stack order.
// oops trims each path up to its last "/src/"; those paths are resolved back
// to absolute files where a matching src root is known.
func toChain(frames []oops.Frame, src *SourceLines) trace.TraceChain {
	chain := make(trace.TraceChain, 0, len(frames))
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		file := src.Resolve(f.File)
		chain = append(chain, trace.Frame{
			File:     file,
			Line:     f.Line,
			Function: f.Function,
			Code:     src.Line(file, f.Line),
		})
	}
	return chain
}

// dropPanicFrames removes the recovery machinery from the innermost end of a
// chain: everything from runtime.gopanic inward, plus the runtime helpers
// that raised the panic on the faulting goroutine's behalf.
func dropPanicFrames(chain trace.TraceChain) trace.TraceChain {
	cut := -1
	for i := len(chain) - 1; i >= 0; i-- {
		if chain[i].Function == "runtime.gopanic" {
			cut = i
			break
		}
	}
	if cut < 0 {
		return chain
	}
	for cut > 0 && isRuntimePanicHelper(chain[cut-1].Function) {
		cut--
	}
	return chain[:cut]
}

func isRuntimePanicHelper(fn string) bool {
	return strings.HasPrefix(fn, "runtime.panic") ||
		strings.HasPrefix(fn, "runtime.goPanic") ||
		fn == "runtime.sigpanic"
}
