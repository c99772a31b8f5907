package processor

import (
	"github.com/MikeSquared-Agency/stackoverfix/internal/goexc"
	"github.com/MikeSquared-Agency/stackoverfix/internal/hermes"
	"github.com/MikeSquared-Agency/stackoverfix/internal/metrics"
	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

// SelfSource is the event source used when the service reports its own
// panics.
const SelfSource = "stackoverfix"

// Handler is a NATS message handler.
type Handler func(subject string, data []byte)

// Guard wraps h so that a panic inside it is recovered, normalized against
// goNorm (rooted at the Go module cache), logged and published like any other
// trace. The message that caused it is dropped.
func (p *Processor) Guard(goNorm *trace.Normalizer, h Handler) Handler {
	return func(subject string, data []byte) {
		exc := goexc.Capture(func() { h(subject, data) })
		if exc == nil {
			return
		}

		report, stats := goNorm.Scan(exc.TypeName(), exc.Message(), exc.Frames())
		metrics.RecordReport(SelfSource, stats)

		attrs := []any{"subject", subject, "exception", report.Exception, "message", report.Message}
		if report.ErrorPoint != nil {
			attrs = append(attrs, "file", report.ErrorPoint.File, "line", report.ErrorPoint.Line)
		}
		p.logger.Error("handler panicked", attrs...)

		out := hermes.NormalizedEvent{
			EventID: eventID("").String(),
			Source:  SelfSource,
			Report:  report,
		}
		if err := p.hermes.Publish(hermes.SubjectTraceNormalized, out); err != nil {
			p.logger.Error("failed to publish panic report", "error", err)
		}
	}
}
