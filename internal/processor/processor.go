package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/stackoverfix/internal/hermes"
	"github.com/MikeSquared-Agency/stackoverfix/internal/metrics"
	"github.com/MikeSquared-Agency/stackoverfix/internal/pytrace"
	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

// ErrEmptyEvent is returned when a raw trace event carries neither a
// traceback nor a structured exception.
var ErrEmptyEvent = errors.New("event has no traceback or exception")

// Publisher is the subset of the hermes client the processor needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// ReportWriter persists normalized reports.
type ReportWriter interface {
	WriteReport(ctx context.Context, id uuid.UUID, source string, r trace.Report) error
}

// Processor normalizes raw trace events arriving over NATS and republishes
// the reports.
type Processor struct {
	normalizer *trace.Normalizer
	hermes     Publisher
	reports    ReportWriter
	logger     *slog.Logger
}

// New returns a Processor. reports may be nil, in which case reports are
// only published.
func New(n *trace.Normalizer, h Publisher, reports ReportWriter, logger *slog.Logger) *Processor {
	return &Processor{
		normalizer: n,
		hermes:     h,
		reports:    reports,
		logger:     logger,
	}
}

// HandleRawTrace is the NATS handler for stackoverfix.trace.raw.
func (p *Processor) HandleRawTrace(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.RawTraceEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse raw trace event", "subject", subject, "error", err)
		return
	}

	out, err := p.Process(ctx, evt)
	if err != nil {
		p.logger.Error("trace normalization failed",
			"event_id", evt.EventID,
			"source", evt.Source,
			"error", err,
		)
		return
	}

	if err := p.hermes.Publish(hermes.SubjectTraceNormalized, out); err != nil {
		p.logger.Error("failed to publish normalized trace", "event_id", out.EventID, "error", err)
		return
	}

	p.logger.Info("trace normalized",
		"event_id", out.EventID,
		"source", out.Source,
		"exception", out.Report.Exception,
		"kept_frames", len(out.Report.FilteredTrace),
	)
}

// Process normalizes a single event. Events without an id are assigned one.
func (p *Processor) Process(ctx context.Context, evt hermes.RawTraceEvent) (hermes.NormalizedEvent, error) {
	exc, err := resolveException(evt)
	if err != nil {
		return hermes.NormalizedEvent{}, err
	}

	n := p.normalizer
	if evt.PackagesRoot != "" {
		n = n.ForRoot(evt.PackagesRoot)
	}
	report, stats := n.Scan(exc.TypeName(), exc.Message(), exc.Frames())
	metrics.RecordReport(evt.Source, stats)

	id := eventID(evt.EventID)
	if p.reports != nil {
		if err := p.reports.WriteReport(ctx, id, evt.Source, report); err != nil {
			// The report is still published; storage is best effort.
			p.logger.Warn("failed to store report", "event_id", id, "error", err)
		}
	}

	return hermes.NormalizedEvent{
		EventID: id.String(),
		Source:  evt.Source,
		Report:  report,
	}, nil
}

// resolveException prefers the raw traceback text over a structured
// exception when both are present.
func resolveException(evt hermes.RawTraceEvent) (trace.Exception, error) {
	if evt.Traceback != "" {
		exc, err := pytrace.Parse(evt.Traceback)
		if err != nil {
			return nil, fmt.Errorf("parse traceback: %w", err)
		}
		return exc, nil
	}
	if evt.Exception != nil {
		return *evt.Exception, nil
	}
	return nil, ErrEmptyEvent
}

// eventID returns the UUID form of raw. Non-UUID ids map to a stable
// name-based UUID so that redelivered events land on the same row.
func eventID(raw string) uuid.UUID {
	if raw == "" {
		return uuid.New()
	}
	if id, err := uuid.Parse(raw); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(raw))
}
