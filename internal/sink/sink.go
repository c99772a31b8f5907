// Package sink delivers rendered reports to where a developer can pick them
// up: the clipboard, a stream, or the message bus.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/atotto/clipboard"

	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// Sink receives a rendered report.
type Sink interface {
	Deliver(ctx context.Context, payload []byte) error
}

// Clipboard copies payloads to the system clipboard.
type Clipboard struct{}

func (Clipboard) Deliver(_ context.Context, payload []byte) error {
	if err := clipboardWriteAll(string(payload)); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}

// Writer writes payloads to an io.Writer, one per line.
type Writer struct {
	W io.Writer
}

func (w Writer) Deliver(_ context.Context, payload []byte) error {
	if _, err := w.W.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Publisher is the subset of the hermes client a Hermes sink needs.
type Publisher interface {
	PublishRaw(subject string, payload []byte) error
}

// Hermes publishes payloads on a fixed subject.
type Hermes struct {
	Pub     Publisher
	Subject string
}

func (h Hermes) Deliver(_ context.Context, payload []byte) error {
	return h.Pub.PublishRaw(h.Subject, payload)
}

// Marshal renders r as indented JSON. Function names such as <module> are
// written literally, not HTML-escaped.
func Marshal(r trace.Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ExtractAndDeliver normalizes exc, renders the report and hands it to every
// sink. The rendered JSON is returned even when some sinks fail; their errors
// are joined.
func ExtractAndDeliver(ctx context.Context, n *trace.Normalizer, exc trace.Exception, sinks ...Sink) (string, error) {
	payload, err := Marshal(n.Normalize(exc))
	if err != nil {
		return "", err
	}

	var errs []error
	for _, s := range sinks {
		if err := s.Deliver(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return string(payload), errors.Join(errs...)
}
