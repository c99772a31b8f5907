package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/MikeSquared-Agency/stackoverfix/internal/llm"
)

// ErrInvalidClassification is returned when the model's reply does not fit
// the classification contract.
var ErrInvalidClassification = errors.New("invalid classification")

const (
	classifyMaxTokens = 8192
	refineMaxTokens   = 8192
)

type Classifier struct {
	llm    llm.Completer
	logger *slog.Logger
}

func New(completer llm.Completer, logger *slog.Logger) *Classifier {
	return &Classifier{llm: completer, logger: logger}
}

// Classify asks the model whether req's error needs documentation. It
// returns the parsed classification together with the raw reply, which
// callers keep as context for Refine.
func (c *Classifier) Classify(ctx context.Context, req Request) (*Classification, string, error) {
	if len(req.StackTrace) == 0 {
		req.StackTrace = json.RawMessage("null")
	}
	var payload strings.Builder
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(req); err != nil {
		return nil, "", fmt.Errorf("marshal classify request: %w", err)
	}
	messages := []llm.Message{{Role: "user", Content: strings.TrimSuffix(payload.String(), "\n")}}

	c.logger.Info("classifying error",
		"prompt_len", len(req.UserPrompt),
		"snippet_len", len(req.CodeSnippet),
	)

	var (
		raw string
		err error
	)
	if jc, ok := c.llm.(llm.JSONCompleter); ok {
		raw, err = jc.CompleteJSON(ctx, classifySystemPrompt, messages, classifyMaxTokens, responseSchema)
	} else {
		raw, err = c.llm.Complete(ctx, classifySystemPrompt, messages, classifyMaxTokens)
	}
	if err != nil {
		return nil, "", fmt.Errorf("llm classification: %w", err)
	}

	cls, err := parseClassification(raw)
	if err != nil {
		c.logger.Error("failed to parse classification response", "error", err, "raw", raw)
		return nil, raw, err
	}

	c.logger.Info("classification complete",
		"doc_required", cls.DocReq,
		"library", deref(cls.Library),
	)
	return cls, raw, nil
}

// Refine sends a follow-up document to the model together with the reply of
// an earlier Classify call.
func (c *Classifier) Refine(ctx context.Context, previous, docName, docText string) (string, error) {
	messages := []llm.Message{
		{Role: "user", Content: previous},
		{Role: "user", Content: fmt.Sprintf(documentPrompt, docName, docText)},
	}

	c.logger.Info("refining with document", "document", docName, "document_len", len(docText))

	out, err := c.llm.Complete(ctx, refineSystemPrompt, messages, refineMaxTokens)
	if err != nil {
		return "", fmt.Errorf("llm refine: %w", err)
	}
	return out, nil
}

func parseClassification(raw string) (*Classification, error) {
	var cls Classification
	if err := json.Unmarshal([]byte(stripFences(raw)), &cls); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClassification, err)
	}

	if cls.Library != nil && *cls.Library == "" {
		cls.Library = nil
	}
	if cls.DocReq {
		if cls.Library == nil || !slices.Contains(Libraries, *cls.Library) {
			return nil, fmt.Errorf("%w: unknown library %q", ErrInvalidClassification, deref(cls.Library))
		}
	}
	if cls.SearchPhrase != nil {
		phrase := capWords(*cls.SearchPhrase, MaxSearchPhraseWords)
		if phrase == "" {
			cls.SearchPhrase = nil
		} else {
			cls.SearchPhrase = &phrase
		}
	}
	return &cls, nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func capWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
