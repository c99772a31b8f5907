package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/stackoverfix/internal/classifier"
	"github.com/MikeSquared-Agency/stackoverfix/internal/metrics"
	"github.com/MikeSquared-Agency/stackoverfix/internal/pytrace"
	"github.com/MikeSquared-Agency/stackoverfix/internal/session"
	"github.com/MikeSquared-Agency/stackoverfix/internal/sink"
)

const maxUploadBytes = 10 << 20

// AnalyzeRequest is the first call of an analysis session. A raw traceback,
// when given, is normalized server-side and replaces StackTrace.
type AnalyzeRequest struct {
	SessionID   string          `json:"session_id,omitempty"`
	UserPrompt  string          `json:"user_prompt"`
	CodeSnippet string          `json:"code_snippet"`
	StackTrace  json.RawMessage `json:"stack_trace,omitempty"`
	Traceback   string          `json:"traceback,omitempty"`
}

type AnalyzeResponse struct {
	SessionID      string                     `json:"session_id"`
	Classification *classifier.Classification `json:"classification"`
	Response       string                     `json:"response"`
}

type SubmitDocumentsResponse struct {
	SessionID       string `json:"session_id"`
	UpdatedResponse string `json:"updated_response"`
}

// analyzeError handles POST /api/v1/analyze_error
func (s *Server) analyzeError(w http.ResponseWriter, r *http.Request) {
	if s.deps.Classifier == nil || s.deps.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "classifier not configured")
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if req.Traceback != "" {
		exc, err := pytrace.Parse(req.Traceback)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("parse traceback: %v", err))
			return
		}
		report, stats := s.normalizer("").Scan(exc.TypeName(), exc.Message(), exc.Frames())
		metrics.RecordReport("analyze", stats)
		body, err := sink.Marshal(report)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		req.StackTrace = body
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	cls, raw, err := s.deps.Classifier.Classify(r.Context(), classifier.Request{
		UserPrompt:  req.UserPrompt,
		CodeSnippet: req.CodeSnippet,
		StackTrace:  req.StackTrace,
	})
	if err != nil {
		metrics.RecordClassification(metrics.OutcomeError)
		s.logger.Error("classification failed", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("classification failed: %v", err))
		return
	}
	if cls.DocReq {
		metrics.RecordClassification(metrics.OutcomeDocRequest)
	} else {
		metrics.RecordClassification(metrics.OutcomeAnswered)
	}

	if err := s.deps.Sessions.Put(r.Context(), &session.Session{
		ID:          req.SessionID,
		UserPrompt:  req.UserPrompt,
		CodeSnippet: req.CodeSnippet,
		StackTrace:  req.StackTrace,
		Response:    raw,
		UpdatedAt:   time.Now().UTC(),
	}); err != nil {
		s.logger.Error("failed to store session", "session_id", req.SessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store session")
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		SessionID:      req.SessionID,
		Classification: cls,
		Response:       raw,
	})
}

// submitDocuments handles POST /api/v1/submit_documents
func (s *Server) submitDocuments(w http.ResponseWriter, r *http.Request) {
	if s.deps.Classifier == nil || s.deps.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "classifier not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	sess, err := s.deps.Sessions.Get(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Session ID not found. Make the first call first.")
		return
	}
	if err != nil {
		s.logger.Error("failed to load session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file is required: %v", err))
		return
	}
	defer file.Close()

	doc, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read file: %v", err))
		return
	}

	updated, err := s.deps.Classifier.Refine(r.Context(), sess.Response, header.Filename, string(doc))
	if err != nil {
		s.logger.Error("refinement failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("refinement failed: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, SubmitDocumentsResponse{
		SessionID:       sessionID,
		UpdatedResponse: updated,
	})
}
