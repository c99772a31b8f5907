package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MikeSquared-Agency/stackoverfix/internal/store"
)

type DocSearchRequest struct {
	Library   string    `json:"library"`
	Embedding []float64 `json:"embedding"`
	K         int       `json:"k"`
}

type DocSearchResponse struct {
	Documents []store.Document `json:"documents"`
	Count     int              `json:"count"`
}

// searchDocs handles POST /api/v1/docs/search
func (s *Server) searchDocs(w http.ResponseWriter, r *http.Request) {
	if s.deps.Docs == nil {
		writeError(w, http.StatusServiceUnavailable, "document index not configured")
		return
	}

	var req DocSearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if len(req.Embedding) == 0 {
		writeError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	docs, err := s.deps.Docs.NearestDocuments(r.Context(), req.Library, req.Embedding, req.K)
	if err != nil {
		s.logger.Error("document search failed", "library", req.Library, "error", err)
		writeError(w, http.StatusInternalServerError, "document search failed")
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}

	writeJSON(w, http.StatusOK, DocSearchResponse{Documents: docs, Count: len(docs)})
}
