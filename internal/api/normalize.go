package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MikeSquared-Agency/stackoverfix/internal/metrics"
	"github.com/MikeSquared-Agency/stackoverfix/internal/pytrace"
	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

const maxBodyBytes = 4 << 20

var errNoFault = errors.New("request has no traceback or exception")

// NormalizeRequest carries either a raw CPython traceback or an already
// extracted exception.
type NormalizeRequest struct {
	Traceback    string `json:"traceback,omitempty"`
	PackagesRoot string `json:"packages_root,omitempty"`
	trace.StaticException
}

// exception resolves the fault the request describes.
func (req NormalizeRequest) exception() (trace.Exception, error) {
	if req.Traceback != "" {
		exc, err := pytrace.Parse(req.Traceback)
		if err != nil {
			return nil, fmt.Errorf("parse traceback: %w", err)
		}
		return exc, nil
	}
	if req.Type == "" && len(req.Chain) == 0 {
		return nil, errNoFault
	}
	return req.StaticException, nil
}

func (s *Server) normalizer(packagesRoot string) *trace.Normalizer {
	n := s.deps.Normalizer
	if n == nil {
		n = trace.New("")
	}
	if packagesRoot != "" {
		n = n.ForRoot(packagesRoot)
	}
	return n
}

// normalize handles POST /api/v1/normalize
func (s *Server) normalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	exc, err := req.exception()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, stats := s.normalizer(req.PackagesRoot).Scan(exc.TypeName(), exc.Message(), exc.Frames())
	metrics.RecordReport("api", stats)

	writeJSON(w, http.StatusOK, report)
}
