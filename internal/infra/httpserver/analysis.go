package httpserver

import (
	"net/http"
	"strconv"

	"github.com/bryanwahyu/docimpact/internal/domain/analysis"
	"github.com/bryanwahyu/docimpact/internal/middleware"
)

// analysisResponse flattens the result into the state object:
// {"state":"COMPLETE","documentId":1,"impactLevel":"High",...}
type analysisResponse struct {
	State      analysis.State `json:"state"`
	DocumentID int64          `json:"documentId"`
	Attempts   int            `json:"attempts,omitempty"`
	Error      string         `json:"error,omitempty"`
	*analysis.Result
}

func toAnalysisResponse(v analysis.View) analysisResponse {
	return analysisResponse{
		State:      v.State,
		DocumentID: v.DocumentID,
		Attempts:   v.Attempts,
		Error:      v.Error,
		Result:     v.Result,
	}
}

// GET /api/documents/{id}/analysis
func (r *Router) handleGetAnalysis(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	view, err := r.svc.Analysis.GetAnalysisState(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, toAnalysisResponse(view))
}

// POST /api/documents/{id}/analysis → retry a failed or never started analysis
func (r *Router) handleRetryAnalysis(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	view, err := r.svc.Analysis.RetryAnalysis(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusAccepted, toAnalysisResponse(view))
}

// GET /api/documents/{id}/analysis/errors?limit=
func (r *Router) handleAnalysisErrors(w http.ResponseWriter, req *http.Request) error {
	id, err := pathID(req, "id")
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	entries, err := r.svc.Analysis.FailureLog(req.Context(), id, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, entries)
}
