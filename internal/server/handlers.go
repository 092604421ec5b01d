package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/patchjudge/patchjudge/internal/judge"
	"github.com/patchjudge/patchjudge/internal/model"
	"github.com/patchjudge/patchjudge/internal/prompt"
)

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verr *model.ValidationError
	var ferr *model.FileFormatError
	var terr *prompt.TemplateError
	switch {
	case errors.As(err, &verr), errors.As(err, &ferr), errors.As(err, &terr):
		return http.StatusBadRequest
	}
	switch judge.KindOf(err) {
	case judge.KindAuth:
		return http.StatusUnauthorized
	case judge.KindRateLimit:
		return http.StatusTooManyRequests
	case judge.KindTimeout:
		return http.StatusGatewayTimeout
	case judge.KindNetwork:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errResp{Error: err.Error()})
}

type indexData struct {
	Models       []string
	DefaultModel string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html.tmpl", indexData{
		Models:       s.opts.Models,
		DefaultModel: s.opts.DefaultModel,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvaluateForm serves the browser form: multipart uploads in,
// an HTML result page out (JSON when requested via Accept).
func (s *Server) handleEvaluateForm(w http.ResponseWriter, r *http.Request) {
	req, err := requestFromForm(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.runner.Evaluate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, res)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "result.html.tmpl", res); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// apiEvaluateRequest is the JSON API request body. The patches travel
// inline rather than as uploads.
type apiEvaluateRequest struct {
	IssueStatement   string `json:"issue_statement"`
	GroundTruthPatch string `json:"ground_truth_patch"`
	CandidatePatch   string `json:"candidate_patch"`
	Notes            string `json:"notes,omitempty"`
	RepoURL          string `json:"repo_url,omitempty"`
	Model            string `json:"model"`
	APIKey           string `json:"api_key"`
	BaseURL          string `json:"base_url,omitempty"`
}

func (s *Server) handleAPIEvaluate(w http.ResponseWriter, r *http.Request) {
	var body apiEvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errResp{Error: "invalid JSON body: " + err.Error()})
		return
	}

	req := model.EvaluationRequest{
		IssueStatement:   body.IssueStatement,
		GroundTruthPatch: body.GroundTruthPatch,
		CandidatePatch:   body.CandidatePatch,
		Notes:            body.Notes,
		RepoURL:          body.RepoURL,
		Model:            body.Model,
		APIKey:           body.APIKey,
		BaseURL:          body.BaseURL,
	}

	res, err := s.runner.Evaluate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []model.EvaluationResult{})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, errResp{Error: "limit must be an integer between 1 and 500"})
			return
		}
		limit = n
	}

	results, err := s.history.Recent(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errResp{Error: err.Error()})
		return
	}
	if results == nil {
		results = []model.EvaluationResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}
