package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/patchjudge/patchjudge/internal/judge"
	"github.com/patchjudge/patchjudge/internal/model"
)

type stubRunner struct {
	req model.EvaluationRequest
	res *model.EvaluationResult
	err error
}

func (s *stubRunner) Evaluate(_ context.Context, req model.EvaluationRequest) (*model.EvaluationResult, error) {
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

type stubHistory struct {
	results []model.EvaluationResult
	err     error
	limit   int
}

func (s *stubHistory) Recent(limit int) ([]model.EvaluationResult, error) {
	s.limit = limit
	return s.results, s.err
}

func passResult() *model.EvaluationResult {
	return &model.EvaluationResult{
		ID:           "eval-1",
		Scores:       model.Scores{FunctionalCorrectness: 5, Completeness: 4, BehavioralEquivalence: 4},
		OverallScore: 89,
		Verdict:      model.VerdictPass,
		Findings:     "patch addresses the root cause",
		Model:        "gpt-5.1",
		Provider:     "openai",
		EvaluatedAt:  time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		DurationMs:   1200,
	}
}

func newTestServer(t *testing.T, runner Runner, hist HistoryLister, opts Options) *Server {
	t.Helper()
	srv, err := New(runner, hist, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func multipartRequest(t *testing.T, fields map[string]string, files map[string][2]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}
	for field, nameAndBody := range files {
		fw, err := mw.CreateFormFile(field, nameAndBody[0])
		if err != nil {
			t.Fatalf("CreateFormFile(%s): %v", field, err)
		}
		if _, err := io.WriteString(fw, nameAndBody[1]); err != nil {
			t.Fatalf("writing %s: %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/evaluate", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIndexRendersForm(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil, Options{
		Models:       []string{"gpt-5.1", "claude-sonnet-4-5"},
		DefaultModel: "claude-sonnet-4-5",
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`name="issue_statement"`,
		`name="ground_truth"`,
		`name="candidate"`,
		`value="gpt-5.1"`,
		`value="claude-sonnet-4-5" selected`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index page missing %q", want)
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil, Options{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want status ok", rec.Body.String())
	}
}

func TestEvaluateFormHappyPath(t *testing.T) {
	runner := &stubRunner{res: passResult()}
	srv := newTestServer(t, runner, nil, Options{})

	req := multipartRequest(t,
		map[string]string{
			"issue_statement": "fix the off-by-one in the pager",
			"model":           "gpt-5.1",
			"api_key":         "sk-test",
			"notes":           "tests must stay green",
		},
		map[string][2]string{
			"ground_truth": {"fix.patch", "--- a/pager.go\n+++ b/pager.go\n"},
			"candidate":    {"cand.diff", "--- a/pager.go\n+++ b/pager.go\n"},
		},
	)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := runner.req.IssueStatement; got != "fix the off-by-one in the pager" {
		t.Errorf("IssueStatement = %q", got)
	}
	if runner.req.GroundTruthPatch == "" || runner.req.CandidatePatch == "" {
		t.Error("uploaded patches not propagated to the runner")
	}
	if runner.req.APIKey != "sk-test" {
		t.Errorf("APIKey = %q, want sk-test", runner.req.APIKey)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "PASS") || !strings.Contains(body, "89/100") {
		t.Errorf("result page missing verdict or score:\n%s", body)
	}
}

func TestEvaluateFormReturnsJSONWhenAsked(t *testing.T) {
	srv := newTestServer(t, &stubRunner{res: passResult()}, nil, Options{})

	req := multipartRequest(t,
		map[string]string{"issue_statement": "x", "model": "gpt-5.1", "api_key": "k"},
		map[string][2]string{
			"ground_truth": {"a.patch", "diff"},
			"candidate":    {"b.patch", "diff"},
		},
	)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res model.EvaluationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if res.Verdict != model.VerdictPass || res.OverallScore != 89 {
		t.Errorf("got verdict=%s overall=%v", res.Verdict, res.OverallScore)
	}
}

func TestEvaluateFormRejectsBadExtension(t *testing.T) {
	srv := newTestServer(t, &stubRunner{res: passResult()}, nil, Options{})

	req := multipartRequest(t,
		map[string]string{"issue_statement": "x", "model": "gpt-5.1", "api_key": "k"},
		map[string][2]string{
			"ground_truth": {"patch.exe", "MZ..."},
			"candidate":    {"b.patch", "diff"},
		},
	)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "patch.exe") {
		t.Errorf("error should name the offending file: %s", rec.Body.String())
	}
}

func TestEvaluateFormRejectsEmptyPatch(t *testing.T) {
	srv := newTestServer(t, &stubRunner{res: passResult()}, nil, Options{})

	req := multipartRequest(t,
		map[string]string{"issue_statement": "x", "model": "gpt-5.1", "api_key": "k"},
		map[string][2]string{
			"ground_truth": {"a.patch", "   \n"},
			"candidate":    {"b.patch", "diff"},
		},
	)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAPIEvaluate(t *testing.T) {
	runner := &stubRunner{res: passResult()}
	srv := newTestServer(t, runner, nil, Options{})

	body, _ := json.Marshal(apiEvaluateRequest{
		IssueStatement:   "fix crash on empty input",
		GroundTruthPatch: "--- a\n+++ b\n",
		CandidatePatch:   "--- a\n+++ b\n",
		Model:            "claude-sonnet-4-5",
		APIKey:           "sk-ant",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if runner.req.Model != "claude-sonnet-4-5" || runner.req.APIKey != "sk-ant" {
		t.Errorf("request not propagated: %+v", runner.req)
	}
	if strings.Contains(rec.Body.String(), "sk-ant") {
		t.Error("API key leaked into the response body")
	}
}

func TestAPIEvaluateRejectsInvalidJSON(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/evaluate", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &model.ValidationError{Field: "model", Reason: "model is required"}, http.StatusBadRequest},
		{"auth", &judge.APIError{Kind: judge.KindAuth, Provider: "openai", StatusCode: 401, Err: errors.New("bad key")}, http.StatusUnauthorized},
		{"rate limit", &judge.APIError{Kind: judge.KindRateLimit, Provider: "anthropic", StatusCode: 429, Err: errors.New("slow down")}, http.StatusTooManyRequests},
		{"timeout", &judge.APIError{Kind: judge.KindTimeout, Provider: "openai", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"network", &judge.APIError{Kind: judge.KindNetwork, Provider: "openai", Err: errors.New("connection refused")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubRunner{err: tt.err}, nil, Options{})

			body, _ := json.Marshal(apiEvaluateRequest{
				IssueStatement:   "x",
				GroundTruthPatch: "d",
				CandidatePatch:   "d",
				Model:            "gpt-5.1",
				APIKey:           "k",
			})
			req := httptest.NewRequest(http.MethodPost, "/api/evaluate", bytes.NewReader(body))
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestListEvaluations(t *testing.T) {
	hist := &stubHistory{results: []model.EvaluationResult{*passResult()}}
	srv := newTestServer(t, &stubRunner{}, hist, Options{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/evaluations?limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if hist.limit != 5 {
		t.Errorf("limit = %d, want 5", hist.limit)
	}
	var results []model.EvaluationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(results) != 1 || results[0].ID != "eval-1" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestListEvaluationsBadLimit(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, &stubHistory{}, Options{})

	for _, q := range []string{"limit=0", "limit=501", "limit=abc"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/evaluations?"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestListEvaluationsNoHistory(t *testing.T) {
	srv := newTestServer(t, &stubRunner{}, nil, Options{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/evaluations", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want empty array", got)
	}
}

func TestRateLimitKicksIn(t *testing.T) {
	srv := newTestServer(t, &stubRunner{res: passResult()}, nil, Options{RateLimitPerMinute: 2})
	router := srv.Router()

	newReq := func() *http.Request {
		body, _ := json.Marshal(apiEvaluateRequest{
			IssueStatement:   "x",
			GroundTruthPatch: "d",
			CandidatePatch:   "d",
			Model:            "gpt-5.1",
			APIKey:           "k",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/evaluate", bytes.NewReader(body))
		req.RemoteAddr = "203.0.113.9:4242"
		return req
	}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, newReq())
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newReq())
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 after burst exhausted", rec.Code)
	}

	// A different client is unaffected.
	other := newReq()
	other.RemoteAddr = "198.51.100.7:1234"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("other client: status = %d, want 200", rec.Code)
	}
}
