package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vulnd/internal/detector"
	"vulnd/pkg/types"
)

type mockService struct {
	ready      bool
	res        detector.Result
	analyzeErr error
	calls      int
	lastCode   string
}

func (m *mockService) Info() types.ServiceInfo {
	return types.ServiceInfo{
		Service:   "Java Vulnerability Detector",
		Status:    "running",
		Model:     "GraphCodeBERT",
		Accuracy:  "83.93%",
		Version:   "1.0.0",
		Endpoints: map[string]string{"analyze": "POST /analyze"},
	}
}

func (m *mockService) Health() types.HealthResponse {
	return types.HealthResponse{
		Status:          "healthy",
		ModelLoaded:     m.ready,
		TokenizerLoaded: m.ready,
		Device:          "cpu",
		Ready:           m.ready,
	}
}

func (m *mockService) Stats() types.StatsResponse {
	return types.StatsResponse{
		ModelName:    "GraphCodeBERT",
		Architecture: "microsoft/graphcodebert-base",
		Task:         "Binary Classification (Safe/Vulnerable)",
		Performance:  types.Performance{TestAccuracy: "83.93%"},
	}
}

func (m *mockService) Ready() bool { return m.ready }

func (m *mockService) Analyze(ctx context.Context, code string) (detector.Result, error) {
	m.calls++
	m.lastCode = code
	if m.analyzeErr != nil {
		return detector.Result{}, m.analyzeErr
	}
	return m.res, nil
}

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postAnalyze(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestRootInfo(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ServiceInfo
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Service == "" || body.Model == "" || len(body.Endpoints) == 0 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHealth(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.Ready || !body.ModelLoaded || !body.TokenizerLoaded || body.Device != "cpu" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestStatsIdempotent(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	var bodies []string
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d", w.Code)
		}
		bodies = append(bodies, w.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("stats changed between calls:\n%s\n%s", bodies[0], bodies[1])
	}
}

func TestAnalyzeOK(t *testing.T) {
	svc := &mockService{ready: true, res: detector.Result{Label: detector.LabelVulnerable, Vulnerable: true, Confidence: 0.9234}}
	r := NewMux(svc)
	w := postAnalyze(t, r, `{"code":"String query = \"SELECT * FROM users WHERE id = \" + userId;","filename":"UserDAO.java"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.IsVulnerable || body.Prediction != "VULNERABLE" || body.Confidence != 0.9234 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Filename != "UserDAO.java" {
		t.Fatalf("filename not echoed: %q", body.Filename)
	}
}

func TestAnalyzeDefaultFilename(t *testing.T) {
	svc := &mockService{ready: true, res: detector.Result{Label: detector.LabelSafe, Confidence: 0.8}}
	r := NewMux(svc)
	w := postAnalyze(t, r, `{"code":"int x = 1;"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Filename != types.DefaultFilename {
		t.Fatalf("filename=%q, want default", body.Filename)
	}
}

func TestAnalyzeNotReady(t *testing.T) {
	svc := &mockService{ready: false}
	r := NewMux(svc)
	w := postAnalyze(t, r, `{"code":"x"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("adapter invoked despite not ready")
	}
}

func TestAnalyzeBadJSON(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := postAnalyze(t, r, "not-json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestAnalyzeCodeRequired(t *testing.T) {
	svc := &mockService{ready: true}
	r := NewMux(svc)
	for _, body := range []string{`{}`, `{"code":""}`, `{"code":"   \n\t"}`} {
		w := postAnalyze(t, r, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status=%d", body, w.Code)
		}
	}
	if svc.calls != 0 {
		t.Fatalf("adapter invoked for malformed requests")
	}
}

func TestAnalyzeUnsupportedMediaType(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewBufferString(`{"code":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestAnalyzeBodyTooLarge(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	big := make([]byte, (1<<20)+10)
	for i := range big {
		big[i] = 'a'
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/analyze", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too-large body, got %d", w.Code)
	}
}

func TestAnalyzeServiceNotReadyError(t *testing.T) {
	r := NewMux(&mockService{ready: true, analyzeErr: detector.ErrNotReady()})
	w := postAnalyze(t, r, `{"code":"x"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestAnalyzeServiceInvalidInputError(t *testing.T) {
	r := NewMux(&mockService{ready: true, analyzeErr: detector.ErrInvalidInput("code is required")})
	w := postAnalyze(t, r, `{"code":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestAnalyzeHTTPErrorMapping(t *testing.T) {
	r := NewMux(&mockService{ready: true, analyzeErr: mockHTTPError{msg: "slow down", code: http.StatusTooManyRequests}})
	w := postAnalyze(t, r, `{"code":"x"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestAnalyzeGenericErrorMaps500(t *testing.T) {
	r := NewMux(&mockService{ready: true, analyzeErr: errors.New("tensor shape mismatch at layer 7")})
	w := postAnalyze(t, r, `{"code":"x"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	// Internal details must not leak to the caller.
	if body.Error != "analysis failed" {
		t.Fatalf("error=%q, want generic message", body.Error)
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestAnalyzeErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{detector.ErrNotReady(), http.StatusServiceUnavailable},
		{detector.ErrInvalidInput("code is required"), http.StatusBadRequest},
		{mockHTTPError{msg: "gone", code: http.StatusGone}, http.StatusGone},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := analyzeErrorStatus(c.err); got != c.want {
			t.Fatalf("analyzeErrorStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
