package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRoutePatternOrPathFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/whatever", nil)
	if got := routePatternOrPath(req); got != "/whatever" {
		t.Fatalf("got %q", got)
	}
}

func TestRoutePatternOrPathUsesChiPattern(t *testing.T) {
	r := chi.NewRouter()
	var got string
	r.Get("/analyze", func(w http.ResponseWriter, req *http.Request) {
		got = routePatternOrPath(req)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/analyze", nil))
	if got != "/analyze" {
		t.Fatalf("got %q", got)
	}
}

func TestStatusRecorderCapturesCode(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, status: 200}
	sr.WriteHeader(http.StatusTeapot)
	if sr.status != http.StatusTeapot || rec.Code != http.StatusTeapot {
		t.Fatalf("status=%d rec=%d", sr.status, rec.Code)
	}
}

func TestItoa(t *testing.T) {
	for n, want := range map[int]string{0: "0", 200: "200", 404: "404", 503: "503"} {
		if got := itoa(n); got != want {
			t.Fatalf("itoa(%d) = %q", n, got)
		}
	}
}
