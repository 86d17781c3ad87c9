package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTracing_RecordsRoutePattern(t *testing.T) {
	var seen string
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/entries/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = r.PathValue("id")
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/entries/abc", nil)

	Tracing(mux).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
	if seen != "abc" {
		t.Errorf("path value = %q, want abc", seen)
	}
}

func TestRouteOf(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := routeOf(req); got != "unmatched" {
		t.Errorf("routeOf() = %q, want unmatched", got)
	}

	req.Pattern = "GET /api/summary"
	if got := routeOf(req); got != "GET /api/summary" {
		t.Errorf("routeOf() = %q, want pattern", got)
	}
}
