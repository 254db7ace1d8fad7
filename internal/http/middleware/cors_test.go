package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsMarkHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSOriginAllowlist(t *testing.T) {
	tests := []struct {
		name      string
		allowed   []string
		origin    string
		wantEcho  string
		wantsNext bool
	}{
		{"listed origin echoed", []string{"https://admin.agendo.example"}, "https://admin.agendo.example", "https://admin.agendo.example", true},
		{"unknown origin stripped", []string{"https://admin.agendo.example"}, "https://evil.example", "", true},
		{"wildcard echoes anything", []string{"*"}, "https://random.example", "https://random.example", true},
		{"no origin header", []string{"https://admin.agendo.example"}, "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, "/api/doctors/abc/blocked-dates", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			rec := httptest.NewRecorder()
			CORS(tc.allowed)(corsMarkHandler(&called)).ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tc.wantEcho {
				t.Fatalf("Allow-Origin = %q, want %q", got, tc.wantEcho)
			}
			if tc.wantEcho != "" && rec.Header().Get("Access-Control-Allow-Headers") == "" {
				t.Fatal("expected Allow-Headers alongside the echoed origin")
			}
			if called != tc.wantsNext {
				t.Fatalf("next called = %v, want %v", called, tc.wantsNext)
			}
		})
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodOptions, "/api/admin/block-date", nil)
	req.Header.Set("Origin", "https://admin.agendo.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	CORS([]string{"https://admin.agendo.example"})(corsMarkHandler(&called)).ServeHTTP(rec, req)

	if called {
		t.Fatal("preflight must not reach the handler")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
