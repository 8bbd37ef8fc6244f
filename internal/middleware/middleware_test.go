package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/forma/internal/logger"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
})

func TestSecurity_SetsHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, h := range []string{"Content-Security-Policy", "X-Frame-Options", "X-Content-Type-Options", "Cache-Control"} {
		if rec.Header().Get(h) == "" {
			t.Fatalf("missing %s", h)
		}
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS sent over plain HTTP")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	Security(ok).ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("HSTS missing over TLS")
	}
}

func TestForceHTTPS(t *testing.T) {
	cases := []struct {
		host  string
		proto string
		want  int
	}{
		{"forma.app", "", http.StatusPermanentRedirect},
		{"forma.app:8080", "", http.StatusPermanentRedirect},
		{"forma.app", "https", http.StatusTeapot},
		{"localhost:8080", "", http.StatusTeapot},
		{"127.0.0.1", "", http.StatusTeapot},
		{"[::1]:8080", "", http.StatusTeapot},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://"+tc.host+"/auth/state?x=1", nil)
		req.Host = tc.host
		if tc.proto != "" {
			req.Header.Set("X-Forwarded-Proto", tc.proto)
		}
		rec := httptest.NewRecorder()
		ForceHTTPS(ok).ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: status %d, want %d", tc.host, rec.Code, tc.want)
		}
		if tc.want == http.StatusPermanentRedirect {
			if loc := rec.Header().Get("Location"); loc != "https://"+tc.host+"/auth/state?x=1" {
				t.Fatalf("Location = %q", loc)
			}
		}
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core).Sugar()

	var fromCtx *zap.SugaredLogger
	h := chimw.RequestID(RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = logger.FromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/submit", nil))

	if fromCtx == nil || fromCtx == zap.S() {
		t.Fatalf("handler did not receive the request logger")
	}
	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusCreated) || fields["path"] != "/auth/submit" {
		t.Fatalf("fields = %v", fields)
	}
	if fields["req_id"] == "" {
		t.Fatalf("req_id missing")
	}
}
