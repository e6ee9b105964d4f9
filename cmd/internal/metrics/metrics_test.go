package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilRegistryIsSafe(t *testing.T) {
	t.Parallel()

	var r *Registry
	r.Login("ok")
	r.SessionRevoked()
	r.Resolved()
	r.ResolveFailed("verify")
	r.AuthzDecision("create_account", "deny")
	r.AccountCreated("student")
	r.AccountDeleted("student")
	r.RateLimited()
	r.ObserveRequest("GET", "/me", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCounters(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Login("ok")
	r.Login("ok")
	r.Login("unauthorized")
	r.ResolveFailed("split")

	if got := testutil.ToFloat64(r.LoginsTotal.WithLabelValues("ok")); got != 2 {
		t.Fatalf("logins ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ResolveFailures.WithLabelValues("split")); got != 1 {
		t.Fatalf("resolve failures = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.ObserveRequest("POST", "/auth/login", 401, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `classy_http_requests_total{method="POST",route="/auth/login",status="401"} 1`) {
		t.Fatalf("metrics output missing request counter:\n%s", body)
	}
}
