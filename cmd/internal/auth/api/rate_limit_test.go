package authapi

import (
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestIPLimiter_BurstThenWait(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(rate.Limit(1), 2)
	l.now = func() time.Time { return now }

	ip := net.ParseIP("203.0.113.7")
	for i := 0; i < 2; i++ {
		if ok, _ := l.allow(ip); !ok {
			t.Fatalf("attempt %d denied within burst", i)
		}
	}

	ok, retry := l.allow(ip)
	if ok {
		t.Fatalf("expected third attempt to be limited")
	}
	if retry <= 0 || retry > time.Second {
		t.Fatalf("unexpected retry %v", retry)
	}

	// Another client is unaffected.
	if ok, _ := l.allow(net.ParseIP("203.0.113.8")); !ok {
		t.Fatalf("independent ip denied")
	}

	now = now.Add(time.Second)
	if ok, _ := l.allow(ip); !ok {
		t.Fatalf("expected token after refill")
	}
}

func TestIPLimiter_PrunesIdleEntries(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := newIPLimiter(rate.Limit(1), 1)
	l.now = func() time.Time { return now }

	l.allow(net.ParseIP("198.51.100.1"))
	l.allow(net.ParseIP("198.51.100.2"))
	if l.size() != 2 {
		t.Fatalf("size = %d", l.size())
	}

	now = now.Add(limiterIdleTTL + limiterPruneEvery)
	l.allow(net.ParseIP("198.51.100.3"))
	if l.size() != 1 {
		t.Fatalf("expected idle entries pruned, size = %d", l.size())
	}
}

func TestIPLimiter_Disabled(t *testing.T) {
	t.Parallel()

	l := newIPLimiter(rate.Inf, 0)
	for i := 0; i < 100; i++ {
		if ok, _ := l.allow(nil); !ok {
			t.Fatalf("disabled limiter denied")
		}
	}
}

func TestWriteRateLimited_RoundsUp(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeRateLimited(rec, 1500*time.Millisecond)
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q", got)
	}
	if rec.Code != 429 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:4444"
	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")

	if got := clientIP(r, false); got.String() != "192.0.2.1" {
		t.Fatalf("untrusted proxy: got %v", got)
	}
	if got := clientIP(r, true); got.String() != "203.0.113.5" {
		t.Fatalf("trusted proxy: got %v", got)
	}
}
