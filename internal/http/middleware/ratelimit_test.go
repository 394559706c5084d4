package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func limiterRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Handler())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	r := limiterRouter(NewRateLimiter(0, 3, KeyByClientIP()))

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d blocked: %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("fourth request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("retry-after = %q", w.Header().Get("Retry-After"))
	}
	if !strings.Contains(w.Body.String(), "too_many_requests") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByClientIP())
	r := limiterRouter(rl)

	send := func(addr string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = addr
		r.ServeHTTP(w, req)
		return w.Code
	}

	if send("10.0.0.1:1000") != http.StatusOK {
		t.Fatal("first client blocked immediately")
	}
	if send("10.0.0.1:1000") != http.StatusTooManyRequests {
		t.Fatal("first client not limited after burst")
	}
	if send("10.0.0.2:1000") != http.StatusOK {
		t.Fatal("second client shares the first client's bucket")
	}
}

func TestRateLimiter_BurstCoercedToOne(t *testing.T) {
	rl := NewRateLimiter(1, 0, KeyByClientIP())
	if rl.burst != 1 {
		t.Fatalf("burst = %d, want 1", rl.burst)
	}
}

func TestRateLimiter_EvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByClientIP())
	rl.ttl = time.Millisecond

	rl.getVisitor("ip:stale")
	rl.mu.Lock()
	rl.visitors["ip:stale"].lastSeen = time.Now().Add(-time.Second)
	rl.cleanupN = 4999
	rl.mu.Unlock()

	rl.getVisitor("ip:fresh")

	rl.mu.Lock()
	_, stale := rl.visitors["ip:stale"]
	_, fresh := rl.visitors["ip:fresh"]
	rl.mu.Unlock()
	if stale {
		t.Fatal("idle bucket survived the sweep")
	}
	if !fresh {
		t.Fatal("fresh bucket missing after sweep")
	}
}
