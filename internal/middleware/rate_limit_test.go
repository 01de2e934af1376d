package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("ip:1.2.3.4"), "call %d", i)
	}
	assert.False(t, rl.Allow("ip:1.2.3.4"))

	// Keys are independent buckets.
	assert.True(t, rl.Allow("ip:5.6.7.8"))
}

func TestRateLimiter_EvictStale(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)

	assert.True(t, rl.Allow("ip:1.2.3.4"))
	assert.False(t, rl.Allow("ip:1.2.3.4"))

	// Idle keys are dropped; an untouched key survives.
	assert.True(t, rl.Allow("ip:5.6.7.8"))
	rl.mu.Lock()
	rl.buckets["ip:1.2.3.4"].lastRefill = time.Now().Add(-time.Hour)
	rl.mu.Unlock()

	rl.evictStale(time.Now().Add(-30 * time.Minute))

	rl.mu.Lock()
	_, exhaustedKept := rl.buckets["ip:1.2.3.4"]
	_, freshKept := rl.buckets["ip:5.6.7.8"]
	rl.mu.Unlock()
	assert.False(t, exhaustedKept)
	assert.True(t, freshKept)

	// The evicted key starts over with a full bucket.
	assert.True(t, rl.Allow("ip:1.2.3.4"))
}

func TestRateLimiter_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(2, time.Hour)

	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
