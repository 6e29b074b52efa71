package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/respond"
)

// Quota allows Rate operations per second with bursts of up to Burst.
type Quota struct {
	Rate  float64
	Burst int
}

func (q Quota) unlimited() bool { return q.Rate <= 0 || q.Burst <= 0 }

// ThrottleConfig guards batch operations on a company's portfolio. Operation names the
// operation a request triggers ("" for none); operations without a quota are not throttled.
// Each caller gets a separate allowance per company.
type ThrottleConfig struct {
	Quotas    map[string]Quota
	Operation func(*gin.Context) string
	Limiter   *Limiter
}

// Limiter keeps one allowance per (operation, company, caller).
type Limiter struct {
	mu         sync.Mutex
	allowances map[allowanceKey]*allowance
	now        func() time.Time
}

type allowanceKey struct {
	operation string
	company   string
	caller    string
}

type allowance struct {
	tokens  float64
	updated time.Time
}

func NewLimiter(now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{allowances: make(map[allowanceKey]*allowance), now: now}
}

// Throttle rejects a company's batch operations with 429 once the caller's allowance is spent.
func Throttle(cfg ThrottleConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewLimiter(nil)
	}
	return func(c *gin.Context) {
		if cfg.Operation == nil {
			c.Next()
			return
		}
		op := strings.TrimSpace(cfg.Operation(c))
		quota, ok := cfg.Quotas[op]
		if op == "" || !ok {
			c.Next()
			return
		}
		key := allowanceKey{
			operation: op,
			company:   strings.ToLower(strings.TrimSpace(c.Param("company"))),
			caller:    c.ClientIP(),
		}
		wait, ok := cfg.Limiter.take(key, quota)
		if ok {
			c.Next()
			return
		}
		waitMs := wait.Milliseconds()
		if waitMs <= 0 {
			waitMs = 1000
		}
		c.Header("Retry-After", strconv.FormatInt((waitMs+999)/1000, 10))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many "+strings.ToLower(op)+" requests for this company", gin.H{
			"operation":    op,
			"company":      key.company,
			"retryAfterMs": waitMs,
		})
	}
}

// take spends one token from the allowance. When none is left it reports how long until one is.
func (l *Limiter) take(key allowanceKey, q Quota) (time.Duration, bool) {
	if l == nil || q.unlimited() {
		return 0, true
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	a := l.allowances[key]
	if a == nil {
		a = &allowance{tokens: float64(q.Burst), updated: now}
		l.allowances[key] = a
	}
	if dt := now.Sub(a.updated).Seconds(); dt > 0 {
		a.tokens = math.Min(float64(q.Burst), a.tokens+dt*q.Rate)
		a.updated = now
	}
	if a.tokens >= 1 {
		a.tokens--
		return 0, true
	}
	ms := math.Ceil((1 - a.tokens) / q.Rate * 1000)
	return time.Duration(ms) * time.Millisecond, false
}
