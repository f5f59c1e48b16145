package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/account-service/internal/core/port"
)

const rateLimitProblemType = "https://accounts.example.com/errors/rate-limit-exceeded"

// IdentifierFunc resolves the subject a rule counts requests for.
// Returning false skips the rule for this request.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule allows Limit requests per Identifier within a sliding Window.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

func (r RateLimitRule) usable() bool {
	return r.Identifier != nil && r.Limit > 0 && r.Window > 0
}

// ProblemDetails is the RFC 9457 body sent with 429 responses.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
	now    func() time.Time
}

func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// UserIdentifier counts per authenticated user, so it must run after RequireAuth.
func UserIdentifier() IdentifierFunc {
	return GetAuthenticatedUserID
}

// limitDecision is the outcome of one rule for one request.
type limitDecision struct {
	limit     int
	remaining int
	resetAt   time.Time
	blocked   bool
}

func (d limitDecision) retryAfter(now time.Time) int {
	secs := int(math.Ceil(d.resetAt.Sub(now).Seconds()))
	return max(secs, 0)
}

// tighter reports whether d leaves the client less headroom than other.
func (d limitDecision) tighter(other limitDecision) bool {
	if d.remaining != other.remaining {
		return d.remaining < other.remaining
	}
	return d.resetAt.Before(other.resetAt)
}

// RateLimit enforces every rule on each request. The first blocking rule
// ends the request with 429; otherwise the headers describe the rule with
// the least headroom. A failing store lets the request through.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := rules[:0:0]
	for _, rule := range rules {
		if !rule.usable() {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if rl.store == nil || len(active) == 0 {
			c.Next()
			return
		}

		now := rl.now()
		var shown *limitDecision

		for _, rule := range active {
			subject, ok := rule.Identifier(c)
			if !ok || subject == "" {
				continue
			}

			d, err := rl.decide(c, rule, subject, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("identifier", subject),
					zap.Error(err),
				)
				continue
			}

			if d.blocked {
				writeLimitHeaders(c, d, now)
				rl.reject(c, d, now)
				return
			}
			if shown == nil || d.tighter(*shown) {
				shown = &d
			}
		}

		if shown != nil {
			writeLimitHeaders(c, *shown, now)
		}
		c.Next()
	}
}

func (rl *RateLimiter) decide(c *gin.Context, rule RateLimitRule, subject string, now time.Time) (limitDecision, error) {
	w, err := rl.store.Consume(c.Request.Context(), rule.Name+":"+subject, rule.Limit, rule.Window, now)
	if err != nil {
		return limitDecision{}, err
	}

	d := limitDecision{
		limit:   rule.Limit,
		resetAt: now.Add(rule.Window),
		blocked: !w.Allowed,
	}
	if !w.Oldest.IsZero() {
		d.resetAt = w.Oldest.Add(rule.Window)
	}
	if !d.blocked {
		d.remaining = max(rule.Limit-w.Count, 0)
	}
	return d, nil
}

func writeLimitHeaders(c *gin.Context, d limitDecision, now time.Time) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.resetAt.Unix(), 10))
	if d.blocked {
		h.Set("Retry-After", strconv.Itoa(d.retryAfter(now)))
	}
}

func (rl *RateLimiter) reject(c *gin.Context, d limitDecision, now time.Time) {
	wait := d.retryAfter(now)

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      http.StatusText(http.StatusTooManyRequests),
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", wait),
		Instance:   instance,
		RetryAfter: wait,
		TraceID:    GetTraceID(c),
	})
}
