package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eventboard/server/internal/api/problem"
	"github.com/eventboard/server/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic RateLimitTier = "public"
	// TierLogin guards credential endpoints: a burst of N attempts, then one
	// attempt every three minutes.
	TierLogin RateLimitTier = "login"
)

const loginRefill = 3 * time.Minute

var errRateLimited = errors.New("rate limit exceeded")

// TierForRequest maps signup and login to TierLogin and everything else
// to TierPublic.
func TierForRequest(r *http.Request) RateLimitTier {
	if r.Method == http.MethodPost && (r.URL.Path == "/api/login" || r.URL.Path == "/api/signup") {
		return TierLogin
	}
	return TierPublic
}

// RateLimiter holds per-client token buckets. Stale buckets are swept by
// Run until its context ends.
type RateLimiter struct {
	cfg   config.RateLimitConfig
	env   string
	mu    sync.Mutex
	items map[string]*limiterEntry
	now   func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig, env string) *RateLimiter {
	return &RateLimiter{
		cfg:   cfg,
		env:   env,
		items: make(map[string]*limiterEntry),
		now:   time.Now,
	}
}

// Middleware enforces the tier selected by TierForRequest.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		tier := TierForRequest(r)
		limiter := l.limiter(tier, clientKey(r, l.cfg.TrustedProxyCIDRs))
		if limiter != nil && !limiter.Allow() {
			retryAfter := time.Minute
			if tier == TierLogin {
				retryAfter = loginRefill
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too many requests", errRateLimited, l.env)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) limiter(tier RateLimitTier, key string) *rate.Limiter {
	limit := l.cfg.PublicPerMinute
	if tier == TierLogin {
		limit = l.cfg.LoginBurst
	}
	if limit <= 0 {
		return nil
	}

	lookup := string(tier) + ":" + key

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.items[lookup]; ok {
		entry.lastSeen = l.now()
		return entry.limiter
	}

	var limiter *rate.Limiter
	if tier == TierLogin {
		limiter = rate.NewLimiter(rate.Every(loginRefill), limit)
	} else {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit)), limit)
	}
	l.items[lookup] = &limiterEntry{limiter: limiter, lastSeen: l.now()}
	return limiter
}

// Run sweeps buckets idle for more than 15 minutes every 5 minutes.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep(15 * time.Minute)
		case <-ctx.Done():
			return
		}
	}
}

func (l *RateLimiter) sweep(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, entry := range l.items {
		if now.Sub(entry.lastSeen) > ttl {
			delete(l.items, key)
		}
	}
}

// clientKey only trusts X-Forwarded-For / X-Real-IP from configured proxies.
func clientKey(r *http.Request, trustedProxyCIDRs []string) string {
	remoteIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		remoteIP = r.RemoteAddr
	}

	if isTrustedProxy(remoteIP, trustedProxyCIDRs) {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			return strings.TrimSpace(first)
		}
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			return strings.TrimSpace(realIP)
		}
	}
	return remoteIP
}

func isTrustedProxy(ip string, trustedCIDRs []string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}
	for _, cidrStr := range trustedCIDRs {
		_, cidr, err := net.ParseCIDR(cidrStr)
		if err != nil {
			continue
		}
		if cidr.Contains(parsedIP) {
			return true
		}
	}
	return false
}
