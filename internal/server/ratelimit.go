package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	ragerr "documentor/internal/errors"
)

const (
	visitorCleanupInterval = 5 * time.Minute
	visitorStaleThreshold  = 10 * time.Minute
	defaultMaxVisitors     = 10000
)

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate per IP. Zero disables limiting.
	RequestsPerSecond float64
	// Burst is the maximum burst size per IP.
	Burst int
	// MaxVisitors caps the number of IPs tracked at once. The least recently
	// seen are evicted during cleanup. Default: 10000.
	MaxVisitors int
}

// Validate checks the configuration and applies defaults.
func (c *RateLimitConfig) Validate() error {
	if c.RequestsPerSecond < 0 {
		return ragerr.Errorf(ragerr.CodeConfigInvalid,
			"rate limit requests per second must not be negative (got %g)", c.RequestsPerSecond)
	}
	if c.RequestsPerSecond > 0 && c.Burst <= 0 {
		return ragerr.Errorf(ragerr.CodeConfigInvalid,
			"rate limit burst must be positive when rate is set (got burst=%d, rate=%g)",
			c.Burst, c.RequestsPerSecond)
	}
	if c.MaxVisitors < 0 {
		return ragerr.Errorf(ragerr.CodeConfigInvalid,
			"rate limit max visitors must not be negative (got %d)", c.MaxVisitors)
	}
	if c.MaxVisitors == 0 {
		c.MaxVisitors = defaultMaxVisitors
	}
	return nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors tracks one token bucket per client IP.
type visitors struct {
	mu      sync.Mutex
	cfg     RateLimitConfig
	entries map[string]*visitor
	logger  *slog.Logger
}

func newVisitors(cfg RateLimitConfig, logger *slog.Logger) *visitors {
	return &visitors{
		cfg:     cfg,
		entries: make(map[string]*visitor),
		logger:  logger,
	}
}

// reserve takes a token for ip. When none is available it returns false and
// how long the caller should wait before retrying.
func (v *visitors) reserve(ip string, now time.Time) (bool, time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.entries[ip]
	if !ok {
		e = &visitor{limiter: rate.NewLimiter(rate.Limit(v.cfg.RequestsPerSecond), v.cfg.Burst)}
		v.entries[ip] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops stale visitors and enforces MaxVisitors.
func (v *visitors) sweep(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	type entry struct {
		ip       string
		lastSeen time.Time
	}
	live := make([]entry, 0, len(v.entries))
	for ip, e := range v.entries {
		if now.Sub(e.lastSeen) > visitorStaleThreshold {
			delete(v.entries, ip)
			continue
		}
		live = append(live, entry{ip: ip, lastSeen: e.lastSeen})
	}

	if v.cfg.MaxVisitors <= 0 || len(live) <= v.cfg.MaxVisitors {
		return
	}
	slices.SortFunc(live, func(a, b entry) int {
		return a.lastSeen.Compare(b.lastSeen)
	})
	evict := len(live) - v.cfg.MaxVisitors
	for _, e := range live[:evict] {
		delete(v.entries, e.ip)
	}
	v.logger.Warn("rate limiter visitor map cap enforced",
		"evicted", evict, "max_visitors", v.cfg.MaxVisitors, "remaining", len(v.entries))
}

func (v *visitors) len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.entries)
}

// rateLimitMiddleware enforces per-IP limits on everything but /health.
// It is a pass-through when cfg.RequestsPerSecond is zero. The done channel
// stops the cleanup goroutine.
func rateLimitMiddleware(cfg RateLimitConfig, done <-chan struct{}, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	limiter := newVisitors(cfg, logger)

	go func() {
		ticker := time.NewTicker(visitorCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				limiter.sweep(now)
			case <-done:
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			// RealIP may already have replaced RemoteAddr with a bare address.
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			ok, wait := limiter.reserve(ip, time.Now())
			if !ok {
				logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", retryAfter(wait))
				writeError(w, logger, ragerr.New(ragerr.CodeRequestRateLimited, "rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter renders d as whole seconds, never less than one.
func retryAfter(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
