package gateway

import (
	"crypto/subtle"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/concierge/internal/config"
)

// TokenEnv overrides an empty gateway.token.
const TokenEnv = "CONCIERGE_GATEWAY_TOKEN"

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"` // "token" | "none"
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth holds the token the gateway expects. An empty token
// disables authentication.
type ResolvedAuth struct {
	Token string
}

// Mode reports how clients are authenticated.
func (a ResolvedAuth) Mode() string {
	if a.Token == "" {
		return "none"
	}
	return "token"
}

// ResolveAuth resolves the gateway token.
// Precedence: config value → env variable → empty.
func ResolveAuth(cfg config.GatewayConfig) ResolvedAuth {
	token := cfg.Token
	if token == "" {
		token = os.Getenv(TokenEnv)
	}
	return ResolvedAuth{Token: token}
}

// Authorize checks a presented token against the resolved server auth.
func Authorize(serverAuth ResolvedAuth, presented string) AuthResult {
	if serverAuth.Token == "" {
		return AuthResult{OK: true, Method: "none"}
	}
	if presented == "" {
		return AuthResult{OK: false, Reason: "token required"}
	}
	if !safeEqual(presented, serverAuth.Token) {
		return AuthResult{OK: false, Reason: "token_mismatch"}
	}
	return AuthResult{OK: true, Method: "token"}
}

// requestToken extracts a bearer token from the Authorization header, or
// the token query parameter for browsers that cannot set headers on a
// WebSocket upgrade.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return r.URL.Query().Get("token")
}

// safeEqual performs a constant-time string comparison.
func safeEqual(a, b string) bool {
	// Pad to equal length so the comparison time does not leak len(b).
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	pa := make([]byte, maxLen)
	pb := make([]byte, maxLen)
	copy(pa, a)
	copy(pb, b)
	eq := subtle.ConstantTimeCompare(pa, pb)
	return subtle.ConstantTimeSelect(subtle.ConstantTimeEq(int32(len(a)), int32(len(b))), eq, 0) == 1
}

// authRateLimiter tracks failed auth attempts per IP to prevent brute-force attacks.
type authRateLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	now      func() time.Time
}

const (
	authRateWindow   = 5 * time.Minute
	authRateMaxFails = 10
	authRateMaxIPs   = 10000 // max tracked IPs to prevent memory exhaustion
)

func newAuthRateLimiter() *authRateLimiter {
	return &authRateLimiter{failures: make(map[string][]time.Time), now: time.Now}
}

// run prunes stale entries every minute until done is closed.
func (l *authRateLimiter) run(done <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			l.prune()
		}
	}
}

func (l *authRateLimiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-authRateWindow)
	for ip := range l.failures {
		l.recentLocked(ip, cutoff)
	}
}

// recentLocked drops failures older than cutoff and returns how many remain.
func (l *authRateLimiter) recentLocked(host string, cutoff time.Time) int {
	times := l.failures[host]
	filtered := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		delete(l.failures, host)
		return 0
	}
	l.failures[host] = filtered
	return len(filtered)
}

func (l *authRateLimiter) allow(remoteAddr string) bool {
	host := hostOf(remoteAddr)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recentLocked(host, l.now().Add(-authRateWindow)) < authRateMaxFails
}

func (l *authRateLimiter) recordFailure(remoteAddr string) {
	host := hostOf(remoteAddr)
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.failures[host]; !exists && len(l.failures) >= authRateMaxIPs {
		var oldestIP string
		var oldestTime time.Time
		for ip, times := range l.failures {
			if len(times) > 0 && (oldestIP == "" || times[0].Before(oldestTime)) {
				oldestIP = ip
				oldestTime = times[0]
			}
		}
		delete(l.failures, oldestIP)
	}
	l.failures[host] = append(l.failures[host], l.now())
}

func hostOf(remoteAddr string) string {
	host, _, _ := net.SplitHostPort(remoteAddr)
	if host == "" {
		return remoteAddr
	}
	return host
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin headers.
// Requests without an Origin (non-browser clients) are always allowed;
// otherwise the Origin must match one of the allowed entries.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return isOriginAllowed(origin, allowed)
	}
}
