package gateway

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/soyeahso/concierge/internal/config"
)

// --- safeEqual tests ---

func TestSafeEqual(t *testing.T) {
	assert.True(t, safeEqual("secret", "secret"))
	assert.False(t, safeEqual("secret", "wrong"))
	assert.False(t, safeEqual("short", "longer-string"))
	assert.True(t, safeEqual("", ""))
	assert.False(t, safeEqual("secret", ""))
	assert.False(t, safeEqual("", "secret"))
}

// --- ResolveAuth tests ---

func TestResolveAuth_TokenFromConfig(t *testing.T) {
	t.Setenv(TokenEnv, "env-token")
	auth := ResolveAuth(config.GatewayConfig{Token: "config-token"})
	assert.Equal(t, "config-token", auth.Token)
	assert.Equal(t, "token", auth.Mode())
}

func TestResolveAuth_TokenFromEnv(t *testing.T) {
	t.Setenv(TokenEnv, "env-token")
	auth := ResolveAuth(config.GatewayConfig{})
	assert.Equal(t, "env-token", auth.Token)
}

func TestResolveAuth_NoToken(t *testing.T) {
	t.Setenv(TokenEnv, "")
	auth := ResolveAuth(config.GatewayConfig{})
	assert.Empty(t, auth.Token)
	assert.Equal(t, "none", auth.Mode())
}

// --- Authorize tests ---

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name      string
		server    string
		presented string
		ok        bool
		method    string
		reason    string
	}{
		{"match", "secret", "secret", true, "token", ""},
		{"mismatch", "secret", "wrong", false, "", "token_mismatch"},
		{"missing", "secret", "", false, "", "token required"},
		{"open server", "", "", true, "none", ""},
		{"open server ignores token", "", "anything", true, "none", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Authorize(ResolvedAuth{Token: tt.server}, tt.presented)
			assert.Equal(t, tt.ok, res.OK)
			assert.Equal(t, tt.method, res.Method)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestRequestToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	assert.Empty(t, requestToken(req))

	req.Header.Set("Authorization", "Bearer  abc ")
	assert.Equal(t, "abc", requestToken(req))

	req = httptest.NewRequest("GET", "/ws?token=xyz", nil)
	assert.Equal(t, "xyz", requestToken(req))

	// A non-bearer header falls through to the query parameter.
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	assert.Equal(t, "xyz", requestToken(req))
}

// --- authRateLimiter tests ---

func TestAuthRateLimiter_AllowInitial(t *testing.T) {
	limiter := newAuthRateLimiter()
	assert.True(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_AllowAfterFewFailures(t *testing.T) {
	limiter := newAuthRateLimiter()
	for i := 0; i < 5; i++ {
		limiter.recordFailure("192.168.1.1:12345")
	}
	assert.True(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_BlockAfterMaxFailures(t *testing.T) {
	limiter := newAuthRateLimiter()
	for i := 0; i < authRateMaxFails; i++ {
		limiter.recordFailure("192.168.1.1:12345")
	}
	assert.False(t, limiter.allow("192.168.1.1:54321"), "port is ignored")
	assert.True(t, limiter.allow("192.168.1.2:12345"))
}

func TestAuthRateLimiter_IPWithoutPort(t *testing.T) {
	limiter := newAuthRateLimiter()
	for i := 0; i < authRateMaxFails; i++ {
		limiter.recordFailure("192.168.1.1")
	}
	assert.False(t, limiter.allow("192.168.1.1"))
}

func TestAuthRateLimiter_ExpiredFailures(t *testing.T) {
	limiter := newAuthRateLimiter()
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < authRateMaxFails; i++ {
		limiter.recordFailure("192.168.1.1:12345")
	}
	assert.False(t, limiter.allow("192.168.1.1:12345"))

	now = now.Add(authRateWindow + time.Second)
	assert.True(t, limiter.allow("192.168.1.1:12345"))
}

func TestAuthRateLimiter_Prune(t *testing.T) {
	limiter := newAuthRateLimiter()
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.recordFailure("10.0.0.1:1")
	now = now.Add(authRateWindow + time.Second)
	limiter.recordFailure("10.0.0.2:1")

	limiter.prune()
	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.failures, 1)
	assert.Contains(t, limiter.failures, "10.0.0.2")
}

func TestAuthRateLimiter_CapsTrackedIPs(t *testing.T) {
	limiter := newAuthRateLimiter()
	base := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	i := 0
	limiter.now = func() time.Time { return base.Add(time.Duration(i) * time.Millisecond) }
	for ; i < authRateMaxIPs; i++ {
		limiter.recordFailure(fmt.Sprintf("10.%d.%d.%d", i>>16&0xff, i>>8&0xff, i&0xff))
	}
	limiter.recordFailure("192.168.1.1")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Len(t, limiter.failures, authRateMaxIPs)
	assert.NotContains(t, limiter.failures, "10.0.0.0", "oldest entry is evicted")
	assert.Contains(t, limiter.failures, "192.168.1.1")
}

// --- checkWebSocketOrigin tests ---

func originRequest(origin string) *http.Request {
	req := httptest.NewRequest("GET", "/ws", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	return req
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", nil, "", true},
		{"empty allowed list", nil, "http://evil.com", false},
		{"wildcard", []string{"*"}, "http://anything.com", true},
		{"specific match", []string{"http://allowed.com"}, "http://allowed.com", true},
		{"specific no match", []string{"http://allowed.com"}, "http://evil.com", false},
		{"second of many", []string{"http://one.com", "http://two.com"}, "http://two.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkWebSocketOrigin(tt.allowed)(originRequest(tt.origin)))
		})
	}
}
