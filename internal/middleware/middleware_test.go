package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gurwinder-gg/LootBazaar/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func walletEcho() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"wallet": GetWallet(c), "account_id": GetAccountID(c)})
	}
}

func TestJWTMiddleware(t *testing.T) {
	router := gin.New()
	router.GET("/me", JWTMiddleware(testSecret), walletEcho())

	valid, err := GenerateToken("acct-1", "alice@example.com", "alice-wallet", JWTConfig{Secret: testSecret, Expiration: time.Hour})
	require.NoError(t, err)
	expired, err := GenerateToken("acct-1", "alice@example.com", "alice-wallet", JWTConfig{Secret: testSecret, Expiration: -time.Minute})
	require.NoError(t, err)
	forged, err := GenerateToken("acct-1", "alice@example.com", "alice-wallet", JWTConfig{Secret: "other", Expiration: time.Hour})
	require.NoError(t, err)
	noWallet, err := GenerateToken("acct-1", "alice@example.com", "", JWTConfig{Secret: testSecret, Expiration: time.Hour})
	require.NoError(t, err)
	noAccount, err := GenerateToken("", "alice@example.com", "alice-wallet", JWTConfig{Secret: testSecret, Expiration: time.Hour})
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Wallet: "alice-wallet"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid token", header: "Bearer " + valid, want: http.StatusOK},
		{name: "missing header", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, want: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expired, want: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + forged, want: http.StatusUnauthorized},
		{name: "no wallet claim", header: "Bearer " + noWallet, want: http.StatusUnauthorized},
		{name: "no account claim", header: "Bearer " + noAccount, want: http.StatusUnauthorized},
		{name: "unsigned token", header: "Bearer " + unsigned, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"wallet":"alice-wallet","account_id":"acct-1"}`, rec.Body.String())
			}
		})
	}
}

func TestMintAuthorityMiddleware(t *testing.T) {
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	tests := []struct {
		name      string
		authority string
		apiKey    string
		headers   map[string]string
		want      int
	}{
		{name: "valid", authority: "issuer", apiKey: "key", headers: map[string]string{"X-Mint-Authority": "issuer", "X-API-Key": "key"}, want: http.StatusNoContent},
		{name: "wrong key", authority: "issuer", apiKey: "key", headers: map[string]string{"X-Mint-Authority": "issuer", "X-API-Key": "nope"}, want: http.StatusUnauthorized},
		{name: "missing key", authority: "issuer", apiKey: "key", headers: map[string]string{"X-Mint-Authority": "issuer"}, want: http.StatusUnauthorized},
		{name: "not the authority", authority: "issuer", apiKey: "key", headers: map[string]string{"X-Mint-Authority": "alice", "X-API-Key": "key"}, want: http.StatusForbidden},
		{name: "disabled", authority: "issuer", apiKey: "", headers: map[string]string{"X-Mint-Authority": "issuer", "X-API-Key": ""}, want: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/mint", MintAuthorityMiddleware(tt.authority, tt.apiKey), ok)

			req := httptest.NewRequest(http.MethodPost, "/mint", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	router := gin.New()
	router.GET("/ping", limiter.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2"), "limits are per caller")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, call("10.0.0.1"), "bucket refills")
}

func TestRequestLoggerAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := metrics.New(prometheus.NewRegistry())

	router := gin.New()
	router.Use(RequestLogger(logger), Metrics(m))
	router.GET("/stakes/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stakes/123", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"path":"/stakes/123"`)
	assert.Contains(t, buf.String(), `"status":404`)

	out := httptest.NewRecorder()
	m.Handler().ServeHTTP(out, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, out.Body.String(), `path="/stakes/:id",status="404"`)
}
