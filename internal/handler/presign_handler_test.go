package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Thanawat984/lysbox-presign/internal/config"
	"github.com/Thanawat984/lysbox-presign/internal/identity"
	"github.com/Thanawat984/lysbox-presign/internal/metrics"
	"github.com/Thanawat984/lysbox-presign/internal/ratelimit"
	"github.com/Thanawat984/lysbox-presign/internal/service"
	"github.com/Thanawat984/lysbox-presign/internal/sigv4"
)

// stubVerifier is a stub implementation of identity.Verifier.
type stubVerifier struct {
	userID string
	err    error
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*identity.Caller, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &identity.Caller{UserID: s.userID}, nil
}

func testRouter(t *testing.T, verifier identity.Verifier, cfg *config.Config) http.Handler {
	t.Helper()

	presignService := service.NewPresignService(verifier, cfg, zerolog.Nop())
	presignHandler := NewPresignHandler(Config{
		PresignService: presignService,
		Metrics:        metrics.New(),
		MaxBodySize:    1 << 20,
		Logger:         zerolog.Nop(),
	})

	return NewRouter(RouterConfig{
		PresignHandler: presignHandler,
		Limiter:        ratelimit.NewNoopLimiter(),
		Logger:         zerolog.Nop(),
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{
			Endpoint:        "https://acct.r2.cloudflarestorage.com",
			Bucket:          "lysbox",
			AccessKeyID:     "AKIDEXAMPLE",
			SecretAccessKey: "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY",
		},
		Signing: config.SigningConfig{
			Region:        sigv4.RegionAuto,
			Service:       sigv4.ServiceS3,
			DefaultExpiry: 15 * time.Minute,
			MaxExpiry:     time.Hour,
		},
		Templates: config.TemplateConfig{Strict: true},
	}
}

func doPresign(t *testing.T, router http.Handler, authHeader string, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/presign", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPresignSuccess(t *testing.T) {
	router := testRouter(t, &stubVerifier{userID: "abc123"}, testConfig())

	rec := doPresign(t, router, "Bearer valid-token",
		`{"mode":"put","path":"u/<user>/<yyyy>/test.png","contentType":"image/png"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp struct {
		URL  string `json:"url"`
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.Path, "u/abc123/"), resp.Path)
	require.Contains(t, resp.URL, "X-Amz-Signature=")
	require.Contains(t, resp.URL, resp.Path)
}

func TestPresignPreflight(t *testing.T) {
	router := testRouter(t, &stubVerifier{userID: "abc123"}, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/v1/presign", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "authorization, x-client-info, apikey, content-type",
		rec.Header().Get("Access-Control-Allow-Headers"))
	require.Zero(t, rec.Body.Len())
}

func TestPresignMissingAuthHeader(t *testing.T) {
	router := testRouter(t, &stubVerifier{userID: "abc123"}, testConfig())

	rec := doPresign(t, router, "", `{"mode":"get","path":"u/<user>/file.txt"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	requireErrorBody(t, rec)
}

func TestPresignRejectedToken(t *testing.T) {
	router := testRouter(t, &stubVerifier{err: identity.ErrUnauthorized}, testConfig())

	rec := doPresign(t, router, "Bearer bad-token", `{"mode":"get","path":"u/<user>/file.txt"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	requireErrorBody(t, rec)
}

func TestPresignInvalidBody(t *testing.T) {
	router := testRouter(t, &stubVerifier{userID: "abc123"}, testConfig())

	tests := []struct {
		name string
		body string
	}{
		{"not json", `mode=put`},
		{"missing path", `{"mode":"put"}`},
		{"unknown mode", `{"mode":"delete","path":"u/<user>/file.txt"}`},
		{"empty body", ``},
		{"negative expiry", `{"mode":"get","path":"u/<user>/f","expiresIn":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doPresign(t, router, "Bearer valid-token", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			requireErrorBody(t, rec)
		})
	}
}

// An invalid body is rejected before the credential is examined, so a
// request that is both unauthenticated and malformed reports the body
// problem first.
func TestPresignInvalidBodyWithoutCredential(t *testing.T) {
	router := testRouter(t, &stubVerifier{userID: "abc123"}, testConfig())

	rec := doPresign(t, router, "", `mode=put`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	requireErrorBody(t, rec)
}

func TestPresignMissingConfiguration(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Bucket = ""
	router := testRouter(t, &stubVerifier{userID: "abc123"}, cfg)

	rec := doPresign(t, router, "Bearer valid-token", `{"mode":"put","path":"u/<user>/file.txt"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	requireErrorBody(t, rec)
}

func TestPresignExpiryCap(t *testing.T) {
	router := testRouter(t, &stubVerifier{userID: "abc123"}, testConfig())

	rec := doPresign(t, router, "Bearer valid-token",
		`{"mode":"get","path":"u/<user>/file.txt","expiresIn":7200}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	requireErrorBody(t, rec)
}

func TestHealthEndpoint(t *testing.T) {
	router := testRouter(t, &stubVerifier{userID: "abc123"}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	router := testRouter(t, &stubVerifier{userID: "abc123"}, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRateLimitRejection(t *testing.T) {
	presignService := service.NewPresignService(&stubVerifier{userID: "abc123"}, testConfig(), zerolog.Nop())
	presignHandler := NewPresignHandler(Config{
		PresignService: presignService,
		Logger:         zerolog.Nop(),
	})
	router := NewRouter(RouterConfig{
		PresignHandler: presignHandler,
		Limiter:        ratelimit.NewMemoryLimiter(1, 1),
		Logger:         zerolog.Nop(),
	})

	first := doPresign(t, router, "Bearer valid-token", `{"mode":"get","path":"u/<user>/f"}`)
	require.Equal(t, http.StatusOK, first.Code)

	second := doPresign(t, router, "Bearer valid-token", `{"mode":"get","path":"u/<user>/f"}`)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}

func requireErrorBody(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Error)
}
