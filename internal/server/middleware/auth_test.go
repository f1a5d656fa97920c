package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perchhub/perch/internal/token"
)

func testCodec(t *testing.T, now time.Time) *token.Codec {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passwd")
	seeds := make([]byte, token.SeedSize*token.SeedCount)
	for i := range seeds {
		seeds[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, seeds, 0o600))

	store := token.NewSeedStore(path)
	require.NoError(t, store.Load())
	c := token.NewCodec(store)
	c.Clock = func() time.Time { return now }
	return c
}

func authRequest(t *testing.T, a *TokenAuthenticator, path, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	a.Middleware(okHandler()).ServeHTTP(rec, req)
	return rec
}

func TestAuthAcceptsBothWindowTokens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	codec := testCodec(t, now)
	a := NewTokenAuthenticator(codec, false, zap.NewNop(), nil)

	prev, curr, err := codec.ValidTokens(now)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, authRequest(t, a, "/v1/monitor/cpu", "Bearer "+curr).Code)
	assert.Equal(t, http.StatusOK, authRequest(t, a, "/v1/monitor/cpu", "Bearer "+prev).Code)
}

func TestAuthRejectsStaleAndBogusTokens(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	codec := testCodec(t, now)
	a := NewTokenAuthenticator(codec, false, zap.NewNop(), nil)

	stale, err := codec.Token(token.Epoch(now) - 2)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, authRequest(t, a, "/v1/monitor/cpu", "Bearer "+stale).Code)
	assert.Equal(t, http.StatusForbidden, authRequest(t, a, "/v1/monitor/cpu", "Bearer nope").Code)
}

func TestAuthRejectsMissingAndMalformedHeader(t *testing.T) {
	a := NewTokenAuthenticator(testCodec(t, time.Now()), false, zap.NewNop(), nil)

	assert.Equal(t, http.StatusForbidden, authRequest(t, a, "/v1/monitor/cpu", "").Code)
	assert.Equal(t, http.StatusForbidden, authRequest(t, a, "/v1/monitor/cpu", "Basic dXNlcg==").Code)
}

func TestAuthRootAlwaysExempt(t *testing.T) {
	a := NewTokenAuthenticator(testCodec(t, time.Now()), false, zap.NewNop(), nil)
	assert.Equal(t, http.StatusOK, authRequest(t, a, "/", "").Code)
}

func TestAuthDevelopmentBypass(t *testing.T) {
	a := NewTokenAuthenticator(testCodec(t, time.Now()), true, zap.NewNop(), nil)
	assert.Equal(t, http.StatusOK, authRequest(t, a, "/v1/monitor/cpu", "").Code)
}

func TestAuthFailsClosedWithoutSeedFile(t *testing.T) {
	store := token.NewSeedStore(filepath.Join(t.TempDir(), "missing"))
	a := NewTokenAuthenticator(token.NewCodec(store), false, zap.NewNop(), nil)

	assert.Equal(t, http.StatusForbidden, authRequest(t, a, "/v1/monitor/cpu", "Bearer whatever").Code)
}
