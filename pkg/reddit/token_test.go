package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditscraper/pkg/errors"
	"redditscraper/pkg/logger"
)

type tokenServer struct {
	*httptest.Server
	calls     atomic.Int32
	status    int
	body      map[string]interface{}
	delay     time.Duration
	lastUA    string
	lastForm  string
	lastBasic [2]string
	mu        sync.Mutex
}

func newTokenServer(t *testing.T) *tokenServer {
	ts := &tokenServer{
		status: http.StatusOK,
		body:   map[string]interface{}{"access_token": "tok-1", "token_type": "bearer", "expires_in": 3600},
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)
		assert.NoError(t, r.ParseForm())
		user, pass, _ := r.BasicAuth()

		ts.mu.Lock()
		ts.lastUA = r.Header.Get("User-Agent")
		ts.lastForm = r.PostForm.Get("grant_type")
		ts.lastBasic = [2]string{user, pass}
		status, body, delay := ts.status, ts.body, ts.delay
		ts.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) set(status int, body map[string]interface{}) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.status, ts.body = status, body
}

func newTestProvider(ts *tokenServer, opts ...TokenOption) *TokenProvider {
	base := []TokenOption{
		WithTokenURL(ts.URL),
		WithTokenUserAgent("redditscraper-test/1.0"),
		WithTokenLogger(logger.NewNopLogger()),
	}
	return NewTokenProvider(Credentials{ClientID: "id", ClientSecret: "secret"}, append(base, opts...)...)
}

func TestTokenProviderRequestShape(t *testing.T) {
	ts := newTokenServer(t)
	p := newTestProvider(ts)

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.Value)

	assert.Equal(t, "client_credentials", ts.lastForm)
	assert.Equal(t, [2]string{"id", "secret"}, ts.lastBasic)
	assert.Equal(t, "redditscraper-test/1.0", ts.lastUA)
}

func TestTokenProviderCachesWithBuffer(t *testing.T) {
	ts := newTokenServer(t)
	now := time.Now()
	p := newTestProvider(ts, WithClock(func() time.Time { return now }))

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	// expiry is reduced by the five minute buffer
	assert.WithinDuration(t, now.Add(55*time.Minute), tok.ExpiresAt, 5*time.Second)

	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), ts.calls.Load())

	// past the buffered expiry a new token is requested
	now = now.Add(56 * time.Minute)
	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), ts.calls.Load())
}

func TestTokenProviderMissingCredentials(t *testing.T) {
	ts := newTokenServer(t)
	p := NewTokenProvider(Credentials{ClientID: "id", ClientSecret: "  "},
		WithTokenURL(ts.URL), WithTokenLogger(logger.NewNopLogger()))

	_, err := p.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Equal(t, int32(0), ts.calls.Load())
}

func TestTokenProviderFailureClearsCache(t *testing.T) {
	ts := newTokenServer(t)
	now := time.Now()
	p := newTestProvider(ts, WithClock(func() time.Time { return now }))

	_, err := p.Token(context.Background())
	require.NoError(t, err)

	ts.set(http.StatusUnauthorized, map[string]interface{}{"message": "Unauthorized", "error": 401})
	now = now.Add(time.Hour)

	_, err = p.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Contains(t, err.Error(), "(401) Unauthorized")

	p.mu.Lock()
	assert.Equal(t, AccessToken{}, p.cached)
	p.mu.Unlock()
}

func TestTokenProviderErrorDescription(t *testing.T) {
	ts := newTokenServer(t)
	ts.set(http.StatusBadRequest, map[string]interface{}{"error": "invalid_grant", "error_description": "bad client"})
	p := newTestProvider(ts)

	_, err := p.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "(400) bad client")
}

func TestTokenProviderWithoutExpiryIsNotCached(t *testing.T) {
	ts := newTokenServer(t)
	ts.set(http.StatusOK, map[string]interface{}{"access_token": "short", "token_type": "bearer"})
	p := newTestProvider(ts)

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "short", tok.Value)

	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), ts.calls.Load())
}

func TestTokenProviderSharesInFlightRefresh(t *testing.T) {
	ts := newTokenServer(t)
	ts.delay = 100 * time.Millisecond
	p := newTestProvider(ts)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := p.Token(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok-1", tok.Value)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ts.calls.Load())
}

func TestAccessTokenValid(t *testing.T) {
	now := time.Now()
	assert.True(t, AccessToken{Value: "x", ExpiresAt: now.Add(time.Second)}.Valid(now))
	assert.False(t, AccessToken{Value: "x", ExpiresAt: now}.Valid(now))
	assert.False(t, AccessToken{ExpiresAt: now.Add(time.Hour)}.Valid(now))
}
