package reddit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"redditscraper/pkg/errors"
	"redditscraper/pkg/logger"
)

// TokenExpiryBuffer is subtracted from the server-reported expiry
const TokenExpiryBuffer = 5 * time.Minute

// Credentials identify a Reddit "script" or "web" application
type Credentials struct {
	ClientID     string
	ClientSecret string
}

func (c Credentials) complete() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

// AccessToken is a bearer token with its (already buffered) expiry
type AccessToken struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token can be used at now
func (t AccessToken) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// TokenProvider obtains application-only tokens with the client_credentials
// grant and caches them in memory. It is safe for concurrent use; callers
// that arrive during a refresh wait for the same request.
type TokenProvider struct {
	creds      Credentials
	tokenURL   string
	userAgent  string
	httpClient *http.Client
	now        func() time.Time
	logger     logger.Logger

	mu     sync.Mutex
	cached AccessToken
	group  singleflight.Group
}

type TokenOption func(*TokenProvider)

func WithTokenURL(u string) TokenOption {
	return func(p *TokenProvider) { p.tokenURL = u }
}

func WithTokenHTTPClient(c *http.Client) TokenOption {
	return func(p *TokenProvider) { p.httpClient = c }
}

func WithTokenUserAgent(ua string) TokenOption {
	return func(p *TokenProvider) { p.userAgent = ua }
}

func WithClock(now func() time.Time) TokenOption {
	return func(p *TokenProvider) { p.now = now }
}

func WithTokenLogger(l logger.Logger) TokenOption {
	return func(p *TokenProvider) { p.logger = l }
}

// NewTokenProvider creates a provider for the given credentials
func NewTokenProvider(creds Credentials, opts ...TokenOption) *TokenProvider {
	p := &TokenProvider{
		creds:     creds,
		tokenURL:  TokenURL,
		userAgent: DefaultUserAgent,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.GetLogger()
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	p.httpClient = withUserAgent(p.httpClient, p.userAgent)
	return p
}

// Token returns a cached token or requests a new one
func (p *TokenProvider) Token(ctx context.Context) (AccessToken, error) {
	if !p.creds.complete() {
		return AccessToken{}, errors.NewAuthError("API credentials required (client id and secret)", nil)
	}

	p.mu.Lock()
	cached := p.cached
	p.mu.Unlock()
	if cached.Valid(p.now()) {
		return cached, nil
	}

	v, err, shared := p.group.Do("token", func() (interface{}, error) {
		return p.refresh(ctx)
	})
	if err != nil {
		return AccessToken{}, err
	}
	if shared {
		p.logger.Debug("joined in-flight token refresh")
	}
	return v.(AccessToken), nil
}

// Invalidate drops the cached token
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.cached = AccessToken{}
	p.mu.Unlock()
}

func (p *TokenProvider) refresh(ctx context.Context) (AccessToken, error) {
	cfg := clientcredentials.Config{
		ClientID:     p.creds.ClientID,
		ClientSecret: p.creds.ClientSecret,
		TokenURL:     p.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	tok, err := cfg.Token(ctx)
	if err != nil {
		p.Invalidate()
		msg := describeTokenError(err)
		p.logger.WithError(err).Warn("access token request failed")
		return AccessToken{}, errors.NewAuthError(msg, err)
	}

	at := AccessToken{Value: tok.AccessToken}
	if tok.Expiry.IsZero() {
		// no expires_in: usable for this call only
		p.Invalidate()
		return at, nil
	}

	at.ExpiresAt = tok.Expiry.Add(-TokenExpiryBuffer)
	p.mu.Lock()
	p.cached = at
	p.mu.Unlock()

	p.logger.DebugWithFields("access token obtained", map[string]interface{}{
		"expires_at": at.ExpiresAt,
	})
	return at, nil
}

// describeTokenError renders "(status) description" the way the token
// endpoint reports it, falling back to the status text.
func describeTokenError(err error) string {
	var re *oauth2.RetrieveError
	if !stderrors.As(err, &re) || re.Response == nil {
		return fmt.Sprintf("failed to get access token: %v", err)
	}

	status := re.Response.StatusCode
	var body apiErrorBody
	if json.Unmarshal(re.Body, &body) == nil {
		switch {
		case body.ErrorDescription != "":
			return fmt.Sprintf("(%d) %s", status, body.ErrorDescription)
		case body.Message != "":
			return fmt.Sprintf("(%d) %s", status, body.Message)
		case body.Error != nil:
			return fmt.Sprintf("(%d) %v", status, body.Error)
		}
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("(%d) %s", status, text)
	}
	return fmt.Sprintf("(%d) Check Credentials", status)
}

type userAgentTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(r)
}

// withUserAgent returns a copy of c whose transport stamps every request
func withUserAgent(c *http.Client, ua string) *http.Client {
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	clone := *c
	clone.Transport = &userAgentTransport{base: base, ua: ua}
	return &clone
}
