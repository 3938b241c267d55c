package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"redditscraper/pkg/errors"
	"redditscraper/pkg/logger"
	"redditscraper/pkg/ratelimit"
)

// DefaultUserAgent identifies the client to Reddit
const DefaultUserAgent = "redditscraper/1.0 (command line explorer)"

const maxErrorBody = 4096

// TokenSource supplies bearer tokens for API requests
type TokenSource interface {
	Token(ctx context.Context) (AccessToken, error)
}

type invalidator interface {
	Invalidate()
}

// RequestObserver sees every completed HTTP exchange. kind is "api" or
// "media"; status is 0 when the transport failed.
type RequestObserver interface {
	ObserveRequest(kind string, status int, duration time.Duration)
}

// Client talks to the authenticated Reddit API and downloads media
type Client struct {
	httpClient  *http.Client
	mediaClient *http.Client
	baseURL     string
	userAgent   string
	tokens      TokenSource
	limiter     ratelimit.Limiter
	observer    RequestObserver
	logger      logger.Logger
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithLimiter paces every authenticated API request
func WithLimiter(l ratelimit.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

func WithRequestObserver(o RequestObserver) ClientOption {
	return func(c *Client) { c.observer = o }
}

// WithHTTPClient replaces the transport used for API and media requests
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
		c.mediaClient = hc
	}
}

// WithMediaTimeout sets the timeout for media downloads
func WithMediaTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		mc := *c.mediaClient
		mc.Timeout = d
		c.mediaClient = &mc
	}
}

// NewClient creates a Reddit API client
func NewClient(tokens TokenSource, timeout time.Duration, log logger.Logger, opts ...ClientOption) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		mediaClient: &http.Client{Timeout: timeout},
		baseURL:     APIBaseURL,
		userAgent:   DefaultUserAgent,
		tokens:      tokens,
		limiter:     ratelimit.Unlimited{},
		logger:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Listing fetches one page of /r/{sub}/{sort}
func (c *Client) Listing(ctx context.Context, subreddit, sort string, opts ListingOptions) (*Page, error) {
	var env listingEnvelope
	if err := c.getJSON(ctx, ListingPath(subreddit, sort), opts, &env); err != nil {
		return nil, err
	}
	return c.decodePage(&env)
}

// Search fetches one page of search results for the request's scope
func (c *Client) Search(ctx context.Context, req SearchRequest) (*Page, error) {
	path, opts := SearchPath(req)
	var env listingEnvelope
	if err := c.getJSON(ctx, path, opts, &env); err != nil {
		return nil, err
	}
	return c.decodePage(&env)
}

// Comments fetches the top-level comments of a post. Entries are returned
// as decoded; filtering is left to the caller.
func (c *Client) Comments(ctx context.Context, subreddit, postID string, limit int) ([]Comment, error) {
	var envs []listingEnvelope
	if err := c.getJSON(ctx, CommentsPath(subreddit, postID), NewCommentOptions(limit), &envs); err != nil {
		return nil, err
	}
	if len(envs) < 2 || envs[1].Data == nil || envs[1].Data.Children == nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: "Unexpected comment data structure from Reddit.",
		}
	}

	comments := make([]Comment, 0, len(envs[1].Data.Children))
	for _, child := range envs[1].Data.Children {
		var cm Comment
		if err := json.Unmarshal(child.Data, &cm); err != nil {
			c.logger.WithError(err).Debug("skipping undecodable comment")
			continue
		}
		comments = append(comments, cm)
	}
	return comments, nil
}

// Download fetches a media URL without API credentials
func (c *Client) Download(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, &errors.Error{Type: errors.ErrorTypeArchiveItem, Message: err.Error(), Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.do("media", c.mediaClient, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil, &errors.Error{
			Type:    errors.ErrorTypeArchiveItem,
			Message: fmt.Sprintf("HTTP error %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError(err)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, opts interface{}, target interface{}) error {
	u, err := BuildURL(c.baseURL, path, opts)
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeUnknown, Message: err.Error(), Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewNetworkError(err)
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &errors.Error{Type: errors.ErrorTypeUnknown, Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+tok.Value)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.do("api", c.httpClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewNetworkError(err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          u,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: "Unexpected API response structure",
			Code:    resp.StatusCode,
			Err:     err,
		}
	}
	return nil
}

func (c *Client) do(kind string, hc *http.Client, req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := hc.Do(req)
	duration := time.Since(start)
	if c.observer != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.observer.ObserveRequest(kind, status, duration)
	}
	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.NewNetworkError(err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// checkResponseStatus turns a non-2xx response into a typed error carrying
// the API's own message when it sent one.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg := http.StatusText(resp.StatusCode)
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body apiErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		msg = body.Message
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if inv, ok := c.tokens.(invalidator); ok {
			inv.Invalidate()
		}
		c.logger.WarnWithFields("bearer token rejected", fields)
	case resp.StatusCode == http.StatusTooManyRequests:
		logger.LogRateLimit(c.logger, resp.Request.URL.Path, 0)
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", fields)
	default:
		c.logger.WarnWithFields("API request rejected", fields)
	}

	return errors.NewFetchError(resp.StatusCode, msg)
}

// decodePost decodes one listing child. When only the media fields have an
// unexpected shape the post is decoded again without them.
func decodePost(data json.RawMessage) (*Post, error) {
	p := new(Post)
	err := json.Unmarshal(data, p)
	if err == nil {
		return p, nil
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(data, &fields) != nil {
		return nil, err
	}
	for _, k := range mediaFields {
		delete(fields, k)
	}
	stripped, merr := json.Marshal(fields)
	if merr != nil {
		return nil, err
	}
	p = new(Post)
	if json.Unmarshal(stripped, p) != nil {
		return nil, err
	}
	p.MalformedMedia = true
	return p, nil
}

func (c *Client) decodePage(env *listingEnvelope) (*Page, error) {
	if env.Data == nil || env.Data.Children == nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: "Unexpected API response structure",
		}
	}

	page := &Page{Posts: make([]*Post, 0, len(env.Data.Children))}
	for _, child := range env.Data.Children {
		p, err := decodePost(child.Data)
		if err != nil {
			c.logger.WithError(err).Warn("skipping undecodable post")
			continue
		}
		if p.MalformedMedia {
			c.logger.WithField("post_id", p.ID).Debug("dropped malformed media payload")
		}
		page.Posts = append(page.Posts, p)
	}
	if env.Data.After != nil {
		page.After = *env.Data.After
	}
	return page, nil
}
