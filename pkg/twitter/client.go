package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dghubble/oauth1"

	"tweetpruner/pkg/config"
	errs "tweetpruner/pkg/errors"
	"tweetpruner/pkg/logger"
	"tweetpruner/pkg/models"
	"tweetpruner/pkg/ratelimit"
)

// Twitter error codes that carry a more specific meaning than the status
const (
	codePageNotFound  = 34
	codeRateLimited   = 88
	codeNoStatusFound = 144
)

const userAgent = "tweetpruner/1.0"

// Client talks to the Twitter REST API with OAuth 1.0a user context
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	v2BaseURL  string
	screenName string
	pageSize   int
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Option customises a Client
type Option func(*Client)

// WithHTTPClient replaces the signing HTTP client, mainly for tests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPageSize sets how many items each page request asks for
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = clampPageSize(n) }
}

// WithLimiter paces every request through l
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// NewClient creates a client signing requests with the configured
// consumer key and access token
func NewClient(cfg *config.TwitterConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	httpClient := oauthConfig.Client(oauth1.NoContext, token)
	httpClient.Timeout = cfg.Timeout

	c := &Client{
		httpClient: httpClient,
		headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		baseURL:    orDefault(cfg.APIBaseURL, BaseURL),
		v2BaseURL:  orDefault(cfg.APIV2BaseURL, V2BaseURL),
		screenName: cfg.ScreenName,
		pageSize:   DefaultPageSize,
		limiter:    ratelimit.Unlimited{},
		logger:     log.WithField("component", "twitter"),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ScreenName returns the account the client pages through
func (c *Client) ScreenName() string {
	return c.screenName
}

// doRequest paces, signs and sends req. Transport failures become network
// errors unless ctx itself has ended.
func (c *Client) doRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if waited := time.Since(waitStart); waited > 50*time.Millisecond {
		logger.LogRateLimit(c.logger, req.URL.Path, waited)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"endpoint": req.URL.Path,
			"error":    err.Error(),
			"duration": elapsed,
		})
		return nil, errs.New(errs.ErrorTypeNetwork, 0, fmt.Sprintf("network error: %v", err))
	}

	logger.LogRequest(c.logger, req.Method, req.URL.Path, resp.StatusCode, elapsed)
	return resp, nil
}

// call sends a request and decodes a successful JSON body into target.
// target may be nil when the body is not needed.
func (c *Client) call(ctx context.Context, method, rawURL string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return errs.New(errs.ErrorTypeUnknown, 0, fmt.Sprintf("failed to create request: %v", err))
	}

	resp, err := c.doRequest(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.New(errs.ErrorTypeNetwork, resp.StatusCode, fmt.Sprintf("failed to read response body: %v", err))
	}

	if err := c.checkResponseStatus(resp, body); err != nil {
		return err
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"endpoint":     req.URL.Path,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, resp.StatusCode, fmt.Sprintf("failed to parse JSON: %v", err))
	}
	return nil
}

// checkResponseStatus turns a non-2xx response into a typed error, using
// the Twitter error codes in the body when they are more specific
func (c *Client) checkResponseStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var payload ErrorResponse
	_ = json.Unmarshal(body, &payload)

	apiErr := errs.FromStatus(resp.StatusCode, payload.Message())
	if apiErr == nil {
		apiErr = errs.New(errs.ErrorTypeUnknown, resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	for _, e := range payload.Errors {
		switch e.Code {
		case codeNoStatusFound, codePageNotFound:
			apiErr.Type = errs.ErrorTypeNotFound
		case codeRateLimited:
			apiErr.Type = errs.ErrorTypeRateLimit
		}
	}

	fields := map[string]interface{}{
		"status":   resp.StatusCode,
		"endpoint": resp.Request.URL.Path,
		"type":     string(apiErr.Type),
		"message":  apiErr.Message,
	}
	if apiErr.Type == errs.ErrorTypeNotFound {
		c.logger.DebugWithFields("resource not found", fields)
	} else {
		c.logger.WarnWithFields("API error", fields)
	}
	return apiErr
}

func (c *Client) fetchPage(ctx context.Context, rawURL string) ([]models.Item, error) {
	var tweets []Tweet
	if err := c.call(ctx, http.MethodGet, rawURL, &tweets); err != nil {
		return nil, err
	}

	items := make([]models.Item, 0, len(tweets))
	for i := range tweets {
		item, err := tweets[i].ToItem()
		if err != nil {
			return nil, errs.New(errs.ErrorTypeParsing, http.StatusOK, err.Error())
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchPostsPage returns up to the page size of the account's own tweets at
// or below cursor, newest first
func (c *Client) FetchPostsPage(ctx context.Context, cursor models.Cursor) ([]models.Item, error) {
	c.logger.DebugWithFields("fetching timeline page", map[string]interface{}{
		"screen_name": c.screenName,
		"cursor":      cursor.String(),
	})
	return c.fetchPage(ctx, UserTimelineURL(c.baseURL, c.screenName, c.pageSize, cursor))
}

// FetchLikedPage returns up to the page size of the account's likes at or
// below cursor, newest first
func (c *Client) FetchLikedPage(ctx context.Context, cursor models.Cursor) ([]models.Item, error) {
	c.logger.DebugWithFields("fetching likes page", map[string]interface{}{
		"screen_name": c.screenName,
		"cursor":      cursor.String(),
	})
	return c.fetchPage(ctx, FavoritesURL(c.baseURL, c.screenName, c.pageSize, cursor))
}

// DeletePost deletes one of the account's tweets
func (c *Client) DeletePost(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPost, DestroyStatusURL(c.baseURL, id), nil)
}

// UnlikePost removes the account's like from a tweet
func (c *Client) UnlikePost(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodPost, DestroyFavoriteURL(c.baseURL, id), nil)
}

// ResolvePinnedItemID looks up the tweet pinned to handle's profile.
// ok is false when nothing is pinned.
func (c *Client) ResolvePinnedItemID(ctx context.Context, handle string) (int64, bool, error) {
	var resp UserLookupResponse
	if err := c.call(ctx, http.MethodGet, UserByUsernameURL(c.v2BaseURL, handle), &resp); err != nil {
		return 0, false, err
	}

	if resp.Data == nil {
		msg := (&ErrorResponse{Errors: resp.Errors}).Message()
		if msg == "" {
			msg = "user lookup returned no data"
		}
		return 0, false, errs.New(errs.ErrorTypeNotFound, http.StatusOK, msg)
	}
	if resp.Data.PinnedTweetID == "" {
		return 0, false, nil
	}

	id, err := strconv.ParseInt(resp.Data.PinnedTweetID, 10, 64)
	if err != nil {
		return 0, false, errs.New(errs.ErrorTypeParsing, http.StatusOK,
			fmt.Sprintf("invalid pinned_tweet_id %q: %v", resp.Data.PinnedTweetID, err))
	}
	return id, true, nil
}
