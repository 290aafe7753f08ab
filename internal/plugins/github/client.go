package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cogniteev/easy-upgrade/internal/version"
)

// DefaultAPIURL is the public GitHub REST API root.
const DefaultAPIURL = "https://api.github.com"

const (
	releasesPerPage       = 100
	defaultRequestTimeout = 5 * time.Minute
)

var errBadHTTPStatus = errors.New("unexpected http status")

// RateLimitError indicates GitHub's API rate limit was hit.
type RateLimitError struct {
	StatusCode int
	Status     string
	Remaining  *int
}

func (e *RateLimitError) Error() string {
	remainingText := "unknown"
	if e.Remaining != nil {
		remainingText = strconv.Itoa(*e.Remaining)
	}

	return fmt.Sprintf("github api rate limit exceeded (%s, remaining=%s)", e.Status, remainingText)
}

// IsRateLimitError reports whether err represents a GitHub API rate-limit condition.
func IsRateLimitError(err error) bool {
	var rl *RateLimitError

	return errors.As(err, &rl)
}

// Client talks to the GitHub REST API.
type Client struct {
	baseURL   string
	http      *http.Client
	user      string
	token     string
	limiter   *rate.Limiter
	userAgent string
}

// ClientOptions configure a Client.
type ClientOptions struct {
	// BaseURL is the API root, DefaultAPIURL when empty.
	BaseURL string
	// HTTPClient performs requests, a client with a generous timeout when nil.
	HTTPClient *http.Client
	// BasicAuth is "user:token". Empty means anonymous requests.
	BasicAuth string
	// RateLimit caps requests per second. Zero or less disables limiting.
	RateLimit float64
}

// NewClient builds a client.
func NewClient(opts ClientOptions) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      opts.HTTPClient,
		userAgent: version.UserAgent(),
	}

	if c.baseURL == "" {
		c.baseURL = DefaultAPIURL
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: defaultRequestTimeout}
	}

	if opts.BasicAuth != "" {
		c.user, c.token, _ = strings.Cut(opts.BasicAuth, ":")
	}

	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return c
}

// Releases lists the most recent releases of owner/repo.
func (c *Client) Releases(ctx context.Context, owner, repo string) ([]Release, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		c.baseURL, url.PathEscape(owner), url.PathEscape(repo), releasesPerPage)

	resp, err := c.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	var releases []Release
	if err = json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode releases of %s/%s: %w", owner, repo, err)
	}

	return releases, nil
}

// Download copies the content at rawURL into w.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) error {
	resp, err := c.get(ctx, rawURL, "application/octet-stream")
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if _, err = io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}

	return nil
}

func (c *Client) get(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	if c.user != "" || c.token != "" {
		req.SetBasicAuth(c.user, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer func() {
			_ = resp.Body.Close()
		}()

		if rateLimitErr := rateLimitErrorFromResponse(resp); rateLimitErr != nil {
			return nil, rateLimitErr
		}

		return nil, fmt.Errorf("%s, %s: %w", rawURL, resp.Status, errBadHTTPStatus)
	}

	return resp, nil
}

func rateLimitErrorFromResponse(resp *http.Response) *RateLimitError {
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	// GitHub answers 403 when the quota is exhausted; the header tells it apart from a permission error.
	if resp.StatusCode != http.StatusForbidden {
		return nil
	}

	remaining, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("X-RateLimit-Remaining")))
	if err != nil || remaining != 0 {
		return nil
	}

	return &RateLimitError{StatusCode: resp.StatusCode, Status: resp.Status, Remaining: &remaining}
}
