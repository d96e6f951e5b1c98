// README: Amadeus Self-Service client: OAuth2 token cache, shared rate limiter, response cache.
package amadeus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	TestBaseURL       = "https://test.api.amadeus.com"
	ProductionBaseURL = "https://api.amadeus.com"

	tokenPath = "/v1/security/oauth2/token"
	// tokenSkew refreshes the token this long before Amadeus says it expires.
	tokenSkew = 30 * time.Second
)

// Client calls the Amadeus REST APIs. Safe for concurrent use.
type Client struct {
	http         *resty.Client
	clientID     string
	clientSecret string
	limiter      *rate.Limiter
	cache        ResponseCache
	cacheTTL     time.Duration
	now          func() time.Time
	log          zerolog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type Option func(*Client)

// WithBaseURL points the client at another Amadeus environment (or a test server).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.http.SetBaseURL(strings.TrimRight(u, "/")) }
}

// WithRateLimit caps outbound requests per second across every call on this client.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithCache enables caching of hotel and city lookups for ttl.
func WithCache(cache ResponseCache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// NewClient returns a client for the test environment unless WithBaseURL says otherwise.
// Amadeus test keys allow 10 requests per second, which is the default limit.
func NewClient(clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(TestBaseURL).
			SetTimeout(30 * time.Second),
		clientID:     clientID,
		clientSecret: clientSecret,
		limiter:      rate.NewLimiter(rate.Limit(10), 1),
		cacheTTL:     6 * time.Hour,
		now:          time.Now,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether credentials were supplied.
func (c *Client) Configured() bool {
	return c != nil && c.clientID != "" && c.clientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns the cached bearer token, fetching a new one when it is within
// tokenSkew of expiry. The mutex is held across the fetch so concurrent callers share it.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.tokenExpiry) {
		return c.token, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	var out tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     c.clientID,
			"client_secret": c.clientSecret,
		}).
		SetResult(&out).
		Post(tokenPath)
	if err != nil {
		return "", fmt.Errorf("amadeus: token request: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return "", fmt.Errorf("%w: token request rejected: %s", ErrUnauthorized, resp.String())
	}
	if resp.IsError() || out.AccessToken == "" {
		return "", fmt.Errorf("amadeus: token request failed (%d): %s", resp.StatusCode(), resp.String())
	}

	expiresIn := out.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 1799
	}
	c.token = out.AccessToken
	c.tokenExpiry = now.Add(time.Duration(expiresIn)*time.Second - tokenSkew)
	c.log.Debug().Time("expires", c.tokenExpiry).Msg("amadeus token refreshed")
	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// errNotFound marks a provider "no results" answer. Hotel and activity lookups turn it into
// an empty slice; flight and city searches return it as a failure.
var errNotFound = errors.New("amadeus: not found")

// get performs an authenticated GET and returns the raw body.
func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := c.now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("amadeus: GET %s: %w", path, err)
	}
	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode()).
		Dur("latency", c.now().Sub(start)).
		Msg("amadeus request")

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		c.invalidateToken()
		return nil, fmt.Errorf("%w: GET %s (%d)", ErrUnauthorized, path, code)
	case code == http.StatusNotFound || (code >= 400 && isNothingFound(resp.Body())):
		return nil, fmt.Errorf("%w: GET %s (%d): %s", errNotFound, path, code, resp.String())
	case resp.IsError():
		return nil, fmt.Errorf("amadeus: GET %s failed (%d): %s", path, code, resp.String())
	}
	return resp.Body(), nil
}

// isNothingFound recognises the 400 Amadeus returns for e.g. a city code with no hotels.
func isNothingFound(body []byte) bool {
	s := strings.ToLower(string(body))
	return strings.Contains(s, "nothing found") || strings.Contains(s, "not found")
}

func (c *Client) cached(ctx context.Context, key string, v any) bool {
	if c.cache == nil {
		return false
	}
	b, ok := c.cache.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

func (c *Client) store(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.cache.Set(ctx, key, b, c.cacheTTL)
}

// decimal accepts Amadeus amounts sent either as JSON strings or numbers.
type decimal float64

func (d *decimal) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amadeus: decimal %q: %w", s, err)
	}
	*d = decimal(f)
	return nil
}
