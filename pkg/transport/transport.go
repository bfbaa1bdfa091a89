// Package transport implements the authenticated HTTP transport for the
// SwiftRush API: OAuth2 client-credentials token acquisition with automatic
// refresh, sandbox/production URL selection, and JSON request/response
// plumbing. The delivery engine consumes it through the Transport interface
// so tests can substitute a fake.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/swiftrush/rush-go/pkg/resilience"
)

const (
	sandboxBaseURL    = "https://sandbox-api.swiftrush.com/v1/"
	productionBaseURL = "https://api.swiftrush.com/v1/"
	defaultTokenURL   = "https://login.swiftrush.com/oauth/v2/token"

	scopeSandbox    = "delivery_sandbox"
	scopeProduction = "delivery"

	defaultTimeout = 30 * time.Second
)

// Response carries the status code and raw body of an API call. Non-2xx
// responses are returned as a Response, not an error, so callers can
// distinguish an API rejection from a transport failure.
type Response struct {
	StatusCode int
	Data       json.RawMessage
}

// OK reports whether the response carries a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v interface{}) error {
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Transport is the capability the delivery engine needs from the wire.
type Transport interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string, body interface{}) (*Response, error)
	Put(ctx context.Context, path string, body interface{}) (*Response, error)
}

// Error tags a network-level failure so it is distinguishable from a non-2xx
// API response.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransportError reports whether err is a network-level transport failure.
func IsTransportError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

// Config configures a transport handle. Each client owns its transport; no
// token state is shared between clients.
type Config struct {
	ClientID     string
	ClientSecret string
	ServerToken  string
	Sandbox      bool

	// BaseURL and TokenURL override the environment-derived defaults; used
	// by tests and the in-process sandbox.
	BaseURL  string
	TokenURL string

	Timeout time.Duration
	Logger  *zap.Logger
}

// Client is the HTTP implementation of Transport.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New builds an authenticated transport from the config. The returned client
// fetches and refreshes its OAuth token lazily on first use.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client_id must be provided")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client_secret must be provided")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Sandbox {
			baseURL = sandboxBaseURL
		} else {
			baseURL = productionBaseURL
		}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}

	scope := scopeProduction
	if cfg.Sandbox {
		scope = scopeSandbox
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	oauth := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{scope},
	}
	if cfg.ServerToken != "" {
		oauth.EndpointParams = url.Values{"server_token": {cfg.ServerToken}}
	}

	retryConfig := resilience.DefaultRetryConfig()
	retryConfig.RetryableChecker = retryableTokenError
	tokens := &retryTokenSource{
		source: oauth.TokenSource(context.Background()),
		retry:  retryConfig,
	}
	httpClient := oauth2.NewClient(context.Background(), tokens)
	httpClient.Timeout = timeout

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// retryTokenSource retries token acquisition with exponential back-off. The
// wrapped source caches valid tokens, so retries only happen on an actual
// fetch. Auth rejections are permanent and fail immediately; transient
// failures (network errors, 5xx from the token endpoint) are retried.
type retryTokenSource struct {
	source oauth2.TokenSource
	retry  resilience.RetryConfig
}

func (s *retryTokenSource) Token() (*oauth2.Token, error) {
	result, err := resilience.Retry(context.Background(), s.retry, func(context.Context) (interface{}, error) {
		return s.source.Token()
	})
	if err != nil {
		return nil, err
	}
	return result.(*oauth2.Token), nil
}

func retryableTokenError(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.Response.StatusCode >= 500
	}
	return true
}

// Get issues a GET request against the API.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST request with a JSON body against the API.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put issues a PUT request with a JSON body against the API.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: method, Path: path, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+strings.TrimPrefix(path, "/"), reader)
	if err != nil {
		return nil, &Error{Op: method, Path: path, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: method, Path: path, Err: err}
	}

	c.logger.Debug("api response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return &Response{StatusCode: resp.StatusCode, Data: data}, nil
}
