package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// defaultTimeout bounds every request when the caller supplies no
// http.Client of its own.
const defaultTimeout = 5 * time.Second

// Config holds configuration for creating a Canvas API Client.
//
// Exactly one authentication mode must be configured:
//   - Token authentication: set Token
//   - Session authentication: set SessionCookie (and CSRFToken for writes)
type Config struct {
	// BaseURL is the Canvas host, e.g. "https://school.instructure.com".
	BaseURL string

	// Token is an API access token sent as a Bearer credential.
	Token string

	// SessionCookie is the raw Cookie header of a logged-in browser session.
	SessionCookie string

	// CSRFToken authenticates session writes (X-CSRF-Token header).
	CSRFToken string

	// Timeout bounds each request. Defaults to 5s. Ignored when
	// HTTPClient is set.
	Timeout time.Duration

	// HTTPClient is used for all requests.
	HTTPClient *http.Client

	// Limiter spaces out requests. Nil means no spacing.
	Limiter *rate.Limiter

	// MaxConcurrent caps in-flight requests. Zero means no cap.
	MaxConcurrent int

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a Canvas REST API client.
type Client struct {
	baseURL       string
	token         string
	sessionCookie string
	csrfToken     string
	httpClient    *http.Client
	limiter       *rate.Limiter
	inflight      chan struct{}
	logger        *slog.Logger
}

// NewClient creates a Canvas API client from the given configuration.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("canvas: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("canvas: invalid base URL %q", baseURL)
	}

	hasToken := config.Token != ""
	hasSession := config.SessionCookie != ""
	if hasToken && hasSession {
		return nil, fmt.Errorf("canvas: cannot configure both token and session authentication")
	}
	if !hasToken && !hasSession {
		return nil, fmt.Errorf("canvas: no authentication configured (set Token or SessionCookie)")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var inflight chan struct{}
	if config.MaxConcurrent > 0 {
		inflight = make(chan struct{}, config.MaxConcurrent)
	}

	return &Client{
		baseURL:       baseURL,
		token:         config.Token,
		sessionCookie: config.SessionCookie,
		csrfToken:     config.CSRFToken,
		httpClient:    httpClient,
		limiter:       config.Limiter,
		inflight:      inflight,
		logger:        logger,
	}, nil
}

// BaseURL returns the host the client talks to.
func (client *Client) BaseURL() string {
	return client.baseURL
}

// do executes a request and returns the body of a 2xx response. Non-2xx
// responses are returned as *APIError, transport failures as
// *NetworkError.
func (client *Client) do(ctx context.Context, method, rawURL string, requestBody any) ([]byte, http.Header, error) {
	if method != http.MethodGet && client.token == "" && client.csrfToken == "" {
		return nil, nil, ErrMissingCSRFToken
	}

	if client.limiter != nil {
		if err := client.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	if client.inflight != nil {
		select {
		case client.inflight <- struct{}{}:
			defer func() { <-client.inflight }()
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, nil, fmt.Errorf("canvas: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.resolve(rawURL), bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("canvas: creating request: %w", err)
	}

	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if client.token != "" {
		request.Header.Set("Authorization", "Bearer "+client.token)
	} else {
		request.Header.Set("Cookie", client.sessionCookie)
		if client.csrfToken != "" {
			request.Header.Set("X-CSRF-Token", client.csrfToken)
		}
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, nil, &NetworkError{Method: method, URL: request.URL.String(), Err: err}
	}
	defer response.Body.Close()

	client.logger.Debug("canvas request",
		"method", method,
		"url", request.URL.String(),
		"status", response.StatusCode,
		"rate_limit_remaining", response.Header.Get("X-Rate-Limit-Remaining"),
		"runtime", response.Header.Get("X-Runtime"),
	)

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, nil, &NetworkError{Method: method, URL: request.URL.String(), Err: err}
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, nil, parseAPIError(response.StatusCode, body)
	}

	return body, response.Header, nil
}

// resolve turns an API path or a next-page link into an absolute URL.
func (client *Client) resolve(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	if !strings.HasPrefix(rawURL, "/") {
		rawURL = "/" + rawURL
	}
	return client.baseURL + rawURL
}

// get decodes the JSON body of a GET request into result.
func (client *Client) get(ctx context.Context, path string, result any) error {
	body, _, err := client.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, result)
}

// put sends requestBody and decodes the response into result when non-nil.
func (client *Client) put(ctx context.Context, path string, requestBody any, result any) error {
	body, _, err := client.do(ctx, http.MethodPut, path, requestBody)
	if err != nil {
		return err
	}
	if result != nil {
		return json.Unmarshal(body, result)
	}
	return nil
}

// list creates a PageIterator for a paginated GET endpoint.
func list[T any](client *Client, path string) *PageIterator[T] {
	return NewPageIterator(client.resolve(path), func(ctx context.Context, pageURL string) ([]T, string, error) {
		body, header, err := client.do(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, "", err
		}
		items, err := decodeList[T](body)
		if err != nil {
			return nil, "", fmt.Errorf("canvas: decoding %s: %w", pageURL, err)
		}
		return items, parseLinkNext(header.Get("Link")), nil
	})
}
