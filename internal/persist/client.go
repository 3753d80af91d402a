// Package persist is the HTTP client for the query document endpoint:
// GET returns the stored tree, POST replaces it.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/solatis/querykeeper/internal/core/auth"
	"github.com/solatis/querykeeper/internal/types"
	"go.uber.org/zap"
)

// ErrBodyTooLarge indicates a request or response above types.MaxDocumentSize.
var ErrBodyTooLarge = errors.New("query document exceeds maximum size")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// Client talks to one data URL.
type Client struct {
	dataURL string
	http    *http.Client
	signer  *auth.Signer
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSigner signs every POST body.
func WithSigner(s *auth.Signer) Option {
	return func(c *Client) { c.signer = s }
}

// WithLogger sets the logger; nil keeps the no-op default.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for dataURL.
func NewClient(dataURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(dataURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid data URL %q", dataURL)
	}

	c := &Client{
		dataURL: dataURL,
		http:    &http.Client{Timeout: timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Load fetches the stored tree.
func (c *Client) Load(ctx context.Context) (*types.RuleGroup, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.dataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", c.dataURL, err)
	}
	defer resp.Body.Close()

	body, err := readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", c.dataURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: http.MethodGet, URL: c.dataURL, Code: resp.StatusCode, Body: snippet(body)}
	}

	tree, err := types.DecodeTree(body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", c.dataURL, err)
	}

	c.logger.Debug("loaded query document",
		zap.String("url", c.dataURL),
		zap.Int("bytes", len(body)))
	return tree, nil
}

// Save posts tree as the request body.
func (c *Client) Save(ctx context.Context, tree *types.RuleGroup) error {
	body, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}
	if len(body) > types.MaxDocumentSize {
		return ErrBodyTooLarge
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dataURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.signer != nil {
		for k, v := range c.signer.Sign(http.MethodPost, req.URL.Path, body).Headers() {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", c.dataURL, err)
	}
	defer resp.Body.Close()

	respBody, _ := readLimited(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: http.MethodPost, URL: c.dataURL, Code: resp.StatusCode, Body: snippet(respBody)}
	}

	c.logger.Debug("saved query document",
		zap.String("url", c.dataURL),
		zap.Int("bytes", len(body)))
	return nil
}

// readLimited reads at most MaxDocumentSize bytes and fails beyond that.
func readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, types.MaxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > types.MaxDocumentSize {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

func snippet(body []byte) string {
	const max = 256
	s := string(bytes.TrimSpace(body))
	if len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut]
	}
	return s
}
