package notion

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

	"watchlog/internal/logging"
	"watchlog/internal/services"
)

const (
	// DefaultBaseURL is the public Notion API root.
	DefaultBaseURL = "https://api.notion.com/v1"
	// DefaultVersion is the Notion-Version header the property shapes target.
	DefaultVersion = "2022-06-28"

	defaultHTTPTimeout = 30 * time.Second
	maxErrorBody       = 1 << 20
)

// Client talks to the Notion API. All requests share one Queue.
type Client struct {
	token      string
	baseURL    string
	version    string
	httpClient *http.Client
	queue      *Queue
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL overrides the API root, e.g. for a test server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithVersion overrides the Notion-Version header.
func WithVersion(version string) Option {
	return func(c *Client) {
		if version = strings.TrimSpace(version); version != "" {
			c.version = version
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-attempt HTTP timeout of the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithQueue shares a request queue between clients.
func WithQueue(queue *Queue) Option {
	return func(c *Client) {
		if queue != nil {
			c.queue = queue
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "notion")
	}
}

// New constructs a client for the given integration token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:      strings.TrimSpace(token),
		baseURL:    DefaultBaseURL,
		version:    DefaultVersion,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.queue == nil {
		c.queue = NewQueue(QueueConfig{})
	}
	return c
}

// Queue returns the request queue used by the client.
func (c *Client) Queue() *Queue {
	return c.queue
}

// RetrieveDatabase fetches a database schema.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	var db Database
	if err := c.call(ctx, http.MethodGet, "databases/"+url.PathEscape(databaseID), nil, &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// QueryDatabase runs one page of a database query.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, query QueryRequest) (*QueryResponse, error) {
	var resp QueryResponse
	path := "databases/" + url.PathEscape(databaseID) + "/query"
	if err := c.call(ctx, http.MethodPost, path, query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePage creates a row. req.Parent must name the database.
func (c *Client) CreatePage(ctx context.Context, req PageRequest) (*Page, error) {
	var page Page
	if err := c.call(ctx, http.MethodPost, "pages", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdatePage patches an existing row. Properties absent from req are left
// untouched.
func (c *Client) UpdatePage(ctx context.Context, pageID string, req PageRequest) (*Page, error) {
	var page Page
	if err := c.call(ctx, http.MethodPatch, "pages/"+url.PathEscape(pageID), req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateComment posts a plain-text discussion comment on a page.
func (c *Client) CreateComment(ctx context.Context, pageID, text string) (*Comment, error) {
	body := Comment{
		Parent:   Parent{PageID: pageID},
		RichText: []RichText{{Text: &TextContent{Content: text}}},
	}
	var comment Comment
	if err := c.call(ctx, http.MethodPost, "comments", body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	endpoint := c.baseURL + "/" + path
	var payload []byte
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return services.Wrap(services.ErrValidation, "notion", method+" "+path, "encode body", err)
		}
		payload = encoded
	}

	logger := logging.WithContext(ctx, c.logger)
	started := time.Now()
	resp, err := c.queue.Do(ctx, func(ctx context.Context) (*http.Response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Notion-Version", c.version)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return services.Wrap(services.ErrUpstream, "notion", method+" "+path, "http request", err)
	}
	defer resp.Body.Close()

	logger.Debug("notion request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrUpstream, "notion", method+" "+path, "decode response", err)
	}
	return nil
}

// String describes the client for logs without exposing the token.
func (c *Client) String() string {
	return fmt.Sprintf("notion.Client{base=%s version=%s}", c.baseURL, c.version)
}
