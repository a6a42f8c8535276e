package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"cardboard/internal/model"
	"cardboard/internal/web"
)

// StatusError is a non-2xx answer from the backing service.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.Code, strings.TrimSpace(e.Body))
}

// Client talks to a `cardboard serve` instance. It implements persist.Backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote: missing base url")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("remote: invalid base url: %w", err)
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "remote")
	return c, nil
}

func (c *Client) pageURL(pageID string, parts ...string) string {
	u := c.baseURL + "/api/pages/" + url.PathEscape(strings.TrimSpace(pageID))
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u
}

// do sends body as JSON and decodes a JSON answer into out when non-nil.
func (c *Client) do(ctx context.Context, method, u string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return StatusError{Method: method, URL: u, Code: resp.StatusCode, Body: string(msg)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *Client) LoadCards(ctx context.Context, pageID string) ([]model.Card, error) {
	var body web.CardsBody
	if err := c.do(ctx, http.MethodGet, c.pageURL(pageID, "cards"), nil, &body); err != nil {
		return nil, err
	}
	return body.Cards, nil
}

func (c *Client) UpsertCards(ctx context.Context, pageID string, cards []model.Card) error {
	if len(cards) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPut, c.pageURL(pageID, "cards"), web.CardsBody{PageID: pageID, Cards: cards}, nil)
}

func (c *Client) DeleteCard(ctx context.Context, pageID, cardID string) error {
	return c.do(ctx, http.MethodDelete, c.pageURL(pageID, "cards", cardID), nil, nil)
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.baseURL+"/healthz", nil, nil)
}
