package relay

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

	"github.com/listenupapp/marginalia/internal/domain"
	"github.com/listenupapp/marginalia/internal/errors"
	"github.com/listenupapp/marginalia/internal/exchange"
	"github.com/listenupapp/marginalia/internal/http/response"
	"github.com/listenupapp/marginalia/internal/logger"
)

// maxResponse bounds how much of a fetch response the client reads.
const maxResponse = 64 << 20

// Client publishes to and fetches from a relay server. It implements
// exchange.Transport.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a client for the relay at baseURL. A nil httpClient
// gets a 30 second timeout.
func NewClient(baseURL string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	// 2 per second, burst of 5: inside the server's default budget.
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		rateLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 5),
		logger:      logger.OrDiscard(log),
	}
}

var _ exchange.Transport = (*Client)(nil)

func (c *Client) syncURL(code string) string {
	return c.baseURL + "/api/v1/sync/" + url.PathEscape(code)
}

// Publish implements exchange.Transport.
func (c *Client) Publish(ctx context.Context, code string, p *domain.Payload) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.syncURL(code), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("publish request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return readError(resp)
	}

	c.logger.Debug("published to relay", "code", code, "size", len(body))
	return nil
}

// Fetch implements exchange.Transport. A 404 from the relay is reported as
// ok=false.
func (c *Client) Fetch(ctx context.Context, code string) (*domain.Payload, bool, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, false, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.syncURL(code), nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, false, nil
	default:
		return nil, false, readError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}
	p, err := exchange.DecodePayload(data)
	if err != nil {
		return nil, false, errors.Malformed(err, "relay returned an invalid payload")
	}

	c.logger.Debug("fetched from relay", "code", code, "size", len(data))
	return p, true, nil
}

// readError turns a relay error response into a domain error carrying the
// relay's code and message.
func readError(resp *http.Response) error {
	var body response.ErrorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil || body.Code == "" {
		return errors.Internalf("relay responded %d", resp.StatusCode)
	}
	return &errors.Error{Code: errors.Code(body.Code), Message: "relay: " + body.Message, Details: body.Details}
}
