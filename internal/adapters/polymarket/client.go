package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrShimp/polymarket-robot/internal/domain"
)

const (
	defaultCLOBBase  = "https://clob.polymarket.com"
	defaultGammaBase = "https://gamma-api.polymarket.com"

	// Rate limits at 60% of the documented venue limits.
	// Gamma /markets: 300/10s → 18/s
	gammaRatePerSec = 18
	// CLOB market data (price/book): 500/10s → 30/s
	clobDataRatePerSec = 30
	// CLOB order endpoints are far stricter: 40/10s → 2/s
	orderRatePerSec = 2
)

// Client is the Polymarket HTTP client shared by the feed and the gateway.
// It rate-limits per endpoint family and classifies venue failures into the
// domain error taxonomy. It does NOT retry — retry policy belongs to the
// lifecycle engine, which must reconcile ambiguous outcomes itself.
type Client struct {
	http         *http.Client
	clobBase     string
	gammaBase    string
	apiKey       string
	gammaLimiter *rate.Limiter
	dataLimiter  *rate.Limiter
	orderLimiter *rate.Limiter
}

// NewClient creates a Client for the given base URLs. Empty bases fall back
// to production. The CLOB API key is read from POLY_API_KEY (loaded from
// .env by config.Load).
func NewClient(clobBase, gammaBase string) *Client {
	if clobBase == "" {
		clobBase = defaultCLOBBase
	}
	if gammaBase == "" {
		gammaBase = defaultGammaBase
	}
	return &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		clobBase:     clobBase,
		gammaBase:    gammaBase,
		apiKey:       os.Getenv("POLY_API_KEY"),
		gammaLimiter: rate.NewLimiter(gammaRatePerSec, 10),
		dataLimiter:  rate.NewLimiter(clobDataRatePerSec, 5),
		orderLimiter: rate.NewLimiter(orderRatePerSec, 1),
	}
}

// get performs a rate-limited GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, limiter, req, out)
}

// post performs a rate-limited JSON POST and decodes the response into out.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, limiter, req, out)
}

// del performs a rate-limited DELETE.
func (c *Client) del(ctx context.Context, limiter *rate.Limiter, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	return c.do(ctx, limiter, req, nil)
}

// do executes one request and maps the failure modes onto the domain
// taxonomy. Exactly one attempt: an ambiguous timeout must surface as
// domain.ErrTimeout so the caller can reconcile instead of blindly retrying.
func (c *Client) do(ctx context.Context, limiter *rate.Limiter, req *http.Request, out any) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isNetTimeout(err) {
			return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, domain.ErrTimeout)
		}
		return fmt.Errorf("%s %s: %v: %w", req.Method, req.URL.Path, err, domain.ErrVenueUnknown)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, domain.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, domain.ErrOrderNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s %s: status %d: %w", req.Method, req.URL.Path, resp.StatusCode, domain.ErrVenueUnknown)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return classifyClientError(resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isNetTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
