package tesouro

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultURL is the Tesouro Transparente open-data resource.
const DefaultURL = "https://www.tesourotransparente.gov.br/ckan/dataset/df56aa42-484a-4a59-8184-7676580c81e3/resource/796d2059-14e9-44e3-80c9-2d9e30b405c1/download/PrecoTaxaTesouroDireto.csv"

// Source retrieves the full price/rate table.
type Source interface {
	Fetch(ctx context.Context) (*Table, error)
}

// RawSource exposes the undecoded file, for re-export as-is.
type RawSource interface {
	FetchRaw(ctx context.Context) ([]byte, error)
}

// FetchError reports a failed download. It is never retried.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ClientOptions parameterise the HTTP loader.
type ClientOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// Client downloads and parses the Tesouro Direto CSV.
type Client struct {
	opts   ClientOptions
	logger zerolog.Logger
	client *http.Client
}

// NewClient constructs a loader.
func NewClient(opts ClientOptions, logger zerolog.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if strings.TrimSpace(opts.URL) == "" {
		opts.URL = DefaultURL
	}

	return &Client{
		opts:   opts,
		logger: logger.With().Str("component", "tesouro_client").Logger(),
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and parses the table.
func (c *Client) Fetch(ctx context.Context) (*Table, error) {
	payload, err := c.FetchRaw(ctx)
	if err != nil {
		return nil, err
	}

	table, err := Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Int("quotes", len(table.Quotes)).
		Int("skipped", table.Skipped).
		Int("bytes", len(payload)).
		Msg("tesouro table loaded")
	return table, nil
}

// FetchRaw downloads the file without parsing it.
func (c *Client) FetchRaw(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.URL, nil)
	if err != nil {
		return nil, &FetchError{URL: c.opts.URL, Err: err}
	}
	req.Header.Set("Accept", "text/csv, */*")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "inflacao/1.0")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: c.opts.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{URL: c.opts.URL, StatusCode: resp.StatusCode}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: c.opts.URL, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug().Dur("elapsed", time.Since(start)).Int("bytes", len(payload)).Msg("tesouro csv downloaded")
	return payload, nil
}

var _ Source = (*Client)(nil)
var _ RawSource = (*Client)(nil)
