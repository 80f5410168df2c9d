package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/prior-it/clientbook/core"
)

const (
	DefaultBaseURL      = "https://lab.pixel6.co/api"
	DefaultVerifyPath   = "/verify-pan.php"
	DefaultPostcodePath = "/get-postcode-details.php"
)

type Lookup string

const (
	LookupTaxID    Lookup = "tax_id"
	LookupPostcode Lookup = "postcode"
)

type verifyRequest struct {
	PanNumber string `json:"panNumber"`
}

type postcodeRequest struct {
	Postcode string `json:"postcode"`
}

// Client performs enrichment lookups against the remote JSON endpoints.
type Client struct {
	baseURL      string
	verifyPath   string
	postcodePath string
	httpClient   *http.Client
	timeout      time.Duration
	metrics      *Metrics
	logger       *slog.Logger
}

var _ core.Enricher = &Client{}

type Option func(*Client)

// WithHTTPClient replaces the http client that is used to perform lookups.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithPaths changes the endpoints of both lookups, relative to the base url.
// Empty paths keep their default value.
func WithPaths(verifyPath, postcodePath string) Option {
	return func(c *Client) {
		if len(verifyPath) > 0 {
			c.verifyPath = verifyPath
		}
		if len(postcodePath) > 0 {
			c.postcodePath = postcodePath
		}
	}
}

// WithTimeout limits the duration of every lookup. By default lookups never time out.
// The http client passed to WithHTTPClient is not modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new client for the lookups at baseURL, or DefaultBaseURL if baseURL is empty.
func NewClient(baseURL string, opts ...Option) *Client {
	if len(baseURL) == 0 {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		verifyPath:   DefaultVerifyPath,
		postcodePath: DefaultPostcodePath,
		httpClient:   &http.Client{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		client := *c.httpClient
		client.Timeout = c.timeout
		c.httpClient = &client
	}
	return c
}

// VerifyTaxID implements core.Enricher.VerifyTaxID
func (c *Client) VerifyTaxID(ctx context.Context, taxID string) (core.TaxIDVerification, error) {
	var out core.TaxIDVerification
	err := c.post(ctx, LookupTaxID, c.verifyPath, verifyRequest{PanNumber: taxID}, &out)
	if err != nil {
		return core.TaxIDVerification{}, err
	}
	return out, nil
}

// LookupPostcode implements core.Enricher.LookupPostcode
func (c *Client) LookupPostcode(ctx context.Context, postcode string) (core.PostcodeDetails, error) {
	var out core.PostcodeDetails
	err := c.post(ctx, LookupPostcode, c.postcodePath, postcodeRequest{Postcode: postcode}, &out)
	if err != nil {
		return core.PostcodeDetails{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, lookup Lookup, path string, body any, out any) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.observe(lookup, err, time.Since(start))
		if err != nil {
			c.logger.Debug("Enrichment lookup failed", "lookup", lookup, "error", err)
		}
	}()

	payload, err := json.Marshal(body)
	if err != nil {
		return newError(ErrorInternal, lookup, "cannot encode request", err)
	}
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return newError(ErrorInternal, lookup, "cannot create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newError(categoryForTransport(err), lookup, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return newError(
			categoryForStatus(resp.StatusCode),
			lookup,
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, url),
			nil,
		)
	}
	if err := render.DecodeJSON(resp.Body, out); err != nil {
		return newError(ErrorBadData, lookup, "cannot decode response", err)
	}
	if v, ok := out.(*core.TaxIDVerification); ok && v.IsValid && len(v.FullName) == 0 {
		return newError(ErrorBadData, lookup, "tax id verified without a full name", nil)
	}
	return nil
}

func categoryForTransport(err error) ErrorCategory {
	if errors.Is(err, context.Canceled) {
		return ErrorCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}
	return ErrorProviderOutage
}
