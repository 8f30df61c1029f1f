// Package client is a Go SDK for the feature store HTTP API.
//
// Usage:
//
//	c, err := client.New(client.DefaultConfig("http://localhost:8000"))
//	if err != nil {
//		return err
//	}
//
//	_, err = c.Register(ctx, feature.Registration{
//		Name:       "user_age",
//		DataType:   "int",
//		Entity:     "user",
//		TTLSeconds: &ttl,
//	})
//
//	_, err = c.Ingest(ctx, "user_1", []feature.FeatureValue{
//		{FeatureName: "user_age", Value: feature.Int(30)},
//	})
//
//	features, err := c.GetOnline(ctx, "user_1", "user_age")
//
// 5xx answers and transport failures are retried with exponential backoff;
// 4xx answers are returned immediately as *APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/feature-store/pkg/feature"
	"github.com/Sternrassler/feature-store/pkg/retry"
)

// Prometheus metrics for client calls.
var (
	clientRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feature_store_client_requests_total",
		Help: "Total feature store API calls by operation and status",
	}, []string{"operation", "status"})

	clientRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feature_store_client_request_duration_seconds",
		Help:    "Feature store API call duration in seconds by operation",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"operation"})
)


// Config holds the client configuration.
type Config struct {
	// BaseURL of the feature store, e.g. "http://localhost:8000".
	BaseURL string

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// Retry governs retries of 5xx answers and transport failures.
	Retry retry.Policy

	// UserAgent header sent with every request.
	UserAgent string
}

// DefaultConfig returns a default configuration for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		Timeout:   10 * time.Second,
		Retry:     retry.Exponential(),
		UserAgent: "feature-store-go-client/1.0",
	}
}

// Client calls the feature store HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url scheme must be http or https (got %q)", u.Scheme)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig("").Timeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    u,
		config:     cfg,
		logger:     log.With().Str("component", "feature-client").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetLogger replaces the client logger.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// EntityFeatures is the online view of one entity. Missing, expired and
// null values all decode as a null feature.Value.
type EntityFeatures struct {
	EntityID string                   `json:"entity_id"`
	Features map[string]feature.Value `json:"features"`
}

// IngestResult echoes the written features.
type IngestResult struct {
	Message  string   `json:"message"`
	EntityID string   `json:"entity_id"`
	Features []string `json:"features"`
}

// Register adds a feature definition to the catalog.
func (c *Client) Register(ctx context.Context, reg feature.Registration) (feature.Definition, error) {
	var out struct {
		Feature feature.Definition `json:"feature"`
	}
	if err := c.call(ctx, "register", http.MethodPost, "/register", nil, reg, &out); err != nil {
		return feature.Definition{}, err
	}
	return out.Feature, nil
}

// ListFeatures returns every registered definition ordered by id.
func (c *Client) ListFeatures(ctx context.Context) ([]feature.Definition, error) {
	var out struct {
		Features []feature.Definition `json:"features"`
	}
	if err := c.call(ctx, "list_features", http.MethodGet, "/features/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Features, nil
}

// DeleteFeature removes the definition with id. Cached values are untouched.
func (c *Client) DeleteFeature(ctx context.Context, id int64) error {
	path := "/features/" + strconv.FormatInt(id, 10)
	return c.call(ctx, "delete_feature", http.MethodDelete, path, nil, nil, nil)
}

// Ingest writes values for entityID.
func (c *Client) Ingest(ctx context.Context, entityID string, values []feature.FeatureValue) (IngestResult, error) {
	body := struct {
		EntityID string                 `json:"entity_id"`
		Features []feature.FeatureValue `json:"features"`
	}{EntityID: entityID, Features: values}

	var out IngestResult
	if err := c.call(ctx, "ingest", http.MethodPost, "/features/ingest", nil, body, &out); err != nil {
		return IngestResult{}, err
	}
	return out, nil
}

// GetOnline returns names of entityID. Without names every cached feature
// of the entity is returned.
func (c *Client) GetOnline(ctx context.Context, entityID string, names ...string) (EntityFeatures, error) {
	var query url.Values
	if len(names) > 0 {
		query = url.Values{"feature_names": {strings.Join(names, ",")}}
	}
	path := "/features/online/" + url.PathEscape(entityID)

	var out EntityFeatures
	if err := c.call(ctx, "get_online", http.MethodGet, path, query, nil, &out); err != nil {
		return EntityFeatures{}, err
	}
	return out, nil
}

// GetOnlineBatch returns names for each of entityIDs in request order.
func (c *Client) GetOnlineBatch(ctx context.Context, entityIDs []string, names ...string) ([]EntityFeatures, error) {
	body := struct {
		EntityIDs    []string `json:"entity_ids"`
		FeatureNames []string `json:"feature_names,omitempty"`
	}{EntityIDs: entityIDs, FeatureNames: names}

	var out []EntityFeatures
	if err := c.call(ctx, "get_online_batch", http.MethodPost, "/features/online", nil, body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ready reports whether the server answers its readiness probe with READY.
// It is not retried.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, &networkError{err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64))
	return resp.StatusCode == http.StatusOK && strings.TrimSpace(string(body)) == "READY", nil
}

// call performs one API operation with retries and decodes a 2xx body into out.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	startTime := time.Now()
	defer func() {
		clientRequestDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	}()

	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
	}

	return retry.Do(ctx, "client_"+op, c.config.Retry, shouldRetry, func(ctx context.Context) error {
		return c.attempt(ctx, op, method, path, query, payload, out)
	})
}

func (c *Client) attempt(ctx context.Context, op, method, path string, query url.Values, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	c.logger.Debug().
		Str("operation", op).
		Str("method", method).
		Str("path", path).
		Msg("Executing feature store request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		clientRequestsTotal.WithLabelValues(op, "network_error").Inc()
		c.logger.Warn().Err(err).Str("operation", op).Msg("HTTP request failed")
		return &networkError{err: err}
	}
	defer resp.Body.Close()

	clientRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Detail:     readDetail(resp),
		}
		c.logger.Warn().
			Str("operation", op).
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Feature store request error")
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidResponse, op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if strings.HasSuffix(path, "/") && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	return req, nil
}

// readDetail extracts the {"detail": ...} message of an error answer,
// falling back to the status text.
func readDetail(resp *http.Response) string {
	var body struct {
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil && body.Detail != "" {
		return body.Detail
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
