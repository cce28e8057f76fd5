package postcode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"musomatch/backend/internal/models"

	"golang.org/x/time/rate"
)

const defaultEndpoint = "https://api.postcodes.io"
const defaultUserAgent = "MusoMatchGeocoder/1.0"

// ClientConfig represents client config.
type ClientConfig struct {
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Client looks postcodes up against the postcodes.io API.
type Client struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// lookupResponse represents the postcodes.io payload.
type lookupResponse struct {
	Status int `json:"status"`
	Result struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		AdminWard string  `json:"admin_ward"`
		Region    string  `json:"region"`
		Country   string  `json:"country"`
	} `json:"result"`
}

// NewClient creates client.
func NewClient(cfg ClientConfig) *Client {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Lookup fetches coordinates for an already normalized postcode. The
// returned error wraps ErrNotFound for unknown postcodes and ErrTransient
// for network, timeout, and server-side failures.
func (c *Client) Lookup(ctx context.Context, normalized string) (models.GeoPoint, error) {
	if c == nil {
		return models.GeoPoint{}, fmt.Errorf("geocoder is not configured: %w", models.ErrTransient)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return models.GeoPoint{}, fmt.Errorf("rate limit wait: %w", models.ErrTransient)
	}

	// The API accepts the compact form; spaces are stripped before the call.
	compact := strings.ReplaceAll(normalized, " ", "")
	reqURL := c.endpoint + "/postcodes/" + url.PathEscape(compact)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.GeoPoint{}, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("geocoder request: %v: %w", err, models.ErrTransient)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return models.GeoPoint{}, fmt.Errorf("postcode %s: %w", normalized, models.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return models.GeoPoint{}, fmt.Errorf("geocoder status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), models.ErrTransient)
	}

	var payload lookupResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return models.GeoPoint{}, fmt.Errorf("geocoder decode: %v: %w", err, models.ErrTransient)
	}
	if payload.Status != http.StatusOK {
		return models.GeoPoint{}, fmt.Errorf("postcode %s: %w", normalized, models.ErrNotFound)
	}

	return models.GeoPoint{
		Lat:     payload.Result.Latitude,
		Lng:     payload.Result.Longitude,
		Ward:    strings.TrimSpace(payload.Result.AdminWard),
		Region:  strings.TrimSpace(payload.Result.Region),
		Country: strings.TrimSpace(payload.Result.Country),
	}, nil
}
