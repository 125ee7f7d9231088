// Package geocode wraps the Google Geocoding and Places text-search APIs used
// by the address-entry flow.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/models"
)

// Lookup is what screens need from the geocoder.
type Lookup interface {
	Coordinates(ctx context.Context, address string) models.Coordinates
	Search(ctx context.Context, query string) ([]Place, error)
}

var _ Lookup = (*Client)(nil)

// Place is one text-search candidate.
type Place struct {
	Name             string
	FormattedAddress string
	Coordinates      models.Coordinates
}

// Client calls the maps HTTP API.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
	log     logger.Logger
}

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api"
	requestTimeout = 5 * time.Second
	statusOK       = "OK"
	statusZero     = "ZERO_RESULTS"
)

// ErrNoAPIKey is returned by Search when no key is configured.
var ErrNoAPIKey = errors.New("maps api key not configured")

// NewClient builds a Client. An empty baseURL uses the Google endpoint.
func NewClient(baseURL, apiKey string, log logger.Logger) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse maps url %q: %w", baseURL, err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL: u,
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: requestTimeout},
		log:     log.With(logger.String("component", "geocode")),
	}, nil
}

type geometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

type result struct {
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address"`
	Geometry         geometry `json:"geometry"`
}

type response struct {
	Status       string   `json:"status"`
	ErrorMessage string   `json:"error_message"`
	Results      []result `json:"results"`
}

// Coordinates geocodes a free-text address. It never fails: any error or an
// empty result yields the zero Coordinates so address entry is never blocked.
func (c *Client) Coordinates(ctx context.Context, address string) models.Coordinates {
	address = strings.TrimSpace(address)
	if c == nil || address == "" {
		return models.Coordinates{}
	}
	resp, err := c.get(ctx, "geocode/json", url.Values{"address": {address}})
	if err != nil {
		c.log.Warn("geocode failed", logger.String("address", address), logger.Error(err))
		return models.Coordinates{}
	}
	if len(resp.Results) == 0 {
		c.log.Warn("geocode returned no results", logger.String("address", address))
		return models.Coordinates{}
	}
	loc := resp.Results[0].Geometry.Location
	return models.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}
}

// Search runs a places text search.
func (c *Client) Search(ctx context.Context, query string) ([]Place, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	resp, err := c.get(ctx, "place/textsearch/json", url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}
	places := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		places = append(places, Place{
			Name:             r.Name,
			FormattedAddress: r.FormattedAddress,
			Coordinates:      models.Coordinates{Latitude: r.Geometry.Location.Lat, Longitude: r.Geometry.Location.Lng},
		})
	}
	return places, nil
}

func (c *Client) get(ctx context.Context, endpoint string, values url.Values) (response, error) {
	values.Set("key", c.apiKey)
	reqURL := *c.baseURL
	reqURL.Path = strings.TrimRight(reqURL.Path, "/") + "/" + endpoint
	reqURL.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode >= 400 {
		return response{}, fmt.Errorf("maps %s returned status %d", endpoint, httpResp.StatusCode)
	}
	var payload response
	if err := json.NewDecoder(httpResp.Body).Decode(&payload); err != nil {
		return response{}, fmt.Errorf("decode response: %w", err)
	}
	switch payload.Status {
	case statusOK, statusZero:
		return payload, nil
	default:
		if payload.ErrorMessage != "" {
			return response{}, fmt.Errorf("maps %s: %s: %s", endpoint, payload.Status, payload.ErrorMessage)
		}
		return response{}, fmt.Errorf("maps %s: status %q", endpoint, payload.Status)
	}
}
