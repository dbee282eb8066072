// Package search is the client for the external image-search provider.
// It forwards a query and reshapes the provider response into at most
// MaxResults SearchResult items.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/imgsearch/internal/logger"
	"github.com/patric-chuzhbe/imgsearch/internal/models"
)

const (
	DefaultEndpoint = "https://serpapi.com/search.json"
	DefaultEngine   = "google_images"

	// MaxResults caps the number of images returned per query.
	MaxResults = 12
)

// ErrProviderResponse wraps transport failures and undecodable provider bodies.
var ErrProviderResponse = errors.New("search provider error")

// providerImage keeps the projected fields as raw JSON so that any value
// the provider sends is passed through unchanged.
type providerImage struct {
	Title     json.RawMessage `json:"title"`
	Thumbnail json.RawMessage `json:"thumbnail"`
	Source    json.RawMessage `json:"source"`
}

// providerResponse defers decoding of individual images until after the
// list is capped, so entries that are never returned cannot fail a search.
type providerResponse struct {
	ImagesResults []json.RawMessage `json:"images_results"`
}

// Client calls the provider synchronously; there is no retry or caching.
type Client struct {
	http     *resty.Client
	endpoint string
	engine   string
}

// InitOption configures a Client.
type InitOption func(*Client)

// WithHTTPClient replaces the underlying resty client.
func WithHTTPClient(httpClient *resty.Client) InitOption {
	return func(c *Client) {
		c.http = httpClient
	}
}

// New creates a Client. Empty endpoint or engine fall back to the defaults.
func New(endpoint, engine string, optionsProto ...InitOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if engine == "" {
		engine = DefaultEngine
	}

	c := &Client{
		http:     resty.New(),
		endpoint: endpoint,
		engine:   engine,
	}
	for _, protoOption := range optionsProto {
		protoOption(c)
	}

	return c
}

// SearchImages queries the provider with apiKey. The body is decoded as
// JSON regardless of the HTTP status; a response without images_results
// yields an empty, non-nil slice.
func (c *Client) SearchImages(ctx context.Context, query, apiKey string) ([]models.SearchResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"engine":  c.engine,
			"q":       query,
			"api_key": apiKey,
		}).
		Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderResponse, err)
	}

	if resp.IsError() {
		logger.Log.Warnw("search provider returned an error status", "status", resp.StatusCode())
	}

	var decoded providerResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderResponse, err)
	}

	images := decoded.ImagesResults
	if len(images) > MaxResults {
		images = images[:MaxResults]
	}

	results := make([]models.SearchResult, 0, len(images))
	for _, raw := range images {
		results = append(results, projectImage(raw))
	}

	return results, nil
}

// projectImage picks title, thumbnail and source out of one provider entry.
// An entry that is not a JSON object projects to all nulls.
func projectImage(raw json.RawMessage) models.SearchResult {
	var image providerImage
	if err := json.Unmarshal(raw, &image); err != nil {
		logger.Log.Debugln("Error calling the `json.Unmarshal()` for a provider image: ", zap.Error(err))
		return models.SearchResult{}
	}

	return models.SearchResult{
		Title:     image.Title,
		Thumbnail: image.Thumbnail,
		Source:    image.Source,
	}
}
