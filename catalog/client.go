package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"mymerch/logger"
	"mymerch/models"
)

const productsCacheKey = "catalog:products:active"

// Client reads the product feed and caches the active products
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
	ttl        time.Duration
	log        *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache enables response caching for ttl
func WithCache(cache Cache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = cache
		c.ttl = ttl
	}
}

// WithLogger sets the logger
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) { c.log = logger.OrNop(log) }
}

// NewClient creates a feed client for baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Products returns active products ordered by display order, then name
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	if c.cache != nil {
		data, ok, err := c.cache.Get(ctx, productsCacheKey)
		if err != nil {
			c.log.Warn("Products: cache read failed", zap.Error(err))
		}
		if ok {
			var products []Product
			if err := json.Unmarshal(data, &products); err == nil {
				return products, nil
			}
			c.log.Warn("Products: ignoring corrupt cache entry")
		}
	}

	products, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if data, err := json.Marshal(products); err == nil {
			if err := c.cache.Set(ctx, productsCacheKey, data, c.ttl); err != nil {
				c.log.Warn("Products: cache write failed", zap.Error(err))
			}
		}
	}
	return products, nil
}

// ProductByID returns an active product or a not found error
func (c *Client) ProductByID(ctx context.Context, id string) (*Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, models.NewNotFoundError("Product %s not found", id)
}

func (c *Client) fetch(ctx context.Context) ([]Product, error) {
	url := c.baseURL + "/api/products?active=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("❌ Products: catalog unreachable", zap.String("url", url), zap.Error(err))
		return nil, models.NewTransportError(err, "Could not load products")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error("❌ Products: unexpected catalog status", zap.Int("status", resp.StatusCode), zap.ByteString("body", body))
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var raw []Product
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	products := make([]Product, 0, len(raw))
	for _, p := range raw {
		if !p.IsActive {
			continue
		}
		p.Category = ParseCategory(string(p.Category))
		products = append(products, p)
	}
	sort.SliceStable(products, func(i, j int) bool {
		if products[i].DisplayOrder != products[j].DisplayOrder {
			return products[i].DisplayOrder < products[j].DisplayOrder
		}
		return products[i].Name < products[j].Name
	})

	c.log.Info("✅ Products: catalog loaded", zap.Int("count", len(products)))
	return products, nil
}
