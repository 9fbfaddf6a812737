// Package remote is the cart service client the storefront controller uses
// as its authoritative store in authenticated mode.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tair/storefront/internal/storefront"
	"github.com/tair/storefront/pkg/breaker"
	"github.com/tair/storefront/pkg/money"
)

type bearerKey struct{}

// WithBearer attaches the caller's access token to ctx. Every request made
// with that context carries it as an Authorization header.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

func bearerFrom(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

// StatusError is a non-2xx answer from the cart service
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("cart service returned %d", e.Code)
	}
	return fmt.Sprintf("cart service returned %d: %s", e.Code, e.Message)
}

// Unwrap reports rejected credentials as storefront.ErrRemoteUnauthorized.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized || e.Code == http.StatusForbidden {
		return storefront.ErrRemoteUnauthorized
	}
	return nil
}

// Client implements storefront.RemoteStore over the cart service HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	breaker *breaker.Breaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds each call. Defaults to 3s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBreaker fails calls fast while b is open.
func WithBreaker(b *breaker.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// NewClient creates a cart service client rooted at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ storefront.RemoteStore = (*Client)(nil)

// lineRequest is the cart service's line mutation body
type lineRequest struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

type lineDTO struct {
	ProductID  string   `json:"product_id"`
	Size       string   `json:"size"`
	Color      string   `json:"color"`
	Quantity   int      `json:"quantity"`
	Name       string   `json:"product_name"`
	PriceCents int64    `json:"unit_price_cents"`
	Images     []string `json:"images"`
}

type productDTO struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	PriceCents         int64    `json:"price_cents"`
	OriginalPriceCents *int64   `json:"original_price_cents"`
	Images             []string `json:"images"`
	Category           string   `json:"category"`
	Sizes              []string `json:"sizes"`
	Colors             []string `json:"colors"`
	Description        string   `json:"description"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) UpsertCartLine(ctx context.Context, userID string, key storefront.LineKey, delta int) error {
	body := lineRequest{ProductID: key.ProductID, Size: key.Size, Color: key.Color, Quantity: delta}
	if err := c.do(ctx, http.MethodPut, c.userPath(userID, "cart", "items"), body, nil); err != nil {
		return fmt.Errorf("failed to upsert cart line: %w", err)
	}
	return nil
}

func (c *Client) SetCartLineQuantity(ctx context.Context, userID string, key storefront.LineKey, quantity int) error {
	body := lineRequest{ProductID: key.ProductID, Size: key.Size, Color: key.Color, Quantity: quantity}
	if err := c.do(ctx, http.MethodPatch, c.userPath(userID, "cart", "items"), body, nil); err != nil {
		return fmt.Errorf("failed to set cart line quantity: %w", err)
	}
	return nil
}

// DeleteCartLine treats a missing line as deleted.
func (c *Client) DeleteCartLine(ctx context.Context, userID string, key storefront.LineKey) error {
	q := url.Values{}
	q.Set("product_id", key.ProductID)
	q.Set("size", key.Size)
	q.Set("color", key.Color)
	path := c.userPath(userID, "cart", "items") + "?" + q.Encode()

	if err := ignoreNotFound(c.do(ctx, http.MethodDelete, path, nil, nil)); err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	return nil
}

func (c *Client) ClearCart(ctx context.Context, userID string) error {
	if err := ignoreNotFound(c.do(ctx, http.MethodDelete, c.userPath(userID, "cart"), nil, nil)); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (c *Client) ListCartLines(ctx context.Context, userID string) ([]storefront.CartLine, error) {
	var dtos []lineDTO
	if err := c.do(ctx, http.MethodGet, c.userPath(userID, "cart"), nil, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list cart lines: %w", err)
	}

	lines := make([]storefront.CartLine, 0, len(dtos))
	for _, d := range dtos {
		lines = append(lines, storefront.CartLine{
			ProductID: d.ProductID,
			Size:      d.Size,
			Color:     d.Color,
			Quantity:  d.Quantity,
			Name:      d.Name,
			Price:     money.Cents(d.PriceCents),
			Images:    d.Images,
		})
	}
	return lines, nil
}

func (c *Client) UpsertFavorite(ctx context.Context, userID, productID string) error {
	if err := c.do(ctx, http.MethodPut, c.userPath(userID, "favorites", productID), nil, nil); err != nil {
		return fmt.Errorf("failed to upsert favorite: %w", err)
	}
	return nil
}

func (c *Client) DeleteFavorite(ctx context.Context, userID, productID string) error {
	if err := ignoreNotFound(c.do(ctx, http.MethodDelete, c.userPath(userID, "favorites", productID), nil, nil)); err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}
	return nil
}

func (c *Client) ListFavorites(ctx context.Context, userID string) ([]storefront.Product, error) {
	var dtos []productDTO
	if err := c.do(ctx, http.MethodGet, c.userPath(userID, "favorites"), nil, &dtos); err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}

	products := make([]storefront.Product, 0, len(dtos))
	for _, d := range dtos {
		products = append(products, d.toProduct())
	}
	return products, nil
}

func (c *Client) userPath(userID string, parts ...string) string {
	escaped := make([]string, 0, len(parts)+3)
	escaped = append(escaped, "api", "users", url.PathEscape(userID))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return "/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	if c.breaker == nil {
		return c.roundTrip(ctx, method, path, in, out)
	}
	if !c.breaker.Allow() {
		return breaker.ErrOpen
	}
	err := c.roundTrip(ctx, method, path, in, out)
	c.breaker.Record(tripping(err))
	return err
}

// tripping drops client errors, which say nothing about service health.
func tripping(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Code < http.StatusInternalServerError {
		return nil
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := bearerFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func ignoreNotFound(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil
	}
	return err
}
