package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cart-gateway/models"
)

// CartClient is the typed transport to the authoritative cart engine.
// Every method returns the engine's full response header set alongside
// the decoded cart: the proxy layer needs each Set-Cookie header
// individually, which a body-only JSON helper would swallow.
type CartClient struct {
	baseURL string
	http    *http.Client
}

func NewCartClient(baseURL string, client *http.Client) *CartClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &CartClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

func (c *CartClient) FetchCart(ctx context.Context, cookie string) (*models.Cart, http.Header, error) {
	return c.do(ctx, http.MethodGet, "/cart", nil, cookie)
}

func (c *CartClient) AddItem(ctx context.Context, product models.ProductInput, quantity int, cookie string) (*models.Cart, http.Header, error) {
	if product.ID <= 0 {
		return nil, nil, &ValidationError{Field: "product", Message: "product id is required"}
	}
	if quantity <= 0 {
		return nil, nil, &ValidationError{Field: "quantity", Message: "quantity must be greater than zero"}
	}
	body := models.AddItemRequest{Product: product, Quantity: quantity}
	return c.do(ctx, http.MethodPost, "/cart/add", body, cookie)
}

func (c *CartClient) UpdateLine(ctx context.Context, lineID string, quantity int, cookie string) (*models.Cart, http.Header, error) {
	if lineID == "" {
		return nil, nil, &ValidationError{Field: "line_id", Message: "line id is required"}
	}
	if quantity < 0 {
		return nil, nil, &ValidationError{Field: "quantity", Message: "quantity must be zero or greater"}
	}
	body := models.UpdateLineRequest{Quantity: &quantity}
	return c.do(ctx, http.MethodPut, "/cart/update/"+url.PathEscape(lineID), body, cookie)
}

func (c *CartClient) RemoveLine(ctx context.Context, lineID string, cookie string) (*models.Cart, http.Header, error) {
	if lineID == "" {
		return nil, nil, &ValidationError{Field: "line_id", Message: "line id is required"}
	}
	return c.do(ctx, http.MethodDelete, "/cart/remove/"+url.PathEscape(lineID), nil, cookie)
}

func (c *CartClient) do(ctx context.Context, method, path string, body interface{}, cookie string) (*models.Cart, http.Header, error) {
	op := fmt.Sprintf("%s %s", method, path)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, &TransportError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// The inbound Cookie header is forwarded verbatim; the gateway never
	// parses or rewrites session cookie attributes.
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, resp.Header, &UpstreamError{Status: resp.StatusCode, Detail: string(detail)}
	}

	var cart models.Cart
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		return nil, resp.Header, &TransportError{Op: op, Err: err}
	}
	return &cart, resp.Header, nil
}
