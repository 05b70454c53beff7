package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/VNGato/sistema-estoque/internal/product"
	"github.com/VNGato/sistema-estoque/internal/sale"
)

// APIError is a non-2xx response from the inventory service, with the
// structured code from the body when one was sent.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inventory service: %s (%d %s)", e.Message, e.Status, e.Code)
}

// InsufficientStockError is the 409 refusal of an atomic sale commit.
type InsufficientStockError struct {
	Lines []sale.InsufficientLine
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d line(s)", len(e.Lines))
}

// Client talks to the inventory service over HTTP.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]product.Product, error) {
	var products []product.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) Sell(ctx context.Context, id int64, amount int) (product.Product, error) {
	var p product.Product
	path := fmt.Sprintf("/products/%d/sell", id)
	if err := c.do(ctx, http.MethodPost, path, map[string]int{"amount": amount}, &p); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// SaleRequest is the body of POST /sales.
type SaleRequest struct {
	SaleID     string          `json:"saleId,omitempty"`
	Lines      []sale.Line     `json:"lines"`
	AmountPaid decimal.Decimal `json:"amountPaid"`
}

func (c *Client) CommitSale(ctx context.Context, req SaleRequest) (*sale.Sale, error) {
	var s sale.Sale
	if err := c.do(ctx, http.MethodPost, "/sales", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Error string                  `json:"error"`
		Code  string                  `json:"code"`
		Lines []sale.InsufficientLine `json:"lines"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode == http.StatusConflict && len(body.Lines) > 0 {
		return &InsufficientStockError{Lines: body.Lines}
	}
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Code: body.Code, Message: body.Error}
}
