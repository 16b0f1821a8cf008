// Package postgrest is a small client for a hosted PostgREST endpoint (/rest/v1).
// It covers what the tenant repositories need: filtered selects with embedded
// relations, insert/update returning the written rows, and delete.
package postgrest

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

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

// TokenSource supplies the bearer token of the signed-in user. An empty token means anonymous
// access, in which case the API key is sent as the bearer.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client issues PostgREST requests against baseURL + "/rest/v1".
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets where the user's access token comes from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// New returns a Client for the project at baseURL using apiKey.
func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// From starts a query on table.
func (c *Client) From(table string) *Query {
	return &Query{c: c, table: table, params: url.Values{}}
}

// Query accumulates filters for one table. Build a fresh Query per request.
type Query struct {
	c      *Client
	table  string
	params url.Values
}

// Select sets the column list, including embedded relations such as "*,users!sales_user_id_fkey(name)".
func (q *Query) Select(columns string) *Query {
	q.params.Set("select", columns)
	return q
}

// Eq adds a column = value filter.
func (q *Query) Eq(column string, value any) *Query {
	q.params.Add(column, "eq."+formatValue(value))
	return q
}

// Order appends an ordering term.
func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	term := column + "." + dir
	if prev := q.params.Get("order"); prev != "" {
		term = prev + "," + term
	}
	q.params.Set("order", term)
	return q
}

// Limit caps the number of rows returned.
func (q *Query) Limit(n int) *Query {
	q.params.Set("limit", strconv.Itoa(n))
	return q
}

// Execute runs a GET and decodes the JSON array into out.
func (q *Query) Execute(ctx context.Context, out any) error {
	return q.c.do(ctx, http.MethodGet, q, nil, out)
}

// Insert POSTs body and decodes the inserted rows (with the current select) into out.
func (q *Query) Insert(ctx context.Context, body any, out any) error {
	return q.c.do(ctx, http.MethodPost, q, body, out)
}

// Update PATCHes the rows matched by the filters and decodes the updated rows into out.
func (q *Query) Update(ctx context.Context, body any, out any) error {
	return q.c.do(ctx, http.MethodPatch, q, body, out)
}

// Delete removes the rows matched by the filters and decodes the deleted rows into out.
// Callers use the returned rows to detect that nothing matched.
func (q *Query) Delete(ctx context.Context, out any) error {
	return q.c.do(ctx, http.MethodDelete, q, nil, out)
}

func (c *Client) do(ctx context.Context, method string, q *Query, body any, out any) error {
	endpoint := c.baseURL + "/rest/v1/" + url.PathEscape(q.table)
	if enc := q.params.Encode(); enc != "" {
		endpoint += "?" + enc
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("postgrest: marshal %s body: %w", q.table, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("postgrest: build request: %w", err)
	}
	bearer := c.apiKey
	if c.tokens != nil {
		tok, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("postgrest: access token: %w", err)
		}
		if tok != "" {
			bearer = tok
		}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("postgrest %s %s: %w", method, q.table, ctxErr)
		}
		return fmt.Errorf("postgrest %s %s: %w: %w", method, q.table, storeerr.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("postgrest: decode %s response: %w", q.table, err)
	}
	return nil
}

// APIError is the error body PostgREST returns for a failed request.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest: %s (status %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("postgrest: %s (status %d)", e.Message, e.Status)
}

// Unwrap maps the response onto the shared store error kinds.
func (e *APIError) Unwrap() error {
	switch {
	case storeerr.IsConstraintCode(e.Code), e.Status == http.StatusConflict:
		return storeerr.ErrConstraint
	case e.Code == "PGRST116", e.Status == http.StatusNotFound:
		return storeerr.ErrNotFound
	case e.Status >= 500:
		return storeerr.ErrUnavailable
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(b, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(b))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
