package gql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// QueryPath is the GraphQL endpoint path relative to the application base url.
const QueryPath = "/modules/gql/query"

// ErrServiceDisabled is returned when the endpoint answers 404, i.e. the gql service setting is off.
var ErrServiceDisabled = errors.New("graphql service disabled")

// Error is a single GraphQL error entry.
type Error struct {
	Message string `json:"message"`
}

// Response is a decoded endpoint response.
type Response struct {
	Data   map[string]any `json:"data"`
	Errors []Error        `json:"errors,omitempty"`
}

// Messages returns error messages in response order.
func (r *Response) Messages() []string {
	res := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		res = append(res, e.Message)
	}
	return res
}

// ClientParams configures Client.
type ClientParams struct {
	BaseURL string
	Timeout time.Duration // request timeout, 10s if zero
	Debug   bool
}

// Client talks to the GraphQL query endpoint directly, bypassing the browser UI.
type Client struct {
	http *resty.Client
}

// NewClient makes a client for the application at params.BaseURL.
func NewClient(params ClientParams) *Client {
	if params.Timeout == 0 {
		params.Timeout = 10 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(params.BaseURL, "/")).
		SetTimeout(params.Timeout).
		SetHeader("Accept", "application/json").
		SetDebug(params.Debug)
	return &Client{http: httpClient}
}

// Query runs query with optional variables. GraphQL level errors are reported through
// Response.Errors, not as error; error is returned for transport failures, non-2xx statuses
// and undecodable bodies.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any) (*Response, error) {
	req := c.http.R().SetContext(ctx).SetQueryParam("q", query)
	if len(variables) > 0 {
		vars, err := json.Marshal(variables)
		if err != nil {
			return nil, fmt.Errorf("marshal variables: %w", err)
		}
		req.SetQueryParam("variables", string(vars))
	}

	resp, err := req.Get(QueryPath)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrServiceDisabled
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("query request: unexpected status %d", resp.StatusCode())
	}

	var res Response
	if err := json.Unmarshal([]byte(StripXSSI(resp.String())), &res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

// Enabled sends a trivial query to the endpoint and reports whether the service answers.
func (c *Client) Enabled(ctx context.Context) (bool, error) {
	_, err := c.Query(ctx, "{ __typename }", nil)
	switch {
	case errors.Is(err, ErrServiceDisabled):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}
