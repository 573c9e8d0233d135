// Package analysisclient calls a remote analyze endpoint.
package analysisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"TurtleDesk/internal/domain/models"
	domsvc "TurtleDesk/internal/domain/service"
	xhttp "TurtleDesk/pkg/http"
)

// ErrInvalidResult means the remote answered 2xx with a body that is not a usable result.
var ErrInvalidResult = errors.New("invalid analysis result")

// Client posts AnalysisRequest JSON and validates the decoded result.
type Client struct {
	url      string
	client   *xhttp.Client
	attempts int
}

func New(url string, timeout time.Duration, opts ...xhttp.ClientOption) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &Client{url: url, client: xhttp.NewClient(opts...), attempts: 1}
}

// WithRetry allows up to n attempts on transport errors. Non-2xx answers are never retried.
func (c *Client) WithRetry(n int) *Client {
	if n > 0 {
		c.attempts = n
	}
	return c
}

func (c *Client) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	var (
		res models.AnalysisResult
		err error
	)
	for i := 1; i <= c.attempts; i++ {
		err = c.postJSON(ctx, req, &res)
		var se *xhttp.StatusError
		if err == nil || errors.As(err, &se) || i == c.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if err := xhttp.ValidateStruct(ctx, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	return &res, nil
}

func (c *Client) postJSON(ctx context.Context, payload, dest interface{}) error {
	if c.client == nil || c.url == "" {
		return fmt.Errorf("analysis client not initialized")
	}
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.url,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    payload,
	}, dest)
	if err != nil {
		return fmt.Errorf("post %s: %w", c.url, err)
	}
	return nil
}

var _ domsvc.Analyzer = (*Client)(nil)
