package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/types"
)

// Client talks to the scoring HTTP API as a given identity.
type Client struct {
	baseURL  string
	http     *http.Client
	retryFor time.Duration
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout, retryFor time.Duration) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: timeout},
		retryFor: retryFor,
	}
}

// Health checks the metrics endpoint answers.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil, "", "")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Criteria lists the service's scoring criteria.
func (c *Client) Criteria(ctx context.Context) ([]model.Criterion, error) {
	var out []model.Criterion
	if err := c.getJSON(ctx, "/api/criteria", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Leaderboard fetches the full leaderboard.
func (c *Client) Leaderboard(ctx context.Context) ([]types.Entry, error) {
	var out []types.Entry
	if err := c.getJSON(ctx, "/api/leaderboard", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Submit posts s as its evaluator. Rate-limited and server-error responses
// are retried with exponential backoff; it reports how many retries it took.
func (c *Client) Submit(ctx context.Context, s Submission) (int, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return 0, err
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 100 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	exp.MaxElapsedTime = c.retryFor

	retries := -1
	op := func() error {
		retries++
		resp, err := c.do(ctx, http.MethodPost, "/api/scores", body, s.Evaluator, string(types.RoleEvaluator))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode == http.StatusCreated:
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("%w: status %d", ErrSubmit, resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("%w: status %d", ErrSubmit, resp.StatusCode))
		}
	}
	err = backoff.Retry(op, backoff.WithContext(exp, ctx))
	return retries, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil, "", "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s: status %d", ErrUnexpected, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrUnexpected, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, identity, role string) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if identity != "" {
		req.Header.Set("X-Identity", identity)
		req.Header.Set("X-Role", role)
	}
	return c.http.Do(req)
}
