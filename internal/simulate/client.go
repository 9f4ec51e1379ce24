package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Client talks to the dashboard API with its own cookie jar, so each Client
// holds one session.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a fresh cookie jar.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type submitRequest struct {
	Time         string  `json:"time"`
	Value        float64 `json:"value"`
	SubmissionID string  `json:"submission_id"`
}

type submitResponse struct {
	Duplicate bool `json:"duplicate"`
	Count     int  `json:"count"`
}

type predictionResponse struct {
	Time       string  `json:"time"`
	Confidence float64 `json:"confidence"`
	Set        bool    `json:"set"`
	Regime     string  `json:"regime"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rdr io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s: %w", ErrRequest, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var ae apiError
		_ = json.Unmarshal(data, &ae)
		return resp.StatusCode, fmt.Errorf("%w: %s %s: %d %s", ErrRequest, method, path, resp.StatusCode, ae.Message)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Health checks that the metrics endpoint answers.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// Login signs in and stores the session cookie in the jar.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/api/login", body, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrSignIn, err)
	}
	return nil
}

// Reset clears the session.
func (c *Client) Reset(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/reset", nil, nil)
	return err
}

// Submit posts one reading; it reports whether the server saw a duplicate.
func (c *Client) Submit(ctx context.Context, r Reading, submissionID string) (bool, error) {
	var out submitResponse
	req := submitRequest{Time: r.Time, Value: r.Value, SubmissionID: submissionID}
	if _, err := c.do(ctx, http.MethodPost, "/api/observations", req, &out); err != nil {
		return false, err
	}
	return out.Duplicate, nil
}

// Prediction fetches the current prediction.
func (c *Client) Prediction(ctx context.Context) (Expected, bool, error) {
	var out predictionResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/prediction", nil, &out); err != nil {
		return Expected{}, false, err
	}
	return Expected{Time: out.Time, Confidence: out.Confidence, Regime: out.Regime}, out.Set, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	return err
}
