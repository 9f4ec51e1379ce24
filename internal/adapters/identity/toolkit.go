package identity

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

	"github.com/okian/cadence/pkg/logger"
)

const (
	signInPath         = "/accounts:signInWithPassword"
	defaultToolkitWait = 5 * time.Second
	maxErrorBody       = 64 << 10
)

// ToolkitClient signs in against an identity toolkit REST endpoint.
type ToolkitClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	log        logger.Logger
}

var _ Authenticator = (*ToolkitClient)(nil)

// ToolkitOption configures a ToolkitClient.
type ToolkitOption func(*ToolkitClient)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) ToolkitOption {
	return func(t *ToolkitClient) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// WithTimeout bounds one sign-in round trip.
func WithTimeout(d time.Duration) ToolkitOption {
	return func(t *ToolkitClient) {
		if d > 0 {
			t.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) ToolkitOption {
	return func(t *ToolkitClient) {
		if l != nil {
			t.log = l
		}
	}
}

// NewToolkitClient creates a client for endpoint, e.g.
// "https://identitytoolkit.googleapis.com/v1".
func NewToolkitClient(endpoint, apiKey string, opts ...ToolkitOption) *ToolkitClient {
	t := &ToolkitClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultToolkitWait},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignIn implements Authenticator.
func (t *ToolkitClient) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = NormalizeEmail(email)
	if err := checkInput(email, password); err != nil {
		return Identity{}, err
	}

	body, err := json.Marshal(signInRequest{Email: email, Password: password, ReturnSecureToken: true})
	if err != nil {
		return Identity{}, fmt.Errorf("marshal sign-in request: %w", err)
	}

	u := t.endpoint + signInPath + "?key=" + url.QueryEscape(t.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return Identity{}, fmt.Errorf("build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.Warn(ctx, "identity provider unreachable", logger.Error(err))
		return Identity{}, newError(ErrUnavailable, CodeUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		var out signInResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.log.Warn(ctx, "identity provider returned malformed body", logger.Error(err))
			return Identity{}, newError(ErrUnavailable, CodeUnavailable)
		}
		if out.Email == "" {
			out.Email = email
		}
		return Identity{Email: out.Email, LocalID: out.LocalID, IDToken: out.IDToken}, nil
	}

	return Identity{}, t.classify(ctx, resp)
}

// classify maps a non-200 response to an *Error. Provider messages look like
// "INVALID_PASSWORD" or "TOO_MANY_ATTEMPTS_TRY_LATER : Access to this account...".
func (t *ToolkitClient) classify(ctx context.Context, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var er errorResponse
	code := ""
	if err := json.Unmarshal(raw, &er); err == nil {
		code, _, _ = strings.Cut(er.Error.Message, " ")
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		t.log.Warn(ctx, "identity provider failed", logger.Int("status", resp.StatusCode))
		return newError(ErrUnavailable, CodeUnavailable)
	case strings.HasPrefix(code, "TOO_MANY_ATTEMPTS"), resp.StatusCode == http.StatusTooManyRequests:
		return newError(ErrRateLimited, CodeTooManyAttempts)
	case code == "":
		return newError(ErrInvalidCredentials, CodeInvalidCredentials)
	default:
		return newError(ErrInvalidCredentials, code)
	}
}
