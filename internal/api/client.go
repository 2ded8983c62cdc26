// Package api provides the typed HTTP gateway to the remote assessment
// service. All network traffic of the client core flows through Client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hrbooteh/assessor/internal/domain"
)

// TokenSource is the gateway's read-only view of stored credentials. Only
// the session manager writes tokens; the gateway merely attaches them.
type TokenSource interface {
	Tokens(ctx context.Context) (access, refresh string, err error)
}

// Client talks to the remote assessment service. It is stateless beyond
// its injected collaborators and applies no retry policy; callers decide
// whether a failure is worth retrying.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  *slog.Logger
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// DefaultClientConfig returns default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "http://localhost:8000/api/v1",
		RequestTimeout: 30 * time.Second,
	}
}

// NewClient creates a gateway client. tokens may be nil for flows that
// never authenticate (health checks).
func NewClient(cfg ClientConfig, tokens TokenSource, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultClientConfig().BaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultClientConfig().RequestTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		tokens:  tokens,
		logger:  logger,
	}
}

// errorBody is the error payload shape used by the backend. FastAPI-style
// services put the human-readable text under "detail".
type errorBody struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do performs one request against the service and decodes a JSON response
// into out (which may be nil). Every failure is normalized to *Error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return &Error{Status: 0, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Status: 0, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		access, _, err := c.tokens.Tokens(ctx)
		if err != nil {
			c.logger.Warn("failed to read stored tokens", "error", err)
		} else if access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	return c.send(req, out)
}

// doAsBearer performs one request using an explicit bearer token instead of
// the stored access token. The refresh endpoint authenticates with the
// refresh token this way.
func (c *Client) doAsBearer(ctx context.Context, method, path, bearer string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return &Error{Status: 0, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return &Error{Status: 0, Message: "network error - unable to connect to server"}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Status: 0, Message: fmt.Sprintf("read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}

	// A 2xx without a JSON body is still a success; leave out zeroed.
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/json" || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("decode response: %v", err),
			Body:    string(raw),
		}
	}
	return nil
}

func newHTTPError(status int, raw []byte) *Error {
	msg := "API request failed"
	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil {
		switch {
		case eb.Detail != "":
			msg = eb.Detail
		case eb.Message != "":
			msg = eb.Message
		case eb.Error != "":
			msg = eb.Error
		}
	} else if text := strings.TrimSpace(string(raw)); text != "" {
		msg = text
	}
	return &Error{Status: status, Message: msg, Body: string(raw)}
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new account and logs it in.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email":     email,
		"password":  password,
		"full_name": fullName,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var out RefreshResponse
	if err := c.doAsBearer(ctx, http.MethodPost, "/auth/refresh", refreshToken, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CurrentUser fetches the account snapshot for the stored access token.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartAssessment opens a new conversation of the given type.
func (c *Client) StartAssessment(ctx context.Context, assessmentType, userContext string) (*StartResponse, error) {
	if userContext == "" {
		userContext = "starting assessment " + assessmentType
	}
	var out StartResponse
	err := c.do(ctx, http.MethodPost, "/assessments/start", map[string]string{
		"assessment_type": assessmentType,
		"user_context":    userContext,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage posts one user message into an open conversation.
func (c *Client) SendMessage(ctx context.Context, assessmentID int64, message string) (*MessageResponse, error) {
	var out MessageResponse
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/assessments/%d/message", assessmentID), map[string]string{
		"message": message,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Results fetches the transcript and analysis of a completed assessment.
func (c *Client) Results(ctx context.Context, assessmentID int64) (*ResultsResponse, error) {
	var out ResultsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/assessments/%d/results", assessmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserAssessments lists every assessment owned by the current user.
func (c *Client) UserAssessments(ctx context.Context) ([]Assessment, error) {
	var out []Assessment
	if err := c.do(ctx, http.MethodGet, "/assessments/user", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AssessmentDetails fetches one assessment with its transcript.
func (c *Client) AssessmentDetails(ctx context.Context, assessmentID int64) (*DetailsResponse, error) {
	var out DetailsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/assessments/%d", assessmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks service availability. The endpoint lives at the server
// root, outside the versioned API prefix, and needs no credentials.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	url := strings.TrimSuffix(c.baseURL, "/api/v1") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Status: 0, Message: fmt.Sprintf("build request: %v", err)}
	}
	var out HealthResponse
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
