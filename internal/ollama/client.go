// Package ollama is a minimal client for the Ollama generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// ClientError carries the failure category so callers can map it without
// string matching.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any *ClientError of the same Type, so errors.Is(err, ErrTimeout)
// works for wrapped instances with a cause.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeTimeout
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeCanceled
)

var (
	ErrNotRunning      = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrTimeout         = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrModelNotFound   = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
	ErrConnection      = &ClientError{Type: ErrTypeConnection, Message: "connection failed"}
	ErrInvalidResponse = &ClientError{Type: ErrTypeInvalidResponse, Message: "invalid response"}
	ErrCanceled        = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
)

const generatePath = "/api/generate"

type ClientConfig struct {
	// URL is either the server root or the full generate endpoint.
	URL         string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

func DefaultConfig() ClientConfig {
	return ClientConfig{
		URL:         "http://localhost:11434" + generatePath,
		Model:       "mistral",
		Temperature: 0.1,
		Timeout:     15 * time.Second,
	}
}

type Client struct {
	config     ClientConfig
	endpoint   string
	httpClient *http.Client
}

func NewClient(config ClientConfig) *Client {
	def := DefaultConfig()
	if config.URL == "" {
		config.URL = def.URL
	}
	if config.Model == "" {
		config.Model = def.Model
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}

	return &Client{
		config:     config,
		endpoint:   endpointFor(config.URL),
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

func endpointFor(raw string) string {
	u := strings.TrimRight(raw, "/")
	if strings.HasSuffix(u, generatePath) {
		return u
	}
	return u + generatePath
}

func (c *Client) Model() string { return c.config.Model }

// Generate sends one non-streaming prompt and returns the trimmed response text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(GenerateRequest{
		Model:   c.config.Model,
		Prompt:  prompt,
		Stream:  false,
		Options: &Options{Temperature: c.config.Temperature},
	})
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrModelNotFound
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return "", &ClientError{Type: ErrTypeInvalidResponse, Message: apiErr.Error}
		}
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "generate request failed: " + resp.Status}
	}

	var result generateReply
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if cerr := classify(err); cerr.Type == ErrTypeTimeout || cerr.Type == ErrTypeCanceled {
			return "", cerr
		}
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if result.Error != "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: result.Error}
	}
	if result.Response == nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "response field missing"}
	}

	return strings.TrimSpace(*result.Response), nil
}

func classify(err error) *ClientError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	case errors.Is(err, context.Canceled):
		return &ClientError{Type: ErrTypeCanceled, Message: ErrCanceled.Message, Cause: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &ClientError{Type: ErrTypeNotRunning, Message: ErrNotRunning.Message, Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: ErrConnection.Message, Cause: err}
}
