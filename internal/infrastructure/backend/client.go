// Package backend is the HTTP client for the travel-agent backend: the chat
// endpoint plus the search-session tool endpoints.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"skydeck/internal/domain/conversation"
)

// ChatResult is the reply envelope of the chat endpoint. The backend may
// hand back a different thread id than the one sent; callers must adopt it.
type ChatResult struct {
	Reply     string          `json:"reply"`
	Artifacts json.RawMessage `json:"artifacts,omitempty"`
	ThreadID  string          `json:"thread_id,omitempty"`
}

// ProviderLinksParams identifies one flight of a live search session.
type ProviderLinksParams struct {
	SessionID     string `json:"session_id"`
	FlightOrdinal int    `json:"flight_no"`
	MaxProviders  int    `json:"max_providers,omitempty"`
	WaitTimeoutMs int    `json:"popup_wait_timeout,omitempty"`
}

// APIError is an error reported by the backend in its {error: "..."} shape.
type APIError struct {
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error: %s", e.Message)
}

// Client talks to the agent backend.
type Client struct {
	http *resty.Client
}

// New creates a resty-backed client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetTimeout(timeout),
	}
}

// SendChat posts one chat turn to the agent.
func (c *Client) SendChat(ctx context.Context, message, threadID string) (*ChatResult, error) {
	var result ChatResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"message": message, "thread_id": threadID}).
		SetResult(&result).
		Post("/chat")
	if err != nil {
		return nil, fmt.Errorf("send chat: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &result, nil
}

// GetProviderLinks fetches the booking options for one flight of a live
// session. Both the bare-array and the {flight_no, options} wrapped response
// shapes are accepted.
func (c *Client) GetProviderLinks(ctx context.Context, params ProviderLinksParams) ([]conversation.ProviderOffer, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(params).
		Post("/api/get-flight-urls")
	if err != nil {
		return nil, fmt.Errorf("get provider links: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return decodeOffers(resp.Body())
}

// SetCurrency asks the agent to convert displayed results into the given
// currency. SessionID may be empty early in a conversation.
func (c *Client) SetCurrency(ctx context.Context, currency, sessionID string) (*ChatResult, error) {
	body := map[string]string{"currency": currency}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	var result ChatResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post("/api/set-currency")
	if err != nil {
		return nil, fmt.Errorf("set currency: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}
	return &result, nil
}

// CloseSession tears down a live search session. Invoked on shutdown.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"session_id": sessionID}).
		Post("/api/close-session")
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}

func decodeOffers(body []byte) ([]conversation.ProviderOffer, error) {
	parsed := gjson.ParseBytes(body)
	if msg := parsed.Get("error"); msg.Exists() {
		return nil, &APIError{Message: msg.String()}
	}
	raw := body
	if options := parsed.Get("options"); options.Exists() {
		raw = []byte(options.Raw)
	}
	var offers []conversation.ProviderOffer
	if err := json.Unmarshal(raw, &offers); err != nil {
		return nil, fmt.Errorf("decode provider options: %w", err)
	}
	return offers, nil
}

func apiError(resp *resty.Response) error {
	if msg := gjson.GetBytes(resp.Body(), "error"); msg.Exists() && msg.String() != "" {
		return &APIError{Message: msg.String()}
	}
	return fmt.Errorf("backend status %d: %s", resp.StatusCode(), resp.String())
}
