// Package push holds the HTTP adapters for the external push providers.
// Both providers speak plain JSON POST APIs; the engine only depends on the
// interfaces in internal/notify.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tiffinloop/internal/notify"
)

const errDeviceNotRegistered = "DeviceNotRegistered"

// TokenProvider talks to the mobile push gateway. One request carries the
// chunk of tokens the dispatcher hands it and returns a per-token outcome.
type TokenProvider struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewTokenProvider(endpoint, apiKey string) *TokenProvider {
	return &TokenProvider{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenRequest struct {
	To    []string               `json:"to"`
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

type tokenResponse struct {
	Results []struct {
		Token  string `json:"token"`
		Status string `json:"status"` // "ok" or "error"
		Error  string `json:"error,omitempty"`
	} `json:"results"`
}

func (p *TokenProvider) Push(ctx context.Context, tokens []string, title, body string, data map[string]interface{}) ([]notify.PushOutcome, error) {
	payload, err := json.Marshal(tokenRequest{To: tokens, Title: title, Body: body, Data: data})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("push provider returned %s", resp.Status)
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}

	outcomes := make([]notify.PushOutcome, 0, len(decoded.Results))
	for i, result := range decoded.Results {
		token := result.Token
		if token == "" && i < len(tokens) {
			token = tokens[i]
		}
		outcomes = append(outcomes, notify.PushOutcome{
			Token:        token,
			OK:           result.Status == "ok",
			Reason:       result.Error,
			Unregistered: result.Error == errDeviceNotRegistered,
		})
	}
	return outcomes, nil
}

var _ notify.TokenPusher = (*TokenProvider)(nil)
