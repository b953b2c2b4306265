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

// MulticastProvider talks to the web push gateway, which supports rich
// payloads and topic subscribe/unsubscribe alongside direct token sends.
type MulticastProvider struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewMulticastProvider(endpoint, apiKey string) *MulticastProvider {
	return &MulticastProvider{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type multicastRequest struct {
	Tokens      []string               `json:"registration_ids"`
	Title       string                 `json:"title"`
	Body        string                 `json:"body"`
	ImageURL    string                 `json:"image,omitempty"`
	ClickAction string                 `json:"click_action,omitempty"`
	Channel     string                 `json:"channel,omitempty"`
	Category    string                 `json:"category,omitempty"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

type multicastResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

func (p *MulticastProvider) Multicast(ctx context.Context, tokens []string, msg notify.WebMessage) (int, int, error) {
	body := multicastRequest{
		Tokens:      tokens,
		Title:       msg.Title,
		Body:        msg.Body,
		ImageURL:    msg.ImageURL,
		ClickAction: msg.ClickAction,
		Channel:     msg.Channel,
		Category:    msg.Category,
		Data:        msg.Data,
	}

	var decoded multicastResponse
	if err := p.post(ctx, p.Endpoint+"/send", body, &decoded); err != nil {
		return 0, 0, err
	}
	return decoded.Success, decoded.Failure, nil
}

func (p *MulticastProvider) Subscribe(ctx context.Context, topic string, tokens []string) error {
	return p.post(ctx, p.Endpoint+"/topics/"+topic+"/subscribe", map[string]interface{}{"registration_ids": tokens}, nil)
}

func (p *MulticastProvider) Unsubscribe(ctx context.Context, topic string, tokens []string) error {
	return p.post(ctx, p.Endpoint+"/topics/"+topic+"/unsubscribe", map[string]interface{}{"registration_ids": tokens}, nil)
}

func (p *MulticastProvider) post(ctx context.Context, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", "key="+p.APIKey)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("multicast provider returned %s", resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var _ notify.MulticastPusher = (*MulticastProvider)(nil)
