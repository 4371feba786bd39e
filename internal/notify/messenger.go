package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// textMessage is the wire body of the messaging gateway.
type textMessage struct {
	TypingTime int    `json:"typing_time"`
	To         string `json:"to"`
	Body       string `json:"body"`
}

// TextGateway sends text messages through the external messaging gateway
// (bearer-token authenticated JSON POST). It implements Messenger.
type TextGateway struct {
	url    string
	token  string
	client *http.Client
}

// NewTextGateway returns a TextGateway posting to url with the given bearer token.
func NewTextGateway(url, token string) *TextGateway {
	return &TextGateway{
		url:    url,
		token:  token,
		client: newHTTPClient(0),
	}
}

// SendText implements Messenger.SendText.
func (g *TextGateway) SendText(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(textMessage{TypingTime: 0, To: to, Body: body})
	if err != nil {
		return fmt.Errorf("encode text message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build text request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("send text message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("text gateway returned status %d", resp.StatusCode)
	}
	return nil
}
