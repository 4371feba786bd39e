package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// channelEvent is the wire body of the realtime fan-out service.
type channelEvent struct {
	Channel string           `json:"channel"`
	Event   string           `json:"event"`
	Data    PatientConnected `json:"data"`
}

const patientConnectedEvent = "patient-connected"

// ChannelFanout pushes events to the realtime fan-out service over HTTP.
// It implements Notifier.
type ChannelFanout struct {
	url    string
	token  string
	client *http.Client
}

// NewChannelFanout returns a ChannelFanout posting to url. token may be empty
// when the fan-out endpoint is unauthenticated.
func NewChannelFanout(url, token string) *ChannelFanout {
	return &ChannelFanout{
		url:    url,
		token:  token,
		client: newHTTPClient(0),
	}
}

// NotifyPatientConnected implements Notifier.NotifyPatientConnected.
func (f *ChannelFanout) NotifyPatientConnected(ctx context.Context, channel string, ev PatientConnected) error {
	payload, err := json.Marshal(channelEvent{Channel: channel, Event: patientConnectedEvent, Data: ev})
	if err != nil {
		return fmt.Errorf("encode channel event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build fanout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("push channel event: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fanout returned status %d", resp.StatusCode)
	}
	return nil
}
