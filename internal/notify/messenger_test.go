package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTextGateway_SendText(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody textMessage

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("unmarshal request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewTextGateway(srv.URL, "secret-token")
	if err := g.SendText(context.Background(), "549110000000", "Call completed"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected json content type, got %q", gotContentType)
	}
	if gotBody.TypingTime != 0 || gotBody.To != "549110000000" || gotBody.Body != "Call completed" {
		t.Errorf("unexpected body: %+v", gotBody)
	}
}

func TestTextGateway_SendText_gateway_error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewTextGateway(srv.URL, "token")
	if err := g.SendText(context.Background(), "x", "y"); err == nil {
		t.Error("expected error on 502 response")
	}
}

func TestTextGateway_SendText_unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before sending

	g := NewTextGateway(srv.URL, "token")
	if err := g.SendText(context.Background(), "x", "y"); err == nil {
		t.Error("expected error when the gateway is unreachable")
	}
}
