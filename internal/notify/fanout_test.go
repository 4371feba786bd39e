package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChannelFanout_NotifyPatientConnected(t *testing.T) {
	var gotAuth string
	var gotBody channelEvent

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("unmarshal request body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	connectedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	f := NewChannelFanout(srv.URL, "fanout-token")
	err := f.NotifyPatientConnected(context.Background(), "presence-op7", PatientConnected{
		PatientID:   "ticket-9",
		Room:        "r1",
		Identity:    "pat1",
		ConnectedAt: connectedAt,
	})
	if err != nil {
		t.Fatalf("NotifyPatientConnected: %v", err)
	}

	if gotAuth != "Bearer fanout-token" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody.Channel != "presence-op7" || gotBody.Event != patientConnectedEvent {
		t.Errorf("unexpected envelope: %+v", gotBody)
	}
	if gotBody.Data.PatientID != "ticket-9" || gotBody.Data.Room != "r1" || gotBody.Data.Identity != "pat1" {
		t.Errorf("unexpected payload: %+v", gotBody.Data)
	}
	if !gotBody.Data.ConnectedAt.Equal(connectedAt) {
		t.Errorf("connected_at mismatch: %v", gotBody.Data.ConnectedAt)
	}
}

func TestChannelFanout_no_token_omits_auth_header(t *testing.T) {
	var sawAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sawAuth = r.Header["Authorization"]
	}))
	defer srv.Close()

	f := NewChannelFanout(srv.URL, "")
	if err := f.NotifyPatientConnected(context.Background(), "presence-", PatientConnected{}); err != nil {
		t.Fatalf("NotifyPatientConnected: %v", err)
	}
	if sawAuth {
		t.Error("empty token should omit the Authorization header")
	}
}

func TestChannelFanout_error_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewChannelFanout(srv.URL, "")
	if err := f.NotifyPatientConnected(context.Background(), "c", PatientConnected{}); err == nil {
		t.Error("expected error on 500 response")
	}
}
