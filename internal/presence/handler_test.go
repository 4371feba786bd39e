package presence

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestHandler(t *testing.T) (*Handler, *Service) {
	t.Helper()
	reg := NewRegistry()
	svc := NewService(reg, nil, nil, testLogger(), nil, "admin", "")
	return NewHandler(svc, testLogger(), nil), svc
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/connected", h.ListConnected)
	r.Route("/rooms/{room}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Route("/participants/{identity}", func(r chi.Router) {
			r.Post("/connect", h.Connect)
			r.Post("/disconnect", h.Disconnect)
		})
	})
	return r
}

func postConnect(t *testing.T, r http.Handler, room, identity, role string) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(map[string]interface{}{"role": role, "patient_id": "t1", "operator_code": "op1"})
	req := httptest.NewRequest(http.MethodPost, "/rooms/"+room+"/participants/"+identity+"/connect", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Connect(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	rec := postConnect(t, r, "r1", "doc1", "primary")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Connect_bad_body(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/rooms/r1/participants/doc1/connect", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_Connect_bad_role(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	rec := postConnect(t, r, "r1", "doc1", "moderator")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", rec.Code)
	}
}

func TestHandler_Disconnect_unknown_room_is_ok(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/rooms/missing/participants/x/disconnect", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// Unknown room/identity is a logged no-op, never an error to the caller.
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetSession(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	postConnect(t, r, "r1", "doc1", "primary")
	postConnect(t, r, "r1", "pat1", "secondary")

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected json content type, got %s", ct)
	}

	var view SessionView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode session view: %v", err)
	}
	if view.Room != RoomID("r1") || len(view.Participants) != 2 {
		t.Errorf("unexpected view: %+v", view)
	}
	if view.PatientID != "t1" || view.OperatorCode != "op1" {
		t.Errorf("view should carry session tags: %+v", view)
	}
}

func TestHandler_GetSession_not_found(t *testing.T) {
	h, _ := newTestHandler(t)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/rooms/missing/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_ListConnected(t *testing.T) {
	h, svc := newTestHandler(t)
	r := newTestRouter(h)

	postConnect(t, r, "r1", "doc1", "primary")
	postConnect(t, r, "r1", "pat1", "secondary")
	svc.Connect("r2", "pat2", RoleSecondary, "t2", "op2")

	t.Run("all", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/connected", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var got []ConnectedPatient
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 connected patients, got %d: %+v", len(got), got)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/connected?operator_code=op2", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		var got []ConnectedPatient
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(got) != 1 || got[0].Identity != Identity("pat2") {
			t.Errorf("expected only pat2, got %+v", got)
		}
	})

	t.Run("empty_is_json_array", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/connected?operator_code=nope", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if body := rec.Body.String(); body != "[]\n" {
			t.Errorf("expected empty JSON array, got %q", body)
		}
	})
}

func TestHandler_full_scenario_over_http(t *testing.T) {
	h, svc := newTestHandler(t)
	r := newTestRouter(h)

	postConnect(t, r, "r1", "doc1", "primary")
	postConnect(t, r, "r1", "pat1", "secondary")

	for _, identity := range []string{"doc1", "pat1"} {
		req := httptest.NewRequest(http.MethodPost, "/rooms/r1/participants/"+identity+"/disconnect", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("disconnect %s: expected 200, got %d", identity, rec.Code)
		}
	}
	svc.Flush()

	req := httptest.NewRequest(http.MethodGet, "/rooms/r1/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("finalized session should 404, got %d", rec.Code)
	}
}
