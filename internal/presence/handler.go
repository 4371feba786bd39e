package presence

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"call-presence/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// Handler exposes presence HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that uses the given Service, Logger, and optional Metrics.
// Metrics may be nil to disable metric recording (e.g. in tests).
func NewHandler(svc *Service, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, log: log, metrics: m}
}

// connectRequest is the body of a participant connect.
// Body: { "role": "primary"|"secondary", "patient_id": "...", "operator_code": "..." }.
type connectRequest struct {
	Role         Role   `json:"role"`
	PatientID    string `json:"patient_id"`
	OperatorCode string `json:"operator_code"`
}

// Connect handles POST /rooms/{room}/participants/{identity}/connect.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	room := RoomID(chi.URLParam(r, "room"))
	identity := Identity(chi.URLParam(r, "identity"))

	if room == "" || identity == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid connect body", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if !req.Role.Valid() {
		h.log.Debug("invalid role", slog.String("role", string(req.Role)))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.svc.Connect(room, identity, req.Role, req.PatientID, req.OperatorCode)

	h.log.Debug("participant connected",
		slog.String("room", string(room)),
		slog.String("identity", string(identity)),
		slog.String("role", string(req.Role)))
	w.WriteHeader(http.StatusOK)
	if h.metrics != nil {
		h.metrics.IncConnects()
	}
}

// Disconnect handles POST /rooms/{room}/participants/{identity}/disconnect.
// Unknown rooms and identities are no-ops, so the response is always 200.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	room := RoomID(chi.URLParam(r, "room"))
	identity := Identity(chi.URLParam(r, "identity"))

	if room == "" || identity == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	h.svc.Disconnect(room, identity)

	h.log.Debug("participant disconnected",
		slog.String("room", string(room)),
		slog.String("identity", string(identity)))
	w.WriteHeader(http.StatusOK)
	if h.metrics != nil {
		h.metrics.IncDisconnects()
	}
}

// ListConnected handles GET /connected?operator_code=X.
// Used by the UI to rebuild presence state after a client reconnect.
func (h *Handler) ListConnected(w http.ResponseWriter, r *http.Request) {
	operatorCode := r.URL.Query().Get("operator_code")
	patients := h.svc.ListConnected(operatorCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(patients); err != nil {
		h.log.Error("encode connected list failed", slog.String("error", err.Error()))
	}
}

// GetSession handles GET /rooms/{room}: a read-only snapshot for status checks.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	room := RoomID(chi.URLParam(r, "room"))
	if room == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	view, ok := h.svc.GetSession(room)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(view); err != nil {
		h.log.Error("encode session failed",
			slog.String("room", string(room)),
			slog.String("error", err.Error()))
	}
}
