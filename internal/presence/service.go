package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"call-presence/internal/notify"
	"call-presence/internal/platform/metrics"

	"github.com/google/uuid"
)

// DefaultChannelPrefix is prepended to the operator code to form the realtime
// fan-out channel name.
const DefaultChannelPrefix = "presence-"

const sendTimeout = 10 * time.Second

// Service applies the presence business rules on top of the Registry:
// fan-out notification on patient connect, report dispatch on finalization.
// Outbound deliveries run in detached goroutines and never surface errors to
// the caller; a dropped delivery degrades the operator notification, not the
// underlying call.
type Service struct {
	registry  *Registry
	notifier  notify.Notifier
	messenger notify.Messenger
	log       *slog.Logger
	metrics   *metrics.Metrics

	adminRecipient string
	channelPrefix  string

	inflight sync.WaitGroup
}

// NewService returns a Service that reports completed sessions to
// adminRecipient via messenger and announces patient connects on
// channelPrefix+operatorCode via notifier. notifier, messenger, and m may be
// nil to disable the corresponding side effect (e.g. in tests). An empty
// channelPrefix falls back to DefaultChannelPrefix.
func NewService(registry *Registry, notifier notify.Notifier, messenger notify.Messenger, log *slog.Logger, m *metrics.Metrics, adminRecipient, channelPrefix string) *Service {
	if channelPrefix == "" {
		channelPrefix = DefaultChannelPrefix
	}
	return &Service{
		registry:       registry,
		notifier:       notifier,
		messenger:      messenger,
		log:            log,
		metrics:        m,
		adminRecipient: adminRecipient,
		channelPrefix:  channelPrefix,
	}
}

// Connect records a participant connect. Repeated connects for a live
// participant keep the first timestamp; connects for an identity that already
// disconnected in this session are ignored. Secondary-role connects trigger a
// detached fan-out notification. Connect never fails from the caller's view.
func (s *Service) Connect(room RoomID, identity Identity, role Role, patientID, operatorCode string) {
	ev, err := s.registry.RecordConnect(room, identity, role, patientID, operatorCode)
	if err != nil {
		s.log.Debug("connect ignored",
			slog.String("room", string(room)),
			slog.String("identity", string(identity)),
			slog.String("reason", err.Error()))
		return
	}

	if ev.Role == RoleSecondary && s.notifier != nil {
		s.spawn(func() { s.fanOutConnect(ev) })
	}
}

// Disconnect records a participant disconnect. Unknown rooms or identities
// are logged no-ops. When the disconnect completes the session, the
// completion report is dispatched in a detached goroutine and the session is
// already gone from the registry, so finalization fires exactly once.
func (s *Service) Disconnect(room RoomID, identity Identity) {
	sess, err := s.registry.RecordDisconnect(room, identity)
	if err != nil {
		s.log.Warn("disconnect ignored",
			slog.String("room", string(room)),
			slog.String("identity", string(identity)),
			slog.String("reason", err.Error()))
		return
	}
	if sess == nil {
		return
	}

	s.spawn(func() { s.dispatchReport(sess) })
}

// ListConnected returns the connected secondary-role participants, optionally
// filtered by operator code.
func (s *Service) ListConnected(operatorCode string) []ConnectedPatient {
	return s.registry.ListConnected(operatorCode)
}

// GetSession returns a read-only snapshot of the session for room.
func (s *Service) GetSession(room RoomID) (SessionView, bool) {
	return s.registry.GetSession(room)
}

// Flush blocks until all in-flight outbound deliveries have finished.
// Called during graceful shutdown so pending reports are not cut off.
func (s *Service) Flush() {
	s.inflight.Wait()
}

// spawn runs fn in a detached goroutine with a recover guard, tracked by the
// in-flight wait group.
func (s *Service) spawn(fn func()) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("panic in outbound delivery", slog.Any("panic", r))
			}
		}()
		fn()
	}()
}

func (s *Service) fanOutConnect(ev ConnectEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	channel := s.channelPrefix + ev.OperatorCode
	err := s.notifier.NotifyPatientConnected(ctx, channel, notify.PatientConnected{
		PatientID:   ev.PatientID,
		Room:        string(ev.Room),
		Identity:    string(ev.Identity),
		ConnectedAt: ev.ConnectedAt,
	})
	if err != nil {
		s.log.Warn("connect fan-out failed",
			slog.String("room", string(ev.Room)),
			slog.String("channel", channel),
			slog.String("error", err.Error()))
		return
	}

	s.log.Debug("connect fan-out sent",
		slog.String("room", string(ev.Room)),
		slog.String("channel", channel))
}

func (s *Service) dispatchReport(sess *Session) {
	dispatchID := uuid.NewString()

	body, err := BuildReport(sess)
	if err != nil {
		if errors.Is(err, ErrDegenerateSession) {
			s.log.Warn("report skipped for degenerate session",
				slog.String("dispatch_id", dispatchID),
				slog.String("room", string(sess.Room)),
				slog.Int("participants", len(sess.Participants)))
			if s.metrics != nil {
				s.metrics.IncReportsSkipped()
			}
			return
		}
		s.log.Error("report build failed",
			slog.String("dispatch_id", dispatchID),
			slog.String("room", string(sess.Room)),
			slog.String("error", err.Error()))
		return
	}

	if s.messenger == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := s.messenger.SendText(ctx, s.adminRecipient, body); err != nil {
		// At-most-once: the session is already gone, no retry.
		s.log.Error("report delivery failed",
			slog.String("dispatch_id", dispatchID),
			slog.String("room", string(sess.Room)),
			slog.String("error", err.Error()))
		return
	}

	s.log.Info("report dispatched",
		slog.String("dispatch_id", dispatchID),
		slog.String("room", string(sess.Room)),
		slog.String("duration", FormatDuration(SessionDuration(sess))))
	if s.metrics != nil {
		s.metrics.IncReportsDispatched()
	}
}
