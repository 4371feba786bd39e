package presence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDegenerateSession is returned by BuildReport when a finalized session
// does not contain exactly one primary and one secondary participant. Such
// sessions get no report; the caller logs and discards them.
var ErrDegenerateSession = errors.New("session does not have exactly one primary and one secondary participant")

const reportClockLayout = "15:04:05"

// BuildReport renders the completion summary for a finalized session:
// room id, total duration, and each participant's identity with connect and
// disconnect clock times (UTC). The session must hold exactly one primary and
// one secondary participant, both disconnected.
func BuildReport(sess *Session) (string, error) {
	primary, secondary, err := reportPair(sess)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("Call completed\n")
	fmt.Fprintf(&b, "Room: %s\n", sess.Room)
	fmt.Fprintf(&b, "Duration: %s\n", FormatDuration(SessionDuration(sess)))

	for _, p := range []*Participant{primary, secondary} {
		fmt.Fprintf(&b, "%s (%s): %s - %s\n",
			p.Identity,
			p.Role,
			p.ConnectedAt.UTC().Format(reportClockLayout),
			p.DisconnectedAt.UTC().Format(reportClockLayout),
		)
	}

	return b.String(), nil
}

// SessionDuration returns the elapsed span of a session: the latest
// disconnect minus the earliest connect across all participants.
// Participants still connected are ignored for the disconnect side.
func SessionDuration(sess *Session) time.Duration {
	var minConnect, maxDisconnect time.Time
	for _, p := range sess.Participants {
		if minConnect.IsZero() || p.ConnectedAt.Before(minConnect) {
			minConnect = p.ConnectedAt
		}
		if p.DisconnectedAt != nil && p.DisconnectedAt.After(maxDisconnect) {
			maxDisconnect = *p.DisconnectedAt
		}
	}
	if minConnect.IsZero() || maxDisconnect.IsZero() {
		return 0
	}
	return maxDisconnect.Sub(minConnect)
}

// FormatDuration renders d as whole minutes and seconds, e.g. 125s -> "2m 5s".
// Negative durations render as "0m 0s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%dm %ds", total/60, total%60)
}

// reportPair extracts the single primary and single secondary participant of
// a completed session, both with a recorded disconnect.
func reportPair(sess *Session) (primary, secondary *Participant, err error) {
	for _, p := range sess.Participants {
		if p.DisconnectedAt == nil {
			return nil, nil, ErrDegenerateSession
		}
		switch p.Role {
		case RolePrimary:
			if primary != nil {
				return nil, nil, ErrDegenerateSession
			}
			primary = p
		case RoleSecondary:
			if secondary != nil {
				return nil, nil, ErrDegenerateSession
			}
			secondary = p
		default:
			return nil, nil, ErrDegenerateSession
		}
	}
	if primary == nil || secondary == nil {
		return nil, nil, ErrDegenerateSession
	}
	return primary, secondary, nil
}
