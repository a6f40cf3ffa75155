package models

import "encoding/json"

// SessionNotScheduledMessage is shown to clients in place of a session that does not exist yet.
const SessionNotScheduledMessage = "Pagamento não realizado, portanto a sessão não foi marcada ainda"

const (
	sessionStateScheduled    = "scheduled"
	sessionStateNotScheduled = "not_scheduled"
)

// SessionState is either NotScheduled or Scheduled(session).
type SessionState struct {
	session *Session
}

func NotScheduled() SessionState {
	return SessionState{}
}

func ScheduledSession(s *Session) SessionState {
	return SessionState{session: s}
}

func (s SessionState) Scheduled() bool {
	return s.session != nil
}

// Session returns the scheduled session, or nil when none exists.
func (s SessionState) Session() *Session {
	return s.session
}

func (s SessionState) MarshalJSON() ([]byte, error) {
	if s.session == nil {
		return json.Marshal(struct {
			State   string `json:"state"`
			Message string `json:"message"`
		}{sessionStateNotScheduled, SessionNotScheduledMessage})
	}
	return json.Marshal(struct {
		State string `json:"state"`
		*Session
	}{sessionStateScheduled, s.session})
}

// Booking is the read-side composition of a schedule with its payment, session and owner.
// It is assembled on demand and never stored.
type Booking struct {
	ScheduleData *Schedule    `json:"scheduleData"`
	PaymentData  *Payment     `json:"paymentData"`
	SessionData  SessionState `json:"sessionData"`
	UserData     *User        `json:"userData,omitempty"`
}
