package voidlib

import (
	"net"
	"time"
)

type eventBase struct {
	streamID  string
	timestamp time.Time
}

// StreamID returns an ID of the session this event belongs to.
func (e eventBase) StreamID() string {
	return e.streamID
}

// Timestamp return a time when this event was generated.
func (e eventBase) Timestamp() time.Time {
	return e.timestamp
}

// EventSessionStart is emitted when a connection is routed to
// verification.
type EventSessionStart struct {
	eventBase

	RemoteIP net.IP
	State    CheckState

	// Gateway is true for clients which came through a
	// protocol-translation gateway.
	Gateway bool
}

// EventSessionFinish is emitted when a session is over for any reason.
type EventSessionFinish struct {
	eventBase
}

// EventBlocked is emitted when a session is rejected.
type EventBlocked struct {
	eventBase

	Reason BlockReason
}

// EventPassed is emitted when a session has passed all checks.
type EventPassed struct {
	eventBase

	// Reconnect is true if a client was asked to join again.
	Reconnect bool
}

// EventCaptchaFallback is emitted when a failed falling check is
// replaced with a CAPTCHA.
type EventCaptchaFallback struct {
	eventBase
}

// EventBypassed is emitted when a client is let in without checks.
type EventBypassed struct {
	eventBase

	Reason BypassReason
}

// EventCaptchaGenerated is emitted when a new pool of challenges is
// installed.
type EventCaptchaGenerated struct {
	eventBase

	Count    int
	Duration time.Duration
}

// EventTrafficRate is emitted periodically with current rates.
type EventTrafficRate struct {
	eventBase

	Connections int64
	Pings       int64
	Blocked     uint64
	AllowList   int
}

// EventLogsMuted is emitted when logs are muted or restored.
type EventLogsMuted struct {
	eventBase

	Muted bool
}

// NewEventSessionStart creates a new EventSessionStart event.
func NewEventSessionStart(streamID string, remoteIP net.IP, state CheckState, gateway bool) EventSessionStart {
	return EventSessionStart{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
		RemoteIP: remoteIP,
		State:    state,
		Gateway:  gateway,
	}
}

// NewEventSessionFinish creates a new EventSessionFinish event.
func NewEventSessionFinish(streamID string) EventSessionFinish {
	return EventSessionFinish{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
	}
}

// NewEventBlocked creates a new EventBlocked event.
func NewEventBlocked(streamID string, reason BlockReason) EventBlocked {
	return EventBlocked{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
		Reason: reason,
	}
}

// NewEventPassed creates a new EventPassed event.
func NewEventPassed(streamID string, reconnect bool) EventPassed {
	return EventPassed{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
		Reconnect: reconnect,
	}
}

// NewEventCaptchaFallback creates a new EventCaptchaFallback event.
func NewEventCaptchaFallback(streamID string) EventCaptchaFallback {
	return EventCaptchaFallback{
		eventBase: eventBase{
			timestamp: time.Now(),
			streamID:  streamID,
		},
	}
}

// NewEventBypassed creates a new EventBypassed event.
func NewEventBypassed(reason BypassReason) EventBypassed {
	return EventBypassed{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		Reason: reason,
	}
}

// NewEventCaptchaGenerated creates a new EventCaptchaGenerated event.
func NewEventCaptchaGenerated(count int, duration time.Duration) EventCaptchaGenerated {
	return EventCaptchaGenerated{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		Count:    count,
		Duration: duration,
	}
}

// NewEventTrafficRate creates a new EventTrafficRate event.
func NewEventTrafficRate(connections, pings int64, blocked uint64, allowList int) EventTrafficRate {
	return EventTrafficRate{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		Connections: connections,
		Pings:       pings,
		Blocked:     blocked,
		AllowList:   allowList,
	}
}

// NewEventLogsMuted creates a new EventLogsMuted event.
func NewEventLogsMuted(muted bool) EventLogsMuted {
	return EventLogsMuted{
		eventBase: eventBase{
			timestamp: time.Now(),
		},
		Muted: muted,
	}
}
