package voidlib

import (
	"context"
	"net"
	"time"
)

// Event is a data structure which is populated while the engine
// processes connections. Events are routed to an [EventStream].
type Event interface {
	// StreamID returns an identifier of the session. Events without a
	// session return an empty string.
	StreamID() string

	// Timestamp returns a time when this event was generated.
	Timestamp() time.Time
}

// EventStream is an abstraction which accepts a set of events produced
// by the engine and routes them to observers.
type EventStream interface {
	// Send delivers an event. It may block, ctx can be used to cancel
	// delivery.
	Send(ctx context.Context, evt Event)
}

// Logger defines a set of methods the engine needs from a logger.
type Logger interface {
	Named(name string) Logger

	BindInt(name string, value int) Logger
	BindStr(name, value string) Logger
	BindJSON(name, value string) Logger

	Printf(format string, args ...any)
	Info(msg string)
	InfoError(msg string, err error)
	Warning(msg string)
	WarningError(msg string, err error)
	Debug(msg string)
	DebugError(msg string, err error)
}

// LogSwitch mutes and restores logging globally. It is used to stop
// writing logs while the server is under attack.
type LogSwitch interface {
	Mute()
	Unmute()
}

// Encoder turns logical messages into raw protocol frames. This is a
// boundary to the host protocol codec.
type Encoder interface {
	// Versions returns protocol versions where encoding of at least one
	// message changes.
	Versions() []ProtocolVersion

	// Encode encodes a message for clients with a given version.
	Encode(msg Message, version ProtocolVersion) ([]byte, error)
}

// Player is a virtual session of a connection under verification. All
// methods are called from a connection event loop only.
type Player interface {
	Username() string

	// RemoteAddr returns an address of the client. Port 0 marks clients
	// which came through a protocol-translation gateway.
	RemoteAddr() *net.TCPAddr
	ProtocolVersion() ProtocolVersion
	OnlineMode() bool

	// Ping returns an application-level keepalive round trip. Negative
	// value means that it is unknown yet.
	Ping() time.Duration

	WriteMessage(artifact *Artifact)
	Flush()

	// CloseWith sends an artifact and closes the connection.
	CloseWith(artifact *Artifact)

	// Disconnect releases a player from the verification world so it
	// goes further to the backend.
	Disconnect()

	// Respawn moves a player to the challenge world where a map with a
	// CAPTCHA is shown.
	Respawn()

	// AfterFunc schedules f on the connection event loop. Returned
	// function cancels it.
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// AllowList keeps identities which have passed verification recently.
type AllowList interface {
	// Put stores a username with an IP address. Zero ttl means that an
	// entry never expires.
	Put(ctx context.Context, username string, ip net.IP, ttl time.Duration) error

	// Contains checks that username was verified from the same IP.
	Contains(ctx context.Context, username string, ip net.IP) bool

	// Remove forgets a username.
	Remove(ctx context.Context, username string) error

	// Purge drops expired entries and returns how many were dropped.
	Purge(ctx context.Context) (int, error)

	// Size returns a number of stored entries.
	Size(ctx context.Context) int

	Close() error
}

// PingEstimator provides a transport-level round trip estimate per
// address.
type PingEstimator interface {
	Register(ip net.IP)
	Remove(ip net.IP)

	// Ping returns a smoothed estimate. Second value is false if no
	// samples were collected.
	Ping(ip net.IP) (time.Duration, bool)
}

// CaptchaSource gives pre-rendered challenges.
type CaptchaSource interface {
	// Next returns a next challenge for a consumer. Consumers are
	// independent round-robin cursors. It returns nil if nothing is
	// generated yet.
	Next(consumer uint32) *CaptchaArtifact

	// Shutdown stops generation. Already issued artifacts stay valid.
	Shutdown()
}
