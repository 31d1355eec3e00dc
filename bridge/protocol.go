package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Events sent by a host proxy.
const (
	EventPreLogin   = "prelogin"
	EventLogin      = "login"
	EventPing       = "ping"
	EventQuery      = "query"
	EventSpawn      = "spawn"
	EventMove       = "move"
	EventGround     = "ground"
	EventTeleport   = "teleport"
	EventChat       = "chat"
	EventSettings   = "settings"
	EventBrand      = "brand"
	EventKeepAlive  = "keepalive"
	EventDisconnect = "disconnect"
	EventReset      = "reset"
)

// Commands sent to a host proxy.
const (
	CommandPreLogin  = "prelogin"
	CommandCheck     = "check"
	CommandPing      = "ping"
	CommandWrite     = "write"
	CommandClose     = "close"
	CommandProceed   = "proceed"
	CommandRespawn   = "respawn"
	CommandThrottled = "throttled"
	CommandReset     = "reset"
)

var (
	ErrUnexpectedEvent = errors.New("unexpected event")
	ErrIncorrectAddr   = errors.New("incorrect address")
)

// Event is a message from a host proxy. Only fields which are relevant
// for a type are set.
type Event struct {
	Type string `json:"type"`

	Username string `json:"username,omitempty"`
	Address  string `json:"address,omitempty"`
	Online   bool   `json:"online,omitempty"`
	Protocol int    `json:"protocol,omitempty"`

	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Z          float64 `json:"z,omitempty"`
	OnGround   bool    `json:"onGround,omitempty"`
	TeleportID int     `json:"teleportId,omitempty"`
	Message    string  `json:"message,omitempty"`
	Brand      string  `json:"brand,omitempty"`

	// PingMillis is an application-level round trip, -1 if unknown.
	PingMillis int64 `json:"ping,omitempty"`
}

// Command is a message to a host proxy.
type Command struct {
	Type   string            `json:"type"`
	Frames []json.RawMessage `json:"frames,omitempty"`
	Value  *bool             `json:"value,omitempty"`
}

func newValueCommand(kind string, value bool) Command {
	return Command{
		Type:  kind,
		Value: &value,
	}
}

// parseAddr parses ip:port. Port 0 is valid: gateway clients have no
// real port.
func parseAddr(value string) (*net.TCPAddr, error) {
	host, port, err := net.SplitHostPort(value)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrIncorrectAddr, value, err)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return nil, fmt.Errorf("%w %q: incorrect ip", ErrIncorrectAddr, value)
	}

	portNo, err := strconv.ParseUint(port, 10, 16) //nolint: gomnd
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrIncorrectAddr, value, err)
	}

	return &net.TCPAddr{
		IP:   ip,
		Port: int(portNo),
	}, nil
}
