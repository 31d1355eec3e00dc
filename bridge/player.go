package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/voidcheck/voidcheck/voidlib"
)

// player is a [voidlib.Player] backed by a websocket of a host proxy.
// Every method is called from the event loop of the connection.
type player struct {
	ctx          context.Context
	ctxCancel    context.CancelFunc
	conn         *websocket.Conn
	tasks        chan func()
	writeTimeout time.Duration
	logger       voidlib.Logger

	username string
	addr     *net.TCPAddr
	version  voidlib.ProtocolVersion
	online   bool
	ping     time.Duration

	pending []json.RawMessage
	closed  bool
}

func (p *player) Username() string                         { return p.username }
func (p *player) RemoteAddr() *net.TCPAddr                 { return p.addr }
func (p *player) ProtocolVersion() voidlib.ProtocolVersion { return p.version }
func (p *player) OnlineMode() bool                         { return p.online }
func (p *player) Ping() time.Duration                      { return p.ping }

func (p *player) WriteMessage(artifact *voidlib.Artifact) {
	for _, frame := range artifact.Frames(p.version) {
		p.pending = append(p.pending, frame)
	}
}

func (p *player) Flush() {
	if len(p.pending) == 0 {
		return
	}

	p.send(Command{
		Type:   CommandWrite,
		Frames: p.takePending(),
	})
}

func (p *player) CloseWith(artifact *voidlib.Artifact) {
	p.WriteMessage(artifact)
	p.send(Command{
		Type:   CommandClose,
		Frames: p.takePending(),
	})
	p.close()
}

func (p *player) Disconnect() {
	p.Flush()
	p.send(Command{Type: CommandProceed})
}

func (p *player) Respawn() {
	p.Flush()
	p.send(Command{Type: CommandRespawn})
}

// AfterFunc runs f on the event loop. A callback is dropped if a
// connection is already closed.
func (p *player) AfterFunc(d time.Duration, f func()) func() bool {
	timer := time.AfterFunc(d, func() {
		select {
		case <-p.ctx.Done():
		case p.tasks <- f:
		}
	})

	return timer.Stop
}

func (p *player) takePending() []json.RawMessage {
	rv := p.pending
	p.pending = nil

	return rv
}

func (p *player) send(cmd Command) {
	if p.closed {
		return
	}

	if err := p.writeJSON(cmd); err != nil {
		p.logger.DebugError("cannot send a command", err)
		p.close()
	}
}

func (p *player) writeJSON(cmd Command) error {
	if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
		return fmt.Errorf("cannot set a write deadline: %w", err)
	}

	return p.conn.WriteJSON(cmd) //nolint: wrapcheck
}

// close sends a close frame. A reader gets an error after that and the
// event loop stops.
func (p *player) close() {
	if p.closed {
		return
	}

	p.closed = true
	p.ctxCancel()

	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	p.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(p.writeTimeout)) //nolint: errcheck
	p.conn.Close()
}
