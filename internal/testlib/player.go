package testlib

import (
	"net"
	"sync"
	"time"

	"github.com/voidcheck/voidcheck/voidlib"
)

// FakeTimer is a callback scheduled with [FakePlayer.AfterFunc].
type FakeTimer struct {
	Delay   time.Duration
	F       func()
	Stopped bool
}

// FakePlayer records everything a session does with a player. Timers
// never fire on their own, tests call Fire.
type FakePlayer struct {
	mu sync.Mutex

	Name      string
	Addr      *net.TCPAddr
	Version   voidlib.ProtocolVersion
	Online    bool
	PingValue time.Duration

	Written      []*voidlib.Artifact
	ClosedWith   *voidlib.Artifact
	Flushes      int
	Respawns     int
	Disconnected bool
	Timers       []*FakeTimer
}

func (f *FakePlayer) Username() string                         { return f.Name }
func (f *FakePlayer) RemoteAddr() *net.TCPAddr                 { return f.Addr }
func (f *FakePlayer) ProtocolVersion() voidlib.ProtocolVersion { return f.Version }
func (f *FakePlayer) OnlineMode() bool                         { return f.Online }
func (f *FakePlayer) Ping() time.Duration                      { return f.PingValue }

func (f *FakePlayer) WriteMessage(artifact *voidlib.Artifact) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Written = append(f.Written, artifact)
}

func (f *FakePlayer) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Flushes++
}

func (f *FakePlayer) CloseWith(artifact *voidlib.Artifact) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ClosedWith = artifact
}

func (f *FakePlayer) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Disconnected = true
}

func (f *FakePlayer) Respawn() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Respawns++
}

func (f *FakePlayer) AfterFunc(d time.Duration, fn func()) func() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	timer := &FakeTimer{
		Delay: d,
		F:     fn,
	}
	f.Timers = append(f.Timers, timer)

	return func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()

		wasActive := !timer.Stopped
		timer.Stopped = true

		return wasActive
	}
}

// Fire runs every timer which was not stopped yet.
func (f *FakePlayer) Fire() {
	f.mu.Lock()
	timers := make([]*FakeTimer, 0, len(f.Timers))

	for _, v := range f.Timers {
		if !v.Stopped {
			v.Stopped = true
			timers = append(timers, v)
		}
	}
	f.mu.Unlock()

	for _, v := range timers {
		v.F()
	}
}

// WasWritten checks that an artifact was sent with WriteMessage.
func (f *FakePlayer) WasWritten(artifact *voidlib.Artifact) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, v := range f.Written {
		if v == artifact {
			return true
		}
	}

	return false
}

// NewFakePlayer creates a player with a modern protocol version.
func NewFakePlayer(name string, ip string, port int) *FakePlayer {
	return &FakePlayer{
		Name: name,
		Addr: &net.TCPAddr{
			IP:   net.ParseIP(ip),
			Port: port,
		},
		Version:   voidlib.Version1_19,
		PingValue: -1,
	}
}
