package logger

import (
	"sync"

	"github.com/rs/zerolog"
)

// LevelSwitch mutes every zerolog logger of the process by changing a
// global level. A level which was active before muting is restored on
// Unmute.
type LevelSwitch struct {
	mu    sync.Mutex
	level zerolog.Level
	muted bool
}

func (l *LevelSwitch) Mute() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.muted {
		return
	}

	l.muted = true
	l.level = zerolog.GlobalLevel()

	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func (l *LevelSwitch) Unmute() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.muted {
		return
	}

	l.muted = false

	zerolog.SetGlobalLevel(l.level)
}

// Muted tells if logs are muted now.
func (l *LevelSwitch) Muted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.muted
}

// NewLevelSwitch creates a new switch.
func NewLevelSwitch() *LevelSwitch {
	return &LevelSwitch{}
}
