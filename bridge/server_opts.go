package bridge

import (
	"errors"
	"time"

	"github.com/voidcheck/voidcheck/voidlib"
)

var (
	ErrFilterIsNotDefined = errors.New("filter is not defined")
	ErrLoggerIsNotDefined = errors.New("logger is not defined")
)

// ServerOpts is a structure with settings of the bridge server.
type ServerOpts struct {
	// Filter is a verification engine which serves connections.
	//
	// This is a mandatory setting.
	Filter *voidlib.Filter

	// Logger defines an instance of the logger.
	//
	// This is a mandatory setting.
	Logger voidlib.Logger

	// Path is an HTTP path of the websocket endpoint.
	//
	// This is an optional setting.
	Path string

	// MaxMessageSize limits a size of a single event from a host proxy.
	//
	// This is an optional setting.
	MaxMessageSize int64

	// Concurrency is a size of the worker pool. Each connection holds a
	// worker until it is closed.
	//
	// This is an optional setting.
	Concurrency uint

	// SessionsPerSecond limits a rate of new verification sessions per
	// client IP address. Zero means no limit.
	//
	// This is an optional setting.
	SessionsPerSecond float64

	// SessionsBurst is a burst of the sessions rate limiter.
	//
	// This is an optional setting.
	SessionsBurst uint

	// ReadTimeout is a maximal time between 2 events of a connection.
	//
	// This is an optional setting.
	ReadTimeout time.Duration

	// WriteTimeout is a timeout to send a single command.
	//
	// This is an optional setting.
	WriteTimeout time.Duration
}

func (s ServerOpts) valid() error {
	switch {
	case s.Filter == nil:
		return ErrFilterIsNotDefined
	case s.Logger == nil:
		return ErrLoggerIsNotDefined
	}

	return nil
}

func (s ServerOpts) getPath() string {
	if s.Path == "" {
		return DefaultPath
	}

	return s.Path
}

func (s ServerOpts) getMaxMessageSize() int64 {
	if s.MaxMessageSize <= 0 {
		return DefaultMaxMessageSize
	}

	return s.MaxMessageSize
}

func (s ServerOpts) getConcurrency() int {
	if s.Concurrency == 0 {
		return DefaultConcurrency
	}

	return int(s.Concurrency)
}

func (s ServerOpts) getSessionsBurst() int {
	if s.SessionsBurst == 0 {
		return DefaultSessionsBurst
	}

	return int(s.SessionsBurst)
}

func (s ServerOpts) getReadTimeout() time.Duration {
	if s.ReadTimeout == 0 {
		return DefaultReadTimeout
	}

	return s.ReadTimeout
}

func (s ServerOpts) getWriteTimeout() time.Duration {
	if s.WriteTimeout == 0 {
		return DefaultWriteTimeout
	}

	return s.WriteTimeout
}
