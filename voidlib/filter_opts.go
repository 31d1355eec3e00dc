package voidlib

import "time"

// FilterOpts is a structure with settings of the filter.
//
// This is not required per se, but this is to shorten function signature
// and give an ability to conveniently provide default values.
type FilterOpts struct {
	// Settings is an initial configuration snapshot.
	//
	// This is a mandatory setting.
	Settings *Settings

	// Encoder turns logical messages into protocol frames. Every fixed
	// message is encoded with it once per reload.
	//
	// This is a mandatory setting.
	Encoder Encoder

	// CaptchaSource gives rendered challenges to sessions.
	//
	// This is a mandatory setting.
	CaptchaSource CaptchaSource

	// AllowList keeps clients which have passed verification.
	//
	// This is a mandatory setting.
	AllowList AllowList

	// EventStream defines an instance of event stream.
	//
	// This is a mandatory setting.
	EventStream EventStream

	// Logger defines an instance of the logger.
	//
	// This is a mandatory setting.
	Logger Logger

	// PingEstimator gives transport-level round trips for the proxy
	// check. If it is not set, the check never finds anything.
	//
	// This is an optional setting.
	PingEstimator PingEstimator

	// LogSwitch mutes logs during an attack. If it is not set, logs are
	// never muted.
	//
	// This is an optional setting.
	LogSwitch LogSwitch

	// Clock returns a current time. It is useful for tests only.
	//
	// This is an optional setting.
	Clock func() time.Time
}

func (f FilterOpts) valid() error {
	switch {
	case f.Settings == nil:
		return ErrSettingsAreNotDefined
	case f.Encoder == nil:
		return ErrEncoderIsNotDefined
	case f.CaptchaSource == nil:
		return ErrCaptchaSourceIsNotDefined
	case f.AllowList == nil:
		return ErrAllowListIsNotDefined
	case f.EventStream == nil:
		return ErrEventStreamIsNotDefined
	case f.Logger == nil:
		return ErrLoggerIsNotDefined
	}

	return f.Settings.valid()
}

func (f FilterOpts) getPingEstimator() PingEstimator {
	if f.PingEstimator == nil {
		return NewNoopPingEstimator()
	}

	return f.PingEstimator
}

func (f FilterOpts) getClock() func() time.Time {
	if f.Clock == nil {
		return time.Now
	}

	return f.Clock
}
