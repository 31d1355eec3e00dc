package events

import (
	"context"

	"github.com/voidcheck/voidcheck/voidlib"
)

type noopObserver struct{}

func (n noopObserver) EventSessionStart(_ voidlib.EventSessionStart)         {}
func (n noopObserver) EventSessionFinish(_ voidlib.EventSessionFinish)       {}
func (n noopObserver) EventBlocked(_ voidlib.EventBlocked)                   {}
func (n noopObserver) EventPassed(_ voidlib.EventPassed)                     {}
func (n noopObserver) EventCaptchaFallback(_ voidlib.EventCaptchaFallback)   {}
func (n noopObserver) EventBypassed(_ voidlib.EventBypassed)                 {}
func (n noopObserver) EventCaptchaGenerated(_ voidlib.EventCaptchaGenerated) {}
func (n noopObserver) EventTrafficRate(_ voidlib.EventTrafficRate)           {}
func (n noopObserver) EventLogsMuted(_ voidlib.EventLogsMuted)               {}
func (n noopObserver) Shutdown()                                             {}

// NewNoopObserver creates an observer which does nothing.
func NewNoopObserver() Observer {
	return noopObserver{}
}

type noopStream struct{}

func (n noopStream) Send(_ context.Context, _ voidlib.Event) {}

// NewNoopStream creates an event stream which drops everything.
func NewNoopStream() voidlib.EventStream {
	return noopStream{}
}
