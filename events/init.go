// Package events has a default implementation of the
// [voidlib.EventStream] and a set of interfaces for observers.
//
// An event stream routes events to observers by a stream id so every
// observer instance sees all events of a single session in order.
// Events without a stream id are routed randomly.
package events

import "github.com/voidcheck/voidcheck/voidlib"

// Observer is an instance which processes events. Each observer is
// used by a single goroutine, so it does not have to be thread-safe.
type Observer interface {
	EventSessionStart(voidlib.EventSessionStart)
	EventSessionFinish(voidlib.EventSessionFinish)
	EventBlocked(voidlib.EventBlocked)
	EventPassed(voidlib.EventPassed)
	EventCaptchaFallback(voidlib.EventCaptchaFallback)
	EventBypassed(voidlib.EventBypassed)
	EventCaptchaGenerated(voidlib.EventCaptchaGenerated)
	EventTrafficRate(voidlib.EventTrafficRate)
	EventLogsMuted(voidlib.EventLogsMuted)

	Shutdown()
}

// ObserverFactory creates a new observer for each processing
// goroutine.
type ObserverFactory func() Observer
