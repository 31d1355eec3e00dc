package events

import (
	"sync"

	"github.com/voidcheck/voidcheck/voidlib"
)

// multiObserver delivers an event to every observer concurrently and
// waits until all of them are done.
type multiObserver struct {
	observers []Observer
}

func (m multiObserver) EventSessionStart(evt voidlib.EventSessionStart) {
	m.each(func(o Observer) { o.EventSessionStart(evt) })
}

func (m multiObserver) EventSessionFinish(evt voidlib.EventSessionFinish) {
	m.each(func(o Observer) { o.EventSessionFinish(evt) })
}

func (m multiObserver) EventBlocked(evt voidlib.EventBlocked) {
	m.each(func(o Observer) { o.EventBlocked(evt) })
}

func (m multiObserver) EventPassed(evt voidlib.EventPassed) {
	m.each(func(o Observer) { o.EventPassed(evt) })
}

func (m multiObserver) EventCaptchaFallback(evt voidlib.EventCaptchaFallback) {
	m.each(func(o Observer) { o.EventCaptchaFallback(evt) })
}

func (m multiObserver) EventBypassed(evt voidlib.EventBypassed) {
	m.each(func(o Observer) { o.EventBypassed(evt) })
}

func (m multiObserver) EventCaptchaGenerated(evt voidlib.EventCaptchaGenerated) {
	m.each(func(o Observer) { o.EventCaptchaGenerated(evt) })
}

func (m multiObserver) EventTrafficRate(evt voidlib.EventTrafficRate) {
	m.each(func(o Observer) { o.EventTrafficRate(evt) })
}

func (m multiObserver) EventLogsMuted(evt voidlib.EventLogsMuted) {
	m.each(func(o Observer) { o.EventLogsMuted(evt) })
}

func (m multiObserver) Shutdown() {
	for _, v := range m.observers {
		v.Shutdown()
	}
}

func (m multiObserver) each(callback func(Observer)) {
	wg := &sync.WaitGroup{}

	wg.Add(len(m.observers))

	for _, v := range m.observers {
		go func(obs Observer) {
			defer wg.Done()

			callback(obs)
		}(v)
	}

	wg.Wait()
}

func newMultiObserver(factories []ObserverFactory) Observer {
	observers := make([]Observer, len(factories))

	for i, v := range factories {
		observers[i] = v()
	}

	return multiObserver{
		observers: observers,
	}
}
