package events

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sync/atomic"

	"github.com/OneOfOne/xxhash"
	"github.com/voidcheck/voidcheck/voidlib"
)

const eventChanSize = 64

// EventStream is a default implementation of the
// [voidlib.EventStream] interface.
//
// EventStream manages a set of goroutines, observers. Main
// responsibility of the event stream is to route an event to relevant
// observer based on some hash so each observer will have all events
// which belong to some stream id.
//
// Thus, EventStream can spawn many observers.
type EventStream struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	chans     []chan voidlib.Event

	// atomic.Uint64 must not be copied and EventStream is passed by value
	dropped *atomic.Uint64
}

// Send delivers event to observer.
//
// EventBypassed is emitted on each login of a trusted client so it is
// dropped if an observer is too slow. Other events are delivered with
// blocking.
func (e EventStream) Send(ctx context.Context, evt voidlib.Event) {
	var chanNo uint32

	if streamID := evt.StreamID(); streamID != "" {
		chanNo = xxhash.ChecksumString32(streamID)
	} else {
		chanNo = rand.Uint32()
	}

	ch := e.chans[int(chanNo%uint32(len(e.chans)))]

	if _, ok := evt.(voidlib.EventBypassed); ok {
		select {
		case <-ctx.Done():
		case <-e.ctx.Done():
		case ch <- evt:
		default:
			e.dropped.Add(1)
		}

		return
	}

	select {
	case <-ctx.Done():
	case <-e.ctx.Done():
	case ch <- evt:
	}
}

// Dropped returns a number of events which were dropped on overflow.
func (e EventStream) Dropped() uint64 {
	return e.dropped.Load()
}

// Shutdown stops an event stream pipeline.
func (e EventStream) Shutdown() {
	e.ctxCancel()
}

// NewEventStream builds a new default event stream.
//
// If you give an empty array of observers, then NoopObserver is going
// to be used. If you give many observers, then they will process a
// message concurrently.
func NewEventStream(observerFactories []ObserverFactory) EventStream {
	if len(observerFactories) == 0 {
		observerFactories = append(observerFactories, NewNoopObserver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rv := EventStream{
		ctx:       ctx,
		ctxCancel: cancel,
		chans:     make([]chan voidlib.Event, runtime.NumCPU()),
		dropped:   &atomic.Uint64{},
	}

	for i := range rv.chans {
		rv.chans[i] = make(chan voidlib.Event, eventChanSize)

		if len(observerFactories) == 1 {
			go eventStreamProcessor(ctx, rv.chans[i], observerFactories[0]())
		} else {
			go eventStreamProcessor(ctx, rv.chans[i], newMultiObserver(observerFactories))
		}
	}

	return rv
}

func eventStreamProcessor(ctx context.Context, eventChan <-chan voidlib.Event, observer Observer) { //nolint: cyclop
	defer observer.Shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-eventChan:
			switch typedEvt := evt.(type) {
			case voidlib.EventSessionStart:
				observer.EventSessionStart(typedEvt)
			case voidlib.EventSessionFinish:
				observer.EventSessionFinish(typedEvt)
			case voidlib.EventBlocked:
				observer.EventBlocked(typedEvt)
			case voidlib.EventPassed:
				observer.EventPassed(typedEvt)
			case voidlib.EventCaptchaFallback:
				observer.EventCaptchaFallback(typedEvt)
			case voidlib.EventBypassed:
				observer.EventBypassed(typedEvt)
			case voidlib.EventCaptchaGenerated:
				observer.EventCaptchaGenerated(typedEvt)
			case voidlib.EventTrafficRate:
				observer.EventTrafficRate(typedEvt)
			case voidlib.EventLogsMuted:
				observer.EventLogsMuted(typedEvt)
			}
		}
	}
}
