package voidlib

import (
	"sync"
	"sync/atomic"
	"time"
)

// RateCounter approximates a number of arrivals per unit of time
// without keeping a log of events.
//
// Each arrival adds 2*unit to a raw counter. Once per unit a snapshot of
// the visible rate is taken, and every half of a second this snapshot is
// subtracted from the raw counter. So a burst fades out exactly after
// one unit.
type RateCounter struct {
	raw    atomic.Int64
	before atomic.Int64
	unit   atomic.Int64
}

// Add registers a single arrival.
func (r *RateCounter) Add() {
	r.raw.Add(2 * r.unit.Load()) //nolint: gomnd
}

// Rate returns a current rate.
func (r *RateCounter) Rate() int64 {
	unit := r.unit.Load()

	return r.raw.Load() / unit / 2 //nolint: gomnd
}

func (r *RateCounter) snapshot() {
	r.before.Store(r.Rate())
}

func (r *RateCounter) decay() {
	before := r.before.Load()

	// A snapshot may be stale while the value has already decayed.
	// Do not subtract it twice then.
	for {
		current := r.raw.Load()
		if current < before {
			return
		}

		if r.raw.CompareAndSwap(current, current-before) {
			return
		}
	}
}

func (r *RateCounter) setUnit(unit time.Duration) {
	seconds := int64(unit / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	r.unit.Store(seconds)
}

func newRateCounter(unit time.Duration) *RateCounter {
	rv := &RateCounter{}
	rv.setUnit(unit)

	return rv
}

// RateMonitor tracks connection and ping rates and a total number of
// blocked connections.
type RateMonitor struct {
	connections *RateCounter
	pings       *RateCounter
	blocked     atomic.Uint64

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// AddConnection registers a new connection attempt.
func (r *RateMonitor) AddConnection() {
	r.connections.Add()
}

// AddPing registers a status ping or a query.
func (r *RateMonitor) AddPing() {
	r.pings.Add()
}

// AddBlocked registers a connection which was rejected.
func (r *RateMonitor) AddBlocked() {
	r.blocked.Add(1)
}

// Connections returns a smoothed connection rate.
func (r *RateMonitor) Connections() int64 {
	return r.connections.Rate()
}

// Pings returns a smoothed ping rate.
func (r *RateMonitor) Pings() int64 {
	return r.pings.Rate()
}

// Blocked returns a total number of rejected connections.
func (r *RateMonitor) Blocked() uint64 {
	return r.blocked.Load()
}

// CheckConnections tells if a connection rate has reached a threshold.
func (r *RateMonitor) CheckConnections(threshold Threshold) bool {
	return threshold.Reached(r.Connections())
}

// CheckPings tells if a ping rate has reached a threshold.
func (r *RateMonitor) CheckPings(threshold Threshold) bool {
	return threshold.Reached(r.Pings())
}

// Restart restarts periodic tasks with new units. Counted values are
// kept.
func (r *RateMonitor) Restart(connectionsUnit, pingsUnit time.Duration) {
	r.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.connections.setUnit(connectionsUnit)
	r.pings.setUnit(pingsUnit)
	r.stopCh = make(chan struct{})

	r.wg.Add(4) //nolint: gomnd

	go r.snapshotLoop(r.connections, connectionsUnit, r.stopCh)
	go r.decayLoop(r.connections, r.stopCh)
	go r.snapshotLoop(r.pings, pingsUnit, r.stopCh)
	go r.decayLoop(r.pings, r.stopCh)
}

// Stop stops periodic tasks. It is safe to call it many times.
func (r *RateMonitor) Stop() {
	r.mu.Lock()

	if r.stopCh != nil {
		close(r.stopCh)
		r.stopCh = nil
	}

	r.mu.Unlock()
	r.wg.Wait()
}

func (r *RateMonitor) snapshotLoop(counter *RateCounter, unit time.Duration, stopCh <-chan struct{}) {
	defer r.wg.Done()

	ticker := time.NewTicker(unit)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			counter.snapshot()
		case <-stopCh:
			return
		}
	}
}

// decayLoop runs every unit*1000/unit/2 milliseconds, i.e. twice per
// second whatever the unit is.
func (r *RateMonitor) decayLoop(counter *RateCounter, stopCh <-chan struct{}) {
	defer r.wg.Done()

	unit := counter.unit.Load()
	ticker := time.NewTicker(time.Duration(unit*1000/unit/2) * time.Millisecond) //nolint: gomnd
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			counter.decay()
		case <-stopCh:
			return
		}
	}
}

// NewRateMonitor creates a monitor and starts its periodic tasks. Call
// Stop to release them.
func NewRateMonitor(connectionsUnit, pingsUnit time.Duration) *RateMonitor {
	rv := &RateMonitor{
		connections: newRateCounter(connectionsUnit),
		pings:       newRateCounter(pingsUnit),
	}

	rv.Restart(connectionsUnit, pingsUnit)

	return rv
}
