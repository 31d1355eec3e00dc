package voidlib

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/yl2chen/cidranger"
)

const (
	streamIDLength  = 12
	rememberTimeout = 5 * time.Second
)

type filterSnapshot struct {
	settings  *Settings
	artifacts *ArtifactCache
	captcha   CaptchaSource
	bypass    cidranger.Ranger
	table     []float64
}

// Filter is an entry point of the verification engine. It decides who
// has to be checked, creates sessions and keeps shared state: rates,
// allow list and the current configuration snapshot.
type Filter struct {
	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup

	snapshot    atomic.Pointer[filterSnapshot]
	reloadMutex sync.Mutex
	logsMuted   atomic.Bool

	rates       *RateMonitor
	allowList   AllowList
	pings       PingEstimator
	encoder     Encoder
	eventStream EventStream
	logger      Logger
	logSwitch   LogSwitch
	now         func() time.Time
}

// FilterStats is a point-in-time view of filter counters.
type FilterStats struct {
	Connections int64
	Pings       int64
	Blocked     uint64
	AllowList   int
	LogsMuted   bool
}

// Rates returns a rate monitor of the filter.
func (f *Filter) Rates() *RateMonitor {
	return f.rates
}

// Stats returns current counters.
func (f *Filter) Stats() FilterStats {
	return FilterStats{
		Connections: f.rates.Connections(),
		Pings:       f.rates.Pings(),
		Blocked:     f.rates.Blocked(),
		AllowList:   f.allowList.Size(f.ctx),
		LogsMuted:   f.logsMuted.Load(),
	}
}

// OnPreLogin has to be called when a client starts to log in. It
// returns true if a client has to use offline mode so it can be checked.
func (f *Filter) OnPreLogin(username string, addr *net.TCPAddr) bool {
	f.rates.AddConnection()

	snap := f.snapshot.Load()

	return f.rates.CheckConnections(snap.settings.AutoToggle.OnlineModeVerify) &&
		f.shouldCheckIdentity(snap, username, addr.IP)
}

// ShouldCheck tells if a logged in client has to pass verification.
func (f *Filter) ShouldCheck(username string, addr *net.TCPAddr, onlineMode bool) bool {
	snap := f.snapshot.Load()
	toggle := snap.settings.AutoToggle

	if !f.rates.CheckConnections(toggle.AllBypass) {
		f.send(NewEventBypassed(BypassQuietTraffic))

		return false
	}

	if onlineMode && !f.rates.CheckConnections(toggle.OnlineModeBypass) {
		f.send(NewEventBypassed(BypassOnlineMode))

		return false
	}

	return f.shouldCheckIdentity(snap, username, addr.IP)
}

// OnPing has to be called on each status request. It returns true if a
// server icon has to be removed from a response.
func (f *Filter) OnPing() bool {
	hide := f.rates.CheckPings(f.snapshot.Load().settings.AutoToggle.DisableMOTDPicture)

	f.rates.AddPing()

	return hide
}

// OnQuery has to be called on each query request.
func (f *Filter) OnQuery() {
	f.rates.AddPing()
}

// NewSession creates a verification session for a player. A caller
// has to call [Session.OnSpawn] when a player is in the verification
// world.
func (f *Filter) NewSession(player Player) *Session {
	snap := f.snapshot.Load()
	settings := snap.settings
	addr := player.RemoteAddr()
	gateway := addr.Port == 0
	toggled := f.rates.CheckConnections(settings.AutoToggle.CheckStateToggle)

	var state CheckState

	switch {
	case gateway && toggled:
		state = settings.GatewayCheckState
	case gateway:
		state = settings.GatewayCheckStateNonToggled
	case toggled:
		state = settings.CheckState
	default:
		state = settings.CheckStateNonToggled
	}

	f.checkLoggerToDisable(settings)
	f.pings.Register(addr.IP)

	streamID := newStreamID()
	session := &Session{
		streamID:          streamID,
		consumer:          xxhash.ChecksumString32(streamID),
		player:            player,
		ip:                addr.IP,
		gateway:           gateway,
		filter:            f,
		settings:          settings,
		artifacts:         snap.artifacts,
		captcha:           snap.captcha,
		table:             snap.table,
		stage:             newStage(state, settings),
		waitingTeleportID: noTeleport,
		logger: f.logger.
			BindStr("stream_id", streamID).
			BindStr("username", player.Username()).
			BindStr("ip", addr.IP.String()),
	}

	f.send(NewEventSessionStart(streamID, addr.IP, session.State(), gateway))
	session.logger.BindStr("state", session.State().String()).Info("Session has been started")

	return session
}

// ResetAllowList forgets that a user has passed verification.
func (f *Filter) ResetAllowList(username string) error {
	if err := f.allowList.Remove(f.ctx, username); err != nil {
		return fmt.Errorf("cannot remove %s from allow list: %w", username, err)
	}

	return nil
}

// Reload installs a new configuration snapshot. If captcha is not nil,
// it replaces the current source which is shut down after the swap.
// Sessions which are already running keep an old snapshot until they
// are finished.
func (f *Filter) Reload(settings *Settings, captcha CaptchaSource) error {
	f.reloadMutex.Lock()
	defer f.reloadMutex.Unlock()

	if f.ctx.Err() != nil {
		return ErrFilterClosed
	}

	current := f.snapshot.Load()
	if captcha == nil {
		captcha = current.captcha
	}

	snap, err := f.makeSnapshot(settings, captcha)
	if err != nil {
		return err
	}

	f.snapshot.Store(snap)

	if current.settings.ConnectionsUnit != settings.ConnectionsUnit ||
		current.settings.PingsUnit != settings.PingsUnit {
		f.rates.Restart(settings.ConnectionsUnit, settings.PingsUnit)
	}

	f.addWhitelisted(settings)

	if current.captcha != captcha {
		current.captcha.Shutdown()
	}

	f.logger.Info("Configuration has been reloaded")

	return nil
}

// Shutdown stops background tasks and the captcha source. Running
// sessions are not touched, an allow list is not closed.
func (f *Filter) Shutdown() {
	f.ctxCancel()
	f.wg.Wait()
	f.rates.Stop()
	f.snapshot.Load().captcha.Shutdown()

	if f.logsMuted.CompareAndSwap(true, false) {
		f.logSwitch.Unmute()
	}
}

func (f *Filter) shouldCheckIdentity(snap *filterSnapshot, username string, ip net.IP) bool {
	if ok, err := snap.bypass.Contains(ip); err == nil && ok {
		f.send(NewEventBypassed(BypassNetwork))

		return false
	}

	if f.allowList.Contains(f.ctx, username, ip) {
		f.send(NewEventBypassed(BypassAllowList))

		return false
	}

	return true
}

// remember stores a verified client. It does not block a session event
// loop: remote allow lists may take time.
func (f *Filter) remember(username string, ip net.IP, ttl time.Duration) {
	f.wg.Add(1)

	go func() {
		defer f.wg.Done()

		ctx, cancel := context.WithTimeout(f.ctx, rememberTimeout)
		defer cancel()

		if err := f.allowList.Put(ctx, username, ip, ttl); err != nil {
			f.logger.BindStr("username", username).WarningError("cannot store verified client", err)
		}
	}()
}

func (f *Filter) send(evt Event) {
	f.eventStream.Send(f.ctx, evt)
}

func (f *Filter) addWhitelisted(settings *Settings) {
	for _, v := range settings.Whitelisted {
		if err := f.allowList.Put(f.ctx, v.Username, v.IP, 0); err != nil {
			f.logger.BindStr("username", v.Username).WarningError("cannot add whitelisted player", err)
		}
	}
}

func (f *Filter) logsShouldBeMuted(settings *Settings) bool {
	threshold := settings.AutoToggle.DisableLog

	return f.rates.CheckConnections(threshold) || f.rates.CheckPings(threshold)
}

func (f *Filter) checkLoggerToDisable(settings *Settings) {
	if f.logSwitch == nil || f.logsMuted.Load() || !f.logsShouldBeMuted(settings) {
		return
	}

	if f.logsMuted.CompareAndSwap(false, true) {
		f.logger.Warning("Disabling logs during an attack")
		f.logSwitch.Mute()
		f.send(NewEventLogsMuted(true))
	}
}

func (f *Filter) checkLoggerToEnable() {
	if !f.logsMuted.Load() || f.logsShouldBeMuted(f.snapshot.Load().settings) {
		return
	}

	if f.logsMuted.CompareAndSwap(true, false) {
		f.logSwitch.Unmute()
		f.logger.Warning("Logs are enabled again after an attack")
		f.send(NewEventLogsMuted(false))
	}
}

func (f *Filter) purgeAllowList() {
	purged, err := f.allowList.Purge(f.ctx)
	if err != nil {
		f.logger.WarningError("cannot purge allow list", err)

		return
	}

	f.logger.BindInt("purged", purged).Debug("Allow list has been purged")
}

func (f *Filter) reportTraffic() {
	f.send(NewEventTrafficRate(
		f.rates.Connections(),
		f.rates.Pings(),
		f.rates.Blocked(),
		f.allowList.Size(f.ctx)))
}

// runPeriodically calls fn with an interval taken from the current
// snapshot, so reloads change it without a restart.
func (f *Filter) runPeriodically(interval func(*Settings) time.Duration, fn func()) {
	f.wg.Add(1)

	go func() {
		defer f.wg.Done()

		for {
			timer := time.NewTimer(interval(f.snapshot.Load().settings))

			select {
			case <-f.ctx.Done():
				timer.Stop()

				return
			case <-timer.C:
				fn()
			}
		}
	}()
}

func (f *Filter) makeSnapshot(settings *Settings, captcha CaptchaSource) (*filterSnapshot, error) {
	if err := settings.valid(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	artifacts, err := NewArtifactCache(settings, f.encoder)
	if err != nil {
		return nil, err
	}

	bypass := cidranger.NewPCTrieRanger()

	for _, network := range settings.BypassNetworks {
		if err := bypass.Insert(cidranger.NewBasicRangerEntry(network)); err != nil {
			return nil, fmt.Errorf("cannot add bypass network %s: %w", network.String(), err)
		}
	}

	return &filterSnapshot{
		settings:  settings,
		artifacts: artifacts,
		captcha:   captcha,
		bypass:    bypass,
		table:     FallingTable(settings.FallingCheckTicks),
	}, nil
}

func newStreamID() string {
	buf := make([]byte, streamIDLength)

	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	return base64.RawURLEncoding.EncodeToString(buf)
}

// NewFilter creates a new filter and starts its background tasks.
func NewFilter(opts FilterOpts) (*Filter, error) {
	if err := opts.valid(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Filter{
		ctx:         ctx,
		ctxCancel:   cancel,
		allowList:   opts.AllowList,
		pings:       opts.getPingEstimator(),
		encoder:     opts.Encoder,
		eventStream: opts.EventStream,
		logger:      opts.Logger.Named("filter"),
		logSwitch:   opts.LogSwitch,
		now:         opts.getClock(),
	}

	snap, err := f.makeSnapshot(opts.Settings, opts.CaptchaSource)
	if err != nil {
		cancel()

		return nil, err
	}

	f.snapshot.Store(snap)
	f.rates = NewRateMonitor(opts.Settings.ConnectionsUnit, opts.Settings.PingsUnit)
	f.addWhitelisted(opts.Settings)

	f.runPeriodically(func(s *Settings) time.Duration {
		return s.getLogEnablerCheckRefreshRate()
	}, f.checkLoggerToEnable)
	f.runPeriodically(func(s *Settings) time.Duration {
		if s.AllowListTTL <= 0 {
			return DefaultAllowListTTL
		}

		return s.AllowListTTL
	}, f.purgeAllowList)
	f.runPeriodically(func(s *Settings) time.Duration {
		return s.getTrafficReportRate()
	}, f.reportTraffic)

	return f, nil
}
