package voidlib

import (
	"fmt"
	"math"
	"net"
	"strings"
	"time"
)

// noTeleport means that a session waits for no teleport confirmation.
// A confirmation is awaited only after a move to the CAPTCHA world.
const noTeleport = -1

// Session is a verification state machine of a single connection.
//
// Session is not thread-safe: every method has to be called from the
// event loop of the connection, including callbacks scheduled with
// [Player.AfterFunc].
type Session struct {
	streamID string
	consumer uint32
	player   Player
	ip       net.IP
	gateway  bool
	logger   Logger

	filter    *Filter
	settings  *Settings
	artifacts *ArtifactCache
	captcha   CaptchaSource
	table     []float64

	stage             stage
	joinTime          time.Time
	waitingTeleportID int
	onGround          bool
	checkedBySettings bool
	checkedByBrand    bool

	stopDeadline func() bool
	released     bool
}

// StreamID returns a unique ID of the session.
func (s *Session) StreamID() string {
	return s.streamID
}

// State returns a current check state. Rejected sessions report a state
// they were rejected in.
func (s *Session) State() CheckState {
	return s.stage.State()
}

// Finished tells if a session has reached a verdict or was aborted.
func (s *Session) Finished() bool {
	return isTerminal(s.stage)
}

// Rejection returns a reason of a rejection if a session was rejected.
func (s *Session) Rejection() (BlockReason, bool) {
	if st, ok := s.stage.(*stageRejected); ok {
		return st.reason, true
	}

	return 0, false
}

// CaptchaAttempts returns a number of attempts left or -1 if there is no
// challenge in the current state.
func (s *Session) CaptchaAttempts() int {
	if challenge := challengeOf(s.stage); challenge != nil {
		return challenge.attempts
	}

	return -1
}

// OnSpawn starts a verification when a player has joined the
// verification world.
func (s *Session) OnSpawn() {
	if s.Finished() {
		return
	}

	s.joinTime = s.filter.now()

	switch st := s.stage.(type) {
	case *stageOnlyCaptcha:
		s.stage = s.changeStateToCaptcha(st.captcha)
	case *stageOnlyPosition, *stageCaptchaOnPositionFailed:
		s.player.WriteMessage(s.artifacts.FallingCheck())
		s.player.WriteMessage(s.artifacts.FallingCheckGreeting())
	case *stageCaptchaPosition:
		s.player.WriteMessage(s.artifacts.FallingCheck())
	}

	if s.Finished() {
		return
	}

	s.player.Flush()

	timeout := s.settings.Timeout
	if s.gateway {
		timeout = s.settings.GatewayTimeout
	}

	// The deadline is never reset on any state transition.
	s.stopDeadline = s.player.AfterFunc(timeout, s.onDeadline)
}

// OnMove processes a position reported by a client.
func (s *Session) OnMove(x, y, z float64) {
	if s.Finished() {
		return
	}

	coords := s.settings.FallingCoords

	if s.player.ProtocolVersion().ConfirmsTeleportByPosition() &&
		s.waitingTeleportID == coords.TeleportID &&
		x == coords.X && y == coords.Y && z == coords.Z {
		s.OnTeleportAck(s.waitingTeleportID)
	}

	if st, ok := s.stage.(fallingStage); ok {
		s.stage = s.moveFalling(st, x, y, z)
	}
}

// OnGround processes an on-ground flag reported by a client.
func (s *Session) OnGround(onGround bool) {
	s.onGround = onGround
}

// OnTeleportAck processes a teleport confirmation.
func (s *Session) OnTeleportAck(teleportID int) {
	if s.Finished() || teleportID != s.waitingTeleportID {
		return
	}

	s.waitingTeleportID = noTeleport

	if st, ok := s.stage.(fallingStage); ok {
		fall := st.trace()
		fall.ticks = 1
		fall.posY = -1
		fall.lastY = -1
	}
}

// OnChat processes a chat message or a command. Only CAPTCHA stages care
// about it.
func (s *Session) OnChat(message string) {
	if s.Finished() {
		return
	}

	challenge := challengeOf(s.stage)
	if challenge == nil {
		return
	}

	if s.matchesAnswer(message, challenge.answer) ||
		(strings.HasPrefix(message, "/") && s.matchesAnswer(message[1:], challenge.answer)) {
		s.player.WriteMessage(s.artifacts.ResetSlot())
		s.player.Flush()
		s.stage = s.captchaSolved(s.stage)

		return
	}

	challenge.attempts--

	if challenge.attempts > 0 {
		s.stage = s.sendCaptcha(s.stage, challenge)
	} else {
		s.stage = s.reject(s.stage, BlockCaptchaFailed)
	}
}

// OnClientSettings latches that a client has sent its settings.
func (s *Session) OnClientSettings() {
	s.checkedBySettings = true
}

// OnBrand processes a client brand. A brand from a block list rejects a
// session at once if brands are checked.
func (s *Session) OnBrand(brand string) {
	if s.Finished() || s.checkedByBrand {
		return
	}

	s.logger.BindStr("brand", brand).Info("Client has sent its brand")

	if !s.settings.IsBrandBlocked(brand) {
		s.checkedByBrand = true

		return
	}

	if s.settings.CheckClientBrand {
		s.stage = s.reject(s.stage, BlockClientBrand)
	}
}

// OnDisconnect has to be called when a connection is closed for any
// reason.
func (s *Session) OnDisconnect() {
	if !s.Finished() {
		s.stage = &stageAborted{from: s.stage.State()}
	}

	s.release()
}

func (s *Session) onDeadline() {
	if s.Finished() {
		return
	}

	s.stage = s.reject(s.stage, BlockTimesUp)
}

func (s *Session) moveFalling(st fallingStage, x, y, z float64) stage { //nolint: cyclop
	fall := st.trace()
	coords := s.settings.FallingCoords

	fall.posX = x
	fall.lastY = fall.posY
	fall.posY = y
	fall.posZ = z

	if s.settings.FallingCheckDebug {
		s.logPosition(st)
	}

	if !fall.listening {
		if x == coords.X && z == coords.Z {
			fall.listening = true

			if cp, ok := st.(*stageCaptchaPosition); ok {
				if next := s.sendCaptcha(cp, cp.captcha); isTerminal(next) {
					return next
				}
			}
		}

		if fall.nonValidXZ > s.settings.NonValidPositionXZAttempts {
			return s.fallingCheckFailed(st, "a lot of non-valid XZ attempts")
		}

		fall.lastY = coords.Y
		fall.nonValidXZ++
	}

	if !fall.listening || s.onGround {
		return st
	}

	if fall.lastY-fall.posY == 0 {
		fall.ignoredTicks++

		return st
	}

	if fall.ignoredTicks > s.settings.NonValidPositionYAttempts {
		return s.fallingCheckFailed(st, "a lot of non-valid Y attempts")
	}

	if fall.ticks >= s.settings.FallingCheckTicks {
		return s.fallingCheckPassed(st)
	}

	if s.checkY(fall) {
		return s.fallingCheckFailed(st, "non-valid X, Z or velocity")
	}

	if exp := s.artifacts.Experience(fall.ticks); exp != nil {
		s.player.WriteMessage(exp)
		s.player.Flush()
	}

	fall.ticks++

	return st
}

// checkY skips ticks which do not match a delta. Skipped ticks count as
// ignored ones. It returns true if the table is exhausted.
func (s *Session) checkY(fall *fallingTrace) bool {
	delta := fall.lastY - fall.posY

	for fall.ticks < len(s.table) &&
		math.Abs(delta-s.table[fall.ticks]) > s.settings.MaxValidPositionDifference {
		fall.ticks++
		fall.ignoredTicks++
	}

	return fall.ticks >= len(s.table)
}

func (s *Session) fallingCheckPassed(st fallingStage) stage {
	if cp, ok := st.(*stageCaptchaPosition); ok {
		return s.changeStateToCaptcha(cp.captcha)
	}

	return s.finishCheck(st)
}

func (s *Session) fallingCheckFailed(st fallingStage, reason string) stage {
	if s.settings.FallingCheckDebug {
		s.logger.BindStr("reason", reason).Info("Falling check has failed")
	}

	if _, ok := st.(*stageCaptchaOnPositionFailed); ok {
		return s.fallbackToCaptcha()
	}

	return s.reject(st, BlockFallingCheck)
}

func (s *Session) fallbackToCaptcha() stage {
	s.player.WriteMessage(s.artifacts.LastExperience())
	s.player.Flush()
	s.filter.send(NewEventCaptchaFallback(s.streamID))

	return s.changeStateToCaptcha(nil)
}

// changeStateToCaptcha moves a player to the CAPTCHA world. A challenge
// is kept if it was issued before.
func (s *Session) changeStateToCaptcha(challenge *captchaChallenge) stage {
	if challenge == nil {
		challenge = &captchaChallenge{attempts: s.settings.CaptchaAttempts}
	}

	next := &stageOnlyCaptcha{captcha: challenge}

	s.player.Respawn()
	s.player.WriteMessage(s.artifacts.NoAbilities())
	s.player.Flush()

	s.waitingTeleportID = s.settings.FallingCoords.TeleportID

	if challenge.answer == "" {
		return s.sendCaptcha(next, challenge)
	}

	return next
}

func (s *Session) sendCaptcha(current stage, challenge *captchaChallenge) stage {
	artifact := s.captcha.Next(s.consumer)
	if artifact == nil {
		s.logger.Warning("Captcha is not ready yet")

		return s.abort(current, s.artifacts.CaptchaNotReady())
	}

	challenge.answer = artifact.Answer

	s.player.WriteMessage(s.artifacts.CaptchaAttempts(challenge.attempts))
	s.player.WriteMessage(artifact.Artifact)
	s.player.Flush()

	return current
}

func (s *Session) captchaSolved(current stage) stage {
	switch st := current.(type) {
	case *stageCaptchaPosition:
		// the captcha is solved but the fall is not over yet, only the
		// position check is left
		return &stageOnlyPosition{fall: st.fall}
	case *stageOnlyCaptcha:
		return s.finishCheck(st)
	}

	return current
}

func (s *Session) finishCheck(current stage) stage {
	if _, onlyCaptcha := current.(*stageOnlyCaptcha); !onlyCaptcha {
		if s.filter.now().Sub(s.joinTime) < s.settings.FallingCheckTotalTime() {
			if _, ok := current.(*stageCaptchaOnPositionFailed); ok {
				return s.fallbackToCaptcha()
			}

			return s.reject(current, BlockFallingCheck)
		}
	}

	if s.settings.CheckClientSettings && !s.checkedBySettings {
		return s.reject(current, BlockClientSettings)
	}

	if s.settings.CheckClientBrand && !s.checkedByBrand {
		return s.reject(current, BlockClientBrand)
	}

	if s.proxyDetected() {
		return s.reject(current, BlockProxyDetected)
	}

	s.filter.remember(s.player.Username(), s.ip, s.settings.AllowListTTL)

	reconnect := s.filter.rates.CheckConnections(s.settings.AutoToggle.NeedToReconnect)
	if reconnect {
		s.player.CloseWith(s.artifacts.SuccessfulReconnect())
	} else {
		s.player.WriteMessage(s.artifacts.SuccessfulChat())
		s.player.Flush()
		s.player.Disconnect()
	}

	s.logger.Info("Session has passed verification")
	s.filter.send(NewEventPassed(s.streamID, reconnect))
	s.release()

	return &stageSuccessful{}
}

func (s *Session) proxyDetected() bool {
	detector := s.settings.ProxyDetector
	if !detector.Enabled {
		return false
	}

	l7 := s.player.Ping()
	l4, ok := s.filter.pings.Ping(s.ip)

	if !ok || l7 < 0 {
		s.logger.Debug("No round trip samples, skip proxy check")

		return false
	}

	logger := s.logger.
		BindStr("l4_ping", l4.String()).
		BindStr("l7_ping", l7.String())

	if l7-l4 > detector.Difference {
		if detector.DebugOnFail {
			logger.Info("Proxy check has failed")
		}

		return true
	}

	if detector.DebugOnSuccess {
		logger.Info("Proxy check has passed")
	}

	return false
}

func (s *Session) reject(current stage, reason BlockReason) stage {
	s.player.CloseWith(s.artifacts.Kick(reason))
	s.filter.rates.AddBlocked()

	s.logger.BindStr("reason", reason.String()).Info("Session has been blocked")
	s.filter.send(NewEventBlocked(s.streamID, reason))
	s.release()

	return &stageRejected{
		reason: reason,
		from:   current.State(),
	}
}

func (s *Session) abort(current stage, artifact *Artifact) stage {
	s.release()
	s.player.CloseWith(artifact)

	return &stageAborted{from: current.State()}
}

// release cancels a deadline and forgets transport samples. It is safe
// to call it many times.
func (s *Session) release() {
	if s.released {
		return
	}

	s.released = true

	if s.stopDeadline != nil {
		s.stopDeadline()
	}

	s.filter.pings.Remove(s.ip)
	s.filter.send(NewEventSessionFinish(s.streamID))
}

func (s *Session) matchesAnswer(message, answer string) bool {
	if answer == "" {
		return false
	}

	if s.settings.CaptchaIgnoreCase {
		return strings.EqualFold(message, answer)
	}

	return message == answer
}

func (s *Session) logPosition(st fallingStage) {
	fall := st.trace()
	need := 0.0

	if fall.ticks < len(s.table) {
		need = s.table[fall.ticks]
	}

	s.logger.
		BindStr("state", st.State().String()).
		BindInt("ticks", fall.ticks).
		BindInt("ignored_ticks", fall.ignoredTicks).
		BindStr("position", fmt.Sprintf("%f/%f/%f", fall.posX, fall.posY, fall.posZ)).
		BindStr("delta", fmt.Sprintf("%f", fall.lastY-fall.posY)).
		BindStr("need", fmt.Sprintf("%f", need)).
		Info("Falling check position")
}
