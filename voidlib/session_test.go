package voidlib_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/voidlib"
)

type SessionTestSuite struct {
	FilterTestBase
}

func (suite *SessionTestSuite) newSession(state voidlib.CheckState) *voidlib.Session {
	suite.settings.CheckState = state
	suite.makeFilter()

	session := suite.filter.NewSession(suite.player)
	suite.Equal(state, session.State())

	return session
}

// startFalling sends an aligned position and then ticks-1 positions of
// a real fall.
func (suite *SessionTestSuite) startFalling(session *voidlib.Session) float64 {
	coords := suite.settings.FallingCoords
	y := coords.Y

	session.OnMove(coords.X, y, coords.Z)

	for tick := 1; tick < suite.settings.FallingCheckTicks; tick++ {
		y -= voidlib.FallingSpeed(tick)
		session.OnMove(coords.X, y, coords.Z)
	}

	return y
}

func (suite *SessionTestSuite) finishFalling(session *voidlib.Session, y float64) {
	coords := suite.settings.FallingCoords

	session.OnMove(coords.X, y-voidlib.FallingSpeed(suite.settings.FallingCheckTicks), coords.Z)
}

func (suite *SessionTestSuite) identify(session *voidlib.Session) {
	session.OnClientSettings()
	session.OnBrand("vanilla")
}

func (suite *SessionTestSuite) TestOnlyPositionPassed() {
	session := suite.newSession(voidlib.CheckOnlyPosition)
	suite.identify(session)
	session.OnSpawn()

	suite.Len(suite.player.Timers, 1)
	suite.Equal(suite.settings.Timeout, suite.player.Timers[0].Delay)

	y := suite.startFalling(session)

	suite.False(session.Finished())
	suite.Equal(voidlib.CheckOnlyPosition, session.State())

	suite.clock.Advance(time.Second)
	suite.finishFalling(session, y)

	suite.True(session.Finished())
	suite.Equal(voidlib.CheckSuccessful, session.State())
	suite.True(suite.player.Disconnected)
	suite.Nil(suite.player.ClosedWith)
	suite.True(suite.player.Timers[0].Stopped)
	suite.Equal([]string{"start", "passed", "finish"}, suite.events.Kinds())

	suite.filter.Shutdown()
	suite.filter = nil

	suite.allowList.AssertCalled(suite.T(), "Put", mock.Anything, "steve", mock.Anything, time.Hour)
}

func (suite *SessionTestSuite) TestReconnectAfterSuccess() {
	suite.settings.AutoToggle.NeedToReconnect = 0

	session := suite.newSession(voidlib.CheckOnlyPosition)
	suite.identify(session)
	session.OnSpawn()

	y := suite.startFalling(session)
	suite.clock.Advance(time.Second)
	suite.finishFalling(session, y)

	suite.Equal(voidlib.CheckSuccessful, session.State())
	suite.False(suite.player.Disconnected)
	suite.Contains(suite.closedWith(), "join the server again")

	passed := suite.events.Events()[1].(voidlib.EventPassed) //nolint: forcetypeassert
	suite.True(passed.Reconnect)
}

func (suite *SessionTestSuite) TestFallingTooFast() {
	session := suite.newSession(voidlib.CheckOnlyPosition)
	suite.identify(session)
	session.OnSpawn()

	y := suite.startFalling(session)
	suite.finishFalling(session, y)

	reason, ok := session.Rejection()
	suite.True(ok)
	suite.Equal(voidlib.BlockFallingCheck, reason)
	suite.Equal(voidlib.CheckOnlyPosition, session.State())
	suite.Contains(suite.closedWith(), "falling check has failed")
}

func (suite *SessionTestSuite) TestWrongVelocity() {
	session := suite.newSession(voidlib.CheckOnlyPosition)
	session.OnSpawn()

	coords := suite.settings.FallingCoords

	session.OnMove(coords.X, coords.Y, coords.Z)
	session.OnMove(coords.X, coords.Y-3, coords.Z)

	reason, ok := session.Rejection()
	suite.True(ok)
	suite.Equal(voidlib.BlockFallingCheck, reason)
	suite.EqualValues(1, suite.filter.Rates().Blocked())
	suite.Equal([]string{"start", "blocked", "finish"}, suite.events.Kinds())
}

func (suite *SessionTestSuite) TestNonValidXZAttempts() {
	session := suite.newSession(voidlib.CheckOnlyPosition)
	session.OnSpawn()

	coords := suite.settings.FallingCoords

	for i := 0; i <= suite.settings.NonValidPositionXZAttempts; i++ {
		session.OnMove(coords.X+1, coords.Y, coords.Z)
		suite.False(session.Finished())
	}

	session.OnMove(coords.X+1, coords.Y, coords.Z)

	reason, ok := session.Rejection()
	suite.True(ok)
	suite.Equal(voidlib.BlockFallingCheck, reason)
	suite.EqualValues(1, suite.filter.Rates().Blocked())

	session.OnMove(coords.X+1, coords.Y, coords.Z)
	suite.EqualValues(1, suite.filter.Rates().Blocked())
}

func (suite *SessionTestSuite) TestNonValidYAttempts() {
	session := suite.newSession(voidlib.CheckOnlyPosition)
	session.OnSpawn()

	coords := suite.settings.FallingCoords

	for i := 0; i <= suite.settings.NonValidPositionYAttempts+1; i++ {
		session.OnMove(coords.X, coords.Y, coords.Z)
	}

	suite.False(session.Finished())

	session.OnMove(coords.X, coords.Y-voidlib.FallingSpeed(1), coords.Z)

	reason, ok := session.Rejection()
	suite.True(ok)
	suite.Equal(voidlib.BlockFallingCheck, reason)
}

func (suite *SessionTestSuite) TestOnGroundIsIgnored() {
	session := suite.newSession(voidlib.CheckOnlyPosition)
	session.OnSpawn()

	coords := suite.settings.FallingCoords

	session.OnGround(true)
	session.OnMove(coords.X, coords.Y, coords.Z)
	session.OnMove(coords.X, coords.Y-100, coords.Z)

	suite.False(session.Finished())
}

func (suite *SessionTestSuite) TestCaptchaPositionSolvedFirst() {
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckCaptchaPosition)
	suite.identify(session)
	session.OnSpawn()

	coords := suite.settings.FallingCoords

	session.OnMove(coords.X, coords.Y, coords.Z)
	suite.True(suite.player.WasWritten(suite.challenge.Artifact))
	suite.Equal(2, session.CaptchaAttempts())

	session.OnChat("ABC")
	suite.Equal(voidlib.CheckOnlyPosition, session.State())
	suite.Equal(-1, session.CaptchaAttempts())

	y := coords.Y
	for tick := 1; tick < suite.settings.FallingCheckTicks; tick++ {
		y -= voidlib.FallingSpeed(tick)
		session.OnMove(coords.X, y, coords.Z)
	}

	suite.clock.Advance(time.Second)
	suite.finishFalling(session, y)

	suite.Equal(voidlib.CheckSuccessful, session.State())
	suite.Zero(suite.player.Respawns)
	suite.captcha.AssertNumberOfCalls(suite.T(), "Next", 1)
}

func (suite *SessionTestSuite) TestCaptchaPositionFallenFirst() {
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckCaptchaPosition)
	suite.identify(session)
	session.OnSpawn()

	y := suite.startFalling(session)
	suite.finishFalling(session, y)

	suite.Equal(voidlib.CheckOnlyCaptcha, session.State())
	suite.Equal(1, suite.player.Respawns)

	session.OnChat("/abc")

	suite.Equal(voidlib.CheckSuccessful, session.State())
	suite.captcha.AssertNumberOfCalls(suite.T(), "Next", 1)
}

func (suite *SessionTestSuite) TestOnlyCaptchaPassed() {
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	suite.identify(session)
	session.OnSpawn()

	suite.Equal(1, suite.player.Respawns)
	suite.True(suite.player.WasWritten(suite.challenge.Artifact))

	session.OnChat("abc")

	suite.Equal(voidlib.CheckSuccessful, session.State())
	suite.True(suite.player.Disconnected)
}

func (suite *SessionTestSuite) TestCaptchaCaseSensitive() {
	suite.settings.CaptchaIgnoreCase = false
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	suite.identify(session)
	session.OnSpawn()
	session.OnChat("ABC")

	suite.Equal(1, session.CaptchaAttempts())
	suite.False(session.Finished())
}

func (suite *SessionTestSuite) TestCaptchaAttemptsExhausted() {
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	session.OnSpawn()

	suite.Equal(2, session.CaptchaAttempts())

	session.OnChat("wrong")

	suite.Equal(1, session.CaptchaAttempts())
	suite.False(session.Finished())

	session.OnChat("wrong again")

	reason, ok := session.Rejection()
	suite.True(ok)
	suite.Equal(voidlib.BlockCaptchaFailed, reason)
	suite.Contains(suite.closedWith(), "CAPTCHA answer was wrong")
	suite.captcha.AssertNumberOfCalls(suite.T(), "Next", 2)
	suite.Equal([]string{"start", "blocked", "finish"}, suite.events.Kinds())
}

func (suite *SessionTestSuite) TestCaptchaNotReady() {
	suite.captcha.On("Next", mock.Anything).Return(nil)

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	session.OnSpawn()

	suite.True(session.Finished())

	_, rejected := session.Rejection()
	suite.False(rejected)
	suite.Contains(suite.closedWith(), "not ready")
	suite.Empty(suite.player.Timers)
	suite.Equal([]string{"start", "finish"}, suite.events.Kinds())
}

func (suite *SessionTestSuite) TestFallbackToCaptcha() {
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckCaptchaOnPositionFailed)
	suite.identify(session)
	session.OnSpawn()

	coords := suite.settings.FallingCoords

	session.OnMove(coords.X, coords.Y, coords.Z)
	session.OnMove(coords.X, coords.Y-3, coords.Z)

	suite.False(session.Finished())
	suite.Equal(voidlib.CheckOnlyCaptcha, session.State())
	suite.Equal(1, suite.player.Respawns)
	suite.Len(suite.player.Timers, 1)
	suite.Equal([]string{"start", "fallback"}, suite.events.Kinds())

	session.OnChat("abc")

	suite.Equal(voidlib.CheckSuccessful, session.State())
}

func (suite *SessionTestSuite) TestDeadline() {
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckCaptchaOnPositionFailed)
	session.OnSpawn()

	coords := suite.settings.FallingCoords

	session.OnMove(coords.X, coords.Y, coords.Z)
	session.OnMove(coords.X, coords.Y-3, coords.Z)

	suite.player.Fire()

	reason, ok := session.Rejection()
	suite.True(ok)
	suite.Equal(voidlib.BlockTimesUp, reason)
	suite.Equal(voidlib.CheckOnlyCaptcha, session.State())
	suite.Contains(suite.closedWith(), "took too long")
}

func (suite *SessionTestSuite) TestGatewayTimeout() {
	suite.withChallenge()

	suite.player.Addr.Port = 0

	suite.makeFilter()

	session := suite.filter.NewSession(suite.player)
	session.OnSpawn()

	suite.Equal(suite.settings.GatewayCheckState, session.State())
	suite.Equal(suite.settings.GatewayTimeout, suite.player.Timers[0].Delay)

	start := suite.events.Events()[0].(voidlib.EventSessionStart) //nolint: forcetypeassert
	suite.True(start.Gateway)
}

func (suite *SessionTestSuite) TestNoClientSettings() {
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	session.OnBrand("vanilla")
	session.OnSpawn()
	session.OnChat("abc")

	reason, _ := session.Rejection()
	suite.Equal(voidlib.BlockClientSettings, reason)
}

func (suite *SessionTestSuite) TestNoClientBrand() {
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	session.OnClientSettings()
	session.OnSpawn()
	session.OnChat("abc")

	reason, _ := session.Rejection()
	suite.Equal(voidlib.BlockClientBrand, reason)
}

func (suite *SessionTestSuite) TestChecksDisabled() {
	suite.settings.CheckClientBrand = false
	suite.settings.CheckClientSettings = false
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	session.OnSpawn()
	session.OnChat("abc")

	suite.Equal(voidlib.CheckSuccessful, session.State())
}

func (suite *SessionTestSuite) TestBlockedBrand() {
	suite.settings.BlockedClientBrands = []string{"bad-client"}

	session := suite.newSession(voidlib.CheckOnlyPosition)
	session.OnSpawn()
	session.OnBrand("Bad-Client")

	reason, ok := session.Rejection()
	suite.True(ok)
	suite.Equal(voidlib.BlockClientBrand, reason)
}

func (suite *SessionTestSuite) TestProxyDetected() {
	suite.settings.ProxyDetector.Enabled = true
	suite.player.PingValue = 100 * time.Millisecond
	suite.pings.On("Ping", mock.Anything).Return(10*time.Millisecond, true)
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	suite.identify(session)
	session.OnSpawn()
	session.OnChat("abc")

	reason, ok := session.Rejection()
	suite.True(ok)
	suite.Equal(voidlib.BlockProxyDetected, reason)
}

func (suite *SessionTestSuite) TestProxyCheckPassed() {
	suite.settings.ProxyDetector.Enabled = true
	suite.player.PingValue = 12 * time.Millisecond
	suite.pings.On("Ping", mock.Anything).Return(10*time.Millisecond, true)
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	suite.identify(session)
	session.OnSpawn()
	session.OnChat("abc")

	suite.Equal(voidlib.CheckSuccessful, session.State())
}

func (suite *SessionTestSuite) TestProxyCheckWithoutSamples() {
	suite.settings.ProxyDetector.Enabled = true
	suite.player.PingValue = time.Second
	suite.pings.On("Ping", mock.Anything).Return(time.Duration(0), false)
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	suite.identify(session)
	session.OnSpawn()
	session.OnChat("abc")

	suite.Equal(voidlib.CheckSuccessful, session.State())
}

func (suite *SessionTestSuite) TestDisconnect() {
	session := suite.newSession(voidlib.CheckOnlyPosition)
	session.OnSpawn()
	session.OnDisconnect()
	session.OnDisconnect()

	suite.True(session.Finished())
	suite.True(suite.player.Timers[0].Stopped)
	suite.Equal([]string{"start", "finish"}, suite.events.Kinds())

	written := len(suite.player.Written)

	session.OnMove(0, 0, 0)
	session.OnChat("abc")
	suite.Len(suite.player.Written, written)
}

func (suite *SessionTestSuite) TestLegacyTeleportConfirmation() {
	suite.player.Version = voidlib.Version1_8

	session := suite.newSession(voidlib.CheckOnlyPosition)
	suite.identify(session)
	session.OnSpawn()

	y := suite.startFalling(session)
	suite.clock.Advance(time.Second)
	suite.finishFalling(session, y)

	suite.Equal(voidlib.CheckSuccessful, session.State())
}

func (suite *SessionTestSuite) TestLateTeleportAckDuringFall() {
	session := suite.newSession(voidlib.CheckOnlyPosition)
	suite.identify(session)
	session.OnSpawn()

	coords := suite.settings.FallingCoords
	y := coords.Y

	session.OnMove(coords.X, y, coords.Z)

	for tick := 1; tick < suite.settings.FallingCheckTicks; tick++ {
		if tick == 4 { //nolint: gomnd
			session.OnTeleportAck(coords.TeleportID)
		}

		y -= voidlib.FallingSpeed(tick)
		session.OnMove(coords.X, y, coords.Z)
	}

	suite.clock.Advance(time.Second)
	suite.finishFalling(session, y)

	suite.Equal(voidlib.CheckSuccessful, session.State())

	_, rejected := session.Rejection()
	suite.False(rejected)
}

func (suite *SessionTestSuite) TestTeleportAckAfterCaptchaRespawn() {
	suite.withChallenge()

	session := suite.newSession(voidlib.CheckOnlyCaptcha)
	session.OnSpawn()

	session.OnTeleportAck(suite.settings.FallingCoords.TeleportID)
	session.OnTeleportAck(suite.settings.FallingCoords.TeleportID)

	suite.Equal(voidlib.CheckOnlyCaptcha, session.State())
	suite.False(session.Finished())
}

func TestSession(t *testing.T) {
	t.Parallel()
	suite.Run(t, &SessionTestSuite{})
}
