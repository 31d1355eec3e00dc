package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/allowlist"
	"github.com/voidcheck/voidcheck/bridge"
	"github.com/voidcheck/voidcheck/captcha"
	"github.com/voidcheck/voidcheck/internal/config"
	"github.com/voidcheck/voidcheck/internal/testlib"
	"github.com/voidcheck/voidcheck/logger"
	"github.com/voidcheck/voidcheck/voidlib"
)

type RunFilterTestSuite struct {
	suite.Suite
}

func (suite *RunFilterTestSuite) parse(content string) *config.Config {
	conf, err := config.Parse([]byte(content))
	suite.Require().NoError(err)

	return conf
}

func (suite *RunFilterTestSuite) TestDefaultSettings() {
	conf := suite.parse("[bridge]\nbindTo = \"127.0.0.1:25580\"\n")

	suite.Equal(voidlib.DefaultSettings(), makeSettings(conf))
}

func (suite *RunFilterTestSuite) TestSettings() {
	conf := suite.parse(`
[check]
state = "only_captcha"
gatewayTimeout = "1m"
fallingCheckTicks = 32
checkClientSettings = false
blockedClientBrands = ["bot"]

[check.coords]
y = 300.0
teleportId = 7

[rates]
pingsUnit = "10s"

[autoToggle]
needToReconnect = -1
allBypass = 5

[allowlist]
ttl = "24h"
bypassNetworks = ["10.0.0.0/8"]

[[allowlist.whitelisted]]
username = "steve"
ip = "10.1.1.1"

[tcpwatch]
enabled = true
interface = "eth0"
port = 25565
difference = "20ms"
debugOnFail = true

[bridge]
bindTo = "127.0.0.1:25580"

[strings]
prefix = "VC"
timesUpKick = "too slow"
`)

	settings := makeSettings(conf)
	defaults := voidlib.DefaultSettings()

	suite.Equal(voidlib.CheckOnlyCaptcha, settings.CheckState)
	suite.Equal(defaults.CheckStateNonToggled, settings.CheckStateNonToggled)
	suite.Equal(time.Minute, settings.GatewayTimeout)
	suite.Equal(defaults.Timeout, settings.Timeout)
	suite.Equal(32, settings.FallingCheckTicks)
	suite.False(settings.CheckClientSettings)
	suite.True(settings.CheckClientBrand)
	suite.True(settings.IsBrandBlocked("BOT"))
	suite.Equal(voidlib.Coords{Y: 300, TeleportID: 7}, settings.FallingCoords)

	suite.Equal(10*time.Second, settings.PingsUnit)
	suite.Equal(defaults.ConnectionsUnit, settings.ConnectionsUnit)

	suite.Equal(voidlib.ThresholdDisabled, settings.AutoToggle.NeedToReconnect)
	suite.EqualValues(5, settings.AutoToggle.AllBypass)
	suite.Equal(defaults.AutoToggle.DisableLog, settings.AutoToggle.DisableLog)

	suite.Equal(24*time.Hour, settings.AllowListTTL)
	suite.Require().Len(settings.BypassNetworks, 1)
	suite.Equal("10.0.0.0/8", settings.BypassNetworks[0].String())
	suite.Require().Len(settings.Whitelisted, 1)
	suite.Equal("steve", settings.Whitelisted[0].Username)
	suite.Equal("10.1.1.1", settings.Whitelisted[0].IP.String())

	suite.True(settings.ProxyDetector.Enabled)
	suite.Equal(20*time.Millisecond, settings.ProxyDetector.Difference)
	suite.True(settings.ProxyDetector.DebugOnFail)
	suite.False(settings.ProxyDetector.DebugOnSuccess)

	suite.Equal("VC", settings.Strings.Prefix)
	suite.Equal("too slow", settings.Strings.TimesUpKick)
	suite.Equal(defaults.Strings.ProxyCheckKick, settings.Strings.ProxyCheckKick)
}

func (suite *RunFilterTestSuite) TestCaptchaOptions() {
	conf := suite.parse(`
[captcha]
imagesCount = 10
length = 2
numberSpelling = true
curvesAmount = 0
colors = ["#aa0000"]

[captcha.spelling]
exceptions = { "11" = "onze" }
words = [["", "un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit", "neuf"],
         ["", "dix", "vingt", "trente", "quarante", "cinquante", "soixante", "soixante-dix", "quatre-vingt", "quatre-vingt-dix"]]

[captcha.gradient]
enabled = true
count = 4
endY = 100.0

[bridge]
bindTo = "127.0.0.1:25580"
`)

	opts := makeCaptchaOptions(conf, bridge.NewEncoder(), logger.NewNoopLogger(), nil)

	suite.Equal(10, opts.ImagesCount)
	suite.Equal(2, opts.Length)
	suite.True(opts.NumberSpelling)
	suite.Empty(opts.Pattern)
	suite.Equal(0, opts.CurvesAmount)
	suite.Equal([]string{"AA0000"}, opts.Colors)
	suite.True(opts.UseStandardFonts)
	suite.Equal("onze", opts.Spelling.Exceptions["11"])
	suite.Len(opts.Spelling.Words, 2)

	suite.Require().NotNil(opts.Gradient)
	suite.Equal(4, opts.Gradient.Count)
	suite.InDelta(100.0, opts.Gradient.EndY, 0.001)
	suite.InDelta(captcha.DefaultGradient().StartY, opts.Gradient.StartY, 0.001)

	generator, err := captcha.NewGenerator(opts)
	suite.Require().NoError(err)
	generator.Shutdown()
}

func (suite *RunFilterTestSuite) TestCaptchaOptionsDefaults() {
	conf := suite.parse("[bridge]\nbindTo = \"127.0.0.1:25580\"\n")
	opts := makeCaptchaOptions(conf, bridge.NewEncoder(), logger.NewNoopLogger(), nil)

	suite.Equal(captcha.DefaultPattern, opts.Pattern)
	suite.Equal(captcha.DefaultCurves, opts.CurvesAmount)
	suite.Nil(opts.Gradient)
	suite.Empty(opts.Colors)
}

func (suite *RunFilterTestSuite) TestMemoryAllowList() {
	conf := suite.parse("[bridge]\nbindTo = \"127.0.0.1:25580\"\n")

	allowList, err := makeAllowList(suite.T().Context(), conf)
	suite.Require().NoError(err)
	suite.NoError(allowList.Close())
}

func (suite *RunFilterTestSuite) TestNoPingEstimator() {
	conf := suite.parse("[bridge]\nbindTo = \"127.0.0.1:25580\"\n")

	suite.Nil(makePingEstimator(conf, logger.NewNoopLogger()))
}

func (suite *RunFilterTestSuite) makeFilter(source voidlib.CaptchaSource) *voidlib.Filter {
	allowList := allowlist.NewMemory()
	suite.T().Cleanup(func() { allowList.Close() })

	filter, err := voidlib.NewFilter(voidlib.FilterOpts{
		Settings:      voidlib.DefaultSettings(),
		Encoder:       bridge.NewEncoder(),
		CaptchaSource: source,
		AllowList:     allowList,
		EventStream:   &testlib.EventRecorder{},
		Logger:        logger.NewNoopLogger(),
	})
	suite.Require().NoError(err)

	return filter
}

func (suite *RunFilterTestSuite) writeConfig(pattern string) string {
	path := filepath.Join(suite.T().TempDir(), "config.toml")
	content := fmt.Sprintf(`
[captcha]
imagesCount = 2
concurrency = 1
pattern = "%s"

[bridge]
bindTo = "127.0.0.1:25580"
`, pattern)

	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o600))

	return path
}

func (suite *RunFilterTestSuite) TestReloadKeepsCaptchaOnFailure() {
	current := &testlib.CaptchaSourceMock{}
	current.On("Shutdown").Return()

	filter := suite.makeFilter(current)
	path := suite.writeConfig(`ab\uE000`)

	err := reloadFilter(path, filter, bridge.NewEncoder(), logger.NewNoopLogger(), &testlib.EventRecorder{})
	suite.ErrorIs(err, captcha.ErrMissingGlyph)
	current.AssertNotCalled(suite.T(), "Shutdown")

	filter.Shutdown()
	current.AssertNumberOfCalls(suite.T(), "Shutdown", 1)
}

func (suite *RunFilterTestSuite) TestReloadInstallsReadyCaptcha() {
	current := &testlib.CaptchaSourceMock{}
	current.On("Shutdown").Return()

	filter := suite.makeFilter(current)
	defer filter.Shutdown()

	path := suite.writeConfig("abc")

	suite.NoError(reloadFilter(path, filter, bridge.NewEncoder(), logger.NewNoopLogger(), &testlib.EventRecorder{}))
	current.AssertNumberOfCalls(suite.T(), "Shutdown", 1)

	player := testlib.NewFakePlayer("steve", "10.0.0.1", 5000)

	settings := voidlib.DefaultSettings()
	settings.CheckState = voidlib.CheckOnlyCaptcha
	settings.CheckStateNonToggled = voidlib.CheckOnlyCaptcha
	suite.Require().NoError(filter.Reload(settings, nil))

	session := filter.NewSession(player)
	session.OnSpawn()

	suite.False(session.Finished())
}

func TestRunFilter(t *testing.T) {
	t.Parallel()
	suite.Run(t, &RunFilterTestSuite{})
}
