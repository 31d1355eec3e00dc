package voidlib_test

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/internal/testlib"
	"github.com/voidcheck/voidcheck/voidlib"
)

type FilterTestSuite struct {
	FilterTestBase
}

func (suite *FilterTestSuite) TestMandatoryOptions() {
	testData := map[string]struct {
		modify func(*voidlib.FilterOpts)
		err    error
	}{
		"settings": {
			modify: func(o *voidlib.FilterOpts) { o.Settings = nil },
			err:    voidlib.ErrSettingsAreNotDefined,
		},
		"encoder": {
			modify: func(o *voidlib.FilterOpts) { o.Encoder = nil },
			err:    voidlib.ErrEncoderIsNotDefined,
		},
		"captcha": {
			modify: func(o *voidlib.FilterOpts) { o.CaptchaSource = nil },
			err:    voidlib.ErrCaptchaSourceIsNotDefined,
		},
		"allow list": {
			modify: func(o *voidlib.FilterOpts) { o.AllowList = nil },
			err:    voidlib.ErrAllowListIsNotDefined,
		},
		"event stream": {
			modify: func(o *voidlib.FilterOpts) { o.EventStream = nil },
			err:    voidlib.ErrEventStreamIsNotDefined,
		},
		"logger": {
			modify: func(o *voidlib.FilterOpts) { o.Logger = nil },
			err:    voidlib.ErrLoggerIsNotDefined,
		},
		"ticks": {
			modify: func(o *voidlib.FilterOpts) { o.Settings.FallingCheckTicks = 0 },
			err:    voidlib.ErrIncorrectFallingCheckTicks,
		},
		"attempts": {
			modify: func(o *voidlib.FilterOpts) { o.Settings.CaptchaAttempts = 0 },
			err:    voidlib.ErrIncorrectCaptchaAttempts,
		},
		"unit": {
			modify: func(o *voidlib.FilterOpts) { o.Settings.PingsUnit = time.Millisecond },
			err:    voidlib.ErrIncorrectRateUnit,
		},
	}

	for name, v := range testData {
		value := v

		suite.Run(name, func() {
			opts := suite.opts()
			settings := *suite.settings
			opts.Settings = &settings

			value.modify(&opts)

			_, err := voidlib.NewFilter(opts)
			suite.ErrorIs(err, value.err)
		})
	}
}

func (suite *FilterTestSuite) TestShouldCheck() {
	suite.allowList.On("Contains", mock.Anything, "steve", mock.Anything).Return(false)

	filter := suite.makeFilter()

	suite.True(filter.ShouldCheck("steve", suite.tcpAddr("10.0.0.1", 1), false))
	suite.Empty(suite.events.Kinds())
}

func (suite *FilterTestSuite) TestQuietTraffic() {
	suite.settings.AutoToggle.AllBypass = 1

	filter := suite.makeFilter()

	suite.False(filter.ShouldCheck("steve", suite.tcpAddr("10.0.0.1", 1), false))

	bypassed := suite.events.Events()[0].(voidlib.EventBypassed) //nolint: forcetypeassert
	suite.Equal(voidlib.BypassQuietTraffic, bypassed.Reason)
}

func (suite *FilterTestSuite) TestOnlineModeBypass() {
	suite.allowList.On("Contains", mock.Anything, "steve", mock.Anything).Return(false)

	filter := suite.makeFilter()

	suite.False(filter.ShouldCheck("steve", suite.tcpAddr("10.0.0.1", 1), true))
	suite.True(filter.ShouldCheck("steve", suite.tcpAddr("10.0.0.1", 1), false))

	bypassed := suite.events.Events()[0].(voidlib.EventBypassed) //nolint: forcetypeassert
	suite.Equal(voidlib.BypassOnlineMode, bypassed.Reason)
}

func (suite *FilterTestSuite) TestBypassNetwork() {
	_, network, _ := net.ParseCIDR("192.168.0.0/16")
	suite.settings.BypassNetworks = []net.IPNet{*network}
	suite.allowList.On("Contains", mock.Anything, "steve", mock.Anything).Return(false)

	filter := suite.makeFilter()

	suite.False(filter.ShouldCheck("steve", suite.tcpAddr("192.168.1.1", 1), false))
	suite.True(filter.ShouldCheck("steve", suite.tcpAddr("10.0.0.1", 1), false))

	bypassed := suite.events.Events()[0].(voidlib.EventBypassed) //nolint: forcetypeassert
	suite.Equal(voidlib.BypassNetwork, bypassed.Reason)
}

func (suite *FilterTestSuite) TestAllowList() {
	suite.allowList.On("Contains", mock.Anything, "steve", mock.Anything).Return(true)

	filter := suite.makeFilter()

	suite.False(filter.ShouldCheck("steve", suite.tcpAddr("10.0.0.1", 1), false))

	bypassed := suite.events.Events()[0].(voidlib.EventBypassed) //nolint: forcetypeassert
	suite.Equal(voidlib.BypassAllowList, bypassed.Reason)
}

func (suite *FilterTestSuite) TestOnPreLogin() {
	suite.settings.AutoToggle.OnlineModeVerify = 2
	suite.allowList.On("Contains", mock.Anything, "steve", mock.Anything).Return(false)

	filter := suite.makeFilter()

	suite.False(filter.OnPreLogin("steve", suite.tcpAddr("10.0.0.1", 1)))
	suite.True(filter.OnPreLogin("steve", suite.tcpAddr("10.0.0.1", 1)))
	suite.EqualValues(2, filter.Rates().Connections())
}

func (suite *FilterTestSuite) TestOnPing() {
	suite.settings.AutoToggle.DisableMOTDPicture = 2

	filter := suite.makeFilter()

	suite.False(filter.OnPing())
	suite.False(filter.OnPing())
	suite.True(filter.OnPing())

	filter.OnQuery()

	suite.EqualValues(4, filter.Rates().Pings())
	suite.Zero(filter.Rates().Connections())
}

func (suite *FilterTestSuite) TestWhitelisted() {
	suite.settings.Whitelisted = []voidlib.WhitelistedPlayer{
		{Username: "admin", IP: net.ParseIP("127.0.0.1")},
	}

	suite.makeFilter()

	suite.allowList.AssertCalled(suite.T(), "Put", mock.Anything, "admin", net.ParseIP("127.0.0.1"), time.Duration(0))
}

func (suite *FilterTestSuite) TestResetAllowList() {
	suite.allowList.On("Remove", mock.Anything, "steve").Return(nil).Once()
	suite.allowList.On("Remove", mock.Anything, "alex").Return(errors.New("boom")).Once()

	filter := suite.makeFilter()

	suite.NoError(filter.ResetAllowList("steve"))
	suite.ErrorContains(filter.ResetAllowList("alex"), "boom")
}

func (suite *FilterTestSuite) TestReload() {
	filter := suite.makeFilter()

	session := filter.NewSession(suite.player)
	suite.Equal(voidlib.CheckCaptchaPosition, session.State())

	newCaptcha := &testlib.CaptchaSourceMock{}
	newCaptcha.On("Shutdown").Once()

	settings := voidlib.DefaultSettings()
	settings.CheckState = voidlib.CheckOnlyPosition
	settings.ConnectionsUnit = time.Minute

	suite.NoError(filter.Reload(settings, newCaptcha))
	suite.captcha.AssertCalled(suite.T(), "Shutdown")

	suite.Equal(voidlib.CheckCaptchaPosition, session.State())
	suite.Equal(voidlib.CheckOnlyPosition, filter.NewSession(suite.player).State())

	filter.Shutdown()
	suite.filter = nil

	newCaptcha.AssertExpectations(suite.T())
	suite.ErrorIs(filter.Reload(settings, nil), voidlib.ErrFilterClosed)
}

func (suite *FilterTestSuite) TestReloadInvalid() {
	filter := suite.makeFilter()

	settings := voidlib.DefaultSettings()
	settings.CaptchaAttempts = -1

	suite.ErrorIs(filter.Reload(settings, nil), voidlib.ErrIncorrectCaptchaAttempts)
	suite.Equal(voidlib.CheckCaptchaPosition, filter.NewSession(suite.player).State())
	suite.captcha.AssertNotCalled(suite.T(), "Shutdown")
}

func (suite *FilterTestSuite) TestMuteLogs() {
	suite.settings.AutoToggle.DisableLog = 0
	suite.settings.LogEnablerCheckRefreshRate = 10 * time.Millisecond
	suite.logSwitch.On("Mute").Once()
	suite.logSwitch.On("Unmute").Once()

	opts := suite.opts()
	opts.LogSwitch = suite.logSwitch

	filter, err := voidlib.NewFilter(opts)
	suite.Require().NoError(err)

	suite.filter = filter

	filter.NewSession(suite.player)
	filter.NewSession(suite.player)

	suite.True(filter.Stats().LogsMuted)

	settings := *suite.settings
	settings.AutoToggle.DisableLog = voidlib.ThresholdDisabled

	suite.NoError(filter.Reload(&settings, nil))
	suite.Eventually(func() bool {
		return !filter.Stats().LogsMuted
	}, time.Second, 10*time.Millisecond)

	suite.Contains(suite.events.Kinds(), "logs_muted")
}

func (suite *FilterTestSuite) TestTrafficReport() {
	suite.settings.TrafficReportRate = 10 * time.Millisecond

	filter := suite.makeFilter()
	filter.OnPing()

	suite.Eventually(func() bool {
		for _, v := range suite.events.Events() {
			if evt, ok := v.(voidlib.EventTrafficRate); ok {
				return evt.Pings == 1
			}
		}

		return false
	}, time.Second, 10*time.Millisecond)
}

func (suite *FilterTestSuite) TestPurge() {
	purged := make(chan struct{}, 1)

	suite.settings.AllowListTTL = 10 * time.Millisecond
	suite.allowList.
		On("Purge", mock.Anything).
		Run(func(_ mock.Arguments) {
			select {
			case purged <- struct{}{}:
			default:
			}
		}).
		Return(3, nil)

	suite.makeFilter()

	select {
	case <-purged:
	case <-time.After(time.Second):
		suite.Fail("allow list was not purged")
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()
	suite.Run(t, &FilterTestSuite{})
}
