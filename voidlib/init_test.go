package voidlib_test

import (
	"net"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/internal/testlib"
	"github.com/voidcheck/voidcheck/logger"
	"github.com/voidcheck/voidcheck/voidlib"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.now = f.now.Add(d)
}

type FilterTestBase struct {
	suite.Suite

	settings  *voidlib.Settings
	clock     *fakeClock
	allowList *testlib.AllowListMock
	captcha   *testlib.CaptchaSourceMock
	pings     *testlib.PingEstimatorMock
	logSwitch *testlib.LogSwitchMock
	events    *testlib.EventRecorder
	player    *testlib.FakePlayer
	challenge *voidlib.CaptchaArtifact
	filter    *voidlib.Filter
}

func (suite *FilterTestBase) SetupTest() {
	suite.settings = voidlib.DefaultSettings()
	suite.settings.FallingCheckTicks = 10
	suite.settings.Strings.Prefix = "PREFIX"
	suite.clock = &fakeClock{
		now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	suite.allowList = &testlib.AllowListMock{}
	suite.captcha = &testlib.CaptchaSourceMock{}
	suite.pings = &testlib.PingEstimatorMock{}
	suite.logSwitch = &testlib.LogSwitchMock{}
	suite.events = &testlib.EventRecorder{}
	suite.player = testlib.NewFakePlayer("steve", "10.0.0.1", 25565)

	artifact, err := voidlib.NewArtifactBuilder(testlib.StubEncoder{}).
		Add(voidlib.MessageSetSlot{Slot: voidlib.CaptchaSlot, Item: "filled_map", Count: 1}).
		Add(voidlib.MessageMapData{Column: -1, Pixels: []byte{4, 5, 6}}).
		Build()
	suite.Require().NoError(err)

	suite.challenge = &voidlib.CaptchaArtifact{
		Answer:   "abc",
		Artifact: artifact,
	}

	suite.allowList.
		On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).
		Maybe()
	suite.allowList.On("Size", mock.Anything).Return(0).Maybe()
	suite.captcha.On("Shutdown").Maybe()
	suite.pings.On("Register", mock.Anything).Maybe()
	suite.pings.On("Remove", mock.Anything).Maybe()
}

func (suite *FilterTestBase) TearDownTest() {
	if suite.filter != nil {
		suite.filter.Shutdown()
		suite.filter = nil
	}

	suite.allowList.AssertExpectations(suite.T())
	suite.captcha.AssertExpectations(suite.T())
	suite.pings.AssertExpectations(suite.T())
	suite.logSwitch.AssertExpectations(suite.T())
}

func (suite *FilterTestBase) opts() voidlib.FilterOpts {
	return voidlib.FilterOpts{
		Settings:      suite.settings,
		Encoder:       testlib.StubEncoder{},
		CaptchaSource: suite.captcha,
		AllowList:     suite.allowList,
		EventStream:   suite.events,
		Logger:        logger.NewNoopLogger(),
		PingEstimator: suite.pings,
		Clock:         suite.clock.Now,
	}
}

func (suite *FilterTestBase) makeFilter() *voidlib.Filter {
	filter, err := voidlib.NewFilter(suite.opts())
	suite.Require().NoError(err)

	suite.filter = filter

	return filter
}

func (suite *FilterTestBase) withChallenge() {
	suite.captcha.On("Next", mock.Anything).Return(suite.challenge)
}

func (suite *FilterTestBase) closedWith() string {
	suite.Require().NotNil(suite.player.ClosedWith)

	return framesText(suite.player.ClosedWith, suite.player.Version)
}

func (suite *FilterTestBase) tcpAddr(ip string, port int) *net.TCPAddr {
	return &net.TCPAddr{
		IP:   net.ParseIP(ip),
		Port: port,
	}
}
