package bridge_test

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/allowlist"
	"github.com/voidcheck/voidcheck/bridge"
	"github.com/voidcheck/voidcheck/internal/testlib"
	"github.com/voidcheck/voidcheck/logger"
	"github.com/voidcheck/voidcheck/voidlib"
)

type ServerTestSuite struct {
	suite.Suite

	allowList  *allowlist.Memory
	captcha    *testlib.CaptchaSourceMock
	events     *testlib.EventRecorder
	filter     *voidlib.Filter
	server     *bridge.Server
	httpServer *httptest.Server
}

func (suite *ServerTestSuite) SetupTest() {
	settings := voidlib.DefaultSettings()
	settings.CheckState = voidlib.CheckOnlyCaptcha
	settings.CheckStateNonToggled = voidlib.CheckOnlyCaptcha

	encoder := bridge.NewEncoder()
	artifact, err := voidlib.NewArtifactBuilder(encoder).
		Add(voidlib.MessageMapData{Column: -1, Pixels: []byte{1, 2, 3}}).
		Build()
	suite.Require().NoError(err)

	suite.allowList = allowlist.NewMemory()
	suite.captcha = &testlib.CaptchaSourceMock{}
	suite.events = &testlib.EventRecorder{}

	suite.captcha.On("Shutdown").Maybe()
	suite.captcha.On("Next", mock.Anything).Return(&voidlib.CaptchaArtifact{
		Answer:   "abc",
		Artifact: artifact,
	}).Maybe()

	suite.filter, err = voidlib.NewFilter(voidlib.FilterOpts{
		Settings:      settings,
		Encoder:       encoder,
		CaptchaSource: suite.captcha,
		AllowList:     suite.allowList,
		EventStream:   suite.events,
		Logger:        logger.NewNoopLogger(),
	})
	suite.Require().NoError(err)

	suite.server, err = bridge.NewServer(bridge.ServerOpts{
		Filter:            suite.filter,
		Logger:            logger.NewNoopLogger(),
		SessionsPerSecond: 0.001,
		SessionsBurst:     2,
	})
	suite.Require().NoError(err)

	suite.httpServer = httptest.NewServer(suite.server)
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.httpServer.Close()
	suite.server.Shutdown()
	suite.filter.Shutdown()
	suite.allowList.Close()
}

func (suite *ServerTestSuite) dial() *websocket.Conn {
	url := "ws" + strings.TrimPrefix(suite.httpServer.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	suite.Require().NoError(err)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint: errcheck

	return conn
}

func (suite *ServerTestSuite) send(conn *websocket.Conn, evt bridge.Event) {
	suite.Require().NoError(conn.WriteJSON(evt))
}

func (suite *ServerTestSuite) read(conn *websocket.Conn) bridge.Command {
	cmd := bridge.Command{}

	suite.Require().NoError(conn.ReadJSON(&cmd))

	return cmd
}

func (suite *ServerTestSuite) login(conn *websocket.Conn, username, address string) bridge.Command {
	suite.send(conn, bridge.Event{
		Type:     bridge.EventLogin,
		Username: username,
		Address:  address,
		Protocol: int(voidlib.Version1_20_3),
	})

	return suite.read(conn)
}

func (suite *ServerTestSuite) TestPing() {
	conn := suite.dial()
	defer conn.Close()

	suite.send(conn, bridge.Event{Type: bridge.EventPing})

	cmd := suite.read(conn)

	suite.Equal(bridge.CommandPing, cmd.Type)
	suite.Require().NotNil(cmd.Value)
	suite.False(*cmd.Value)

	_, _, err := conn.ReadMessage()
	suite.Error(err)
}

func (suite *ServerTestSuite) TestPreLogin() {
	conn := suite.dial()
	defer conn.Close()

	suite.send(conn, bridge.Event{
		Type:     bridge.EventPreLogin,
		Username: "steve",
		Address:  "10.0.0.1:5000",
	})

	cmd := suite.read(conn)

	suite.Equal(bridge.CommandPreLogin, cmd.Type)
	suite.Require().NotNil(cmd.Value)
	suite.False(*cmd.Value)

	cmd = suite.login(conn, "steve", "10.0.0.1:5000")

	suite.Equal(bridge.CommandCheck, cmd.Type)
	suite.Require().NotNil(cmd.Value)
	suite.True(*cmd.Value)
}

func (suite *ServerTestSuite) TestUnexpectedEvent() {
	conn := suite.dial()
	defer conn.Close()

	suite.send(conn, bridge.Event{Type: bridge.EventMove})

	_, _, err := conn.ReadMessage()
	suite.Error(err)
}

func (suite *ServerTestSuite) TestAllowListed() {
	suite.NoError(suite.allowList.Put(context.Background(), "steve", net.ParseIP("10.0.0.1"), 0))

	conn := suite.dial()
	defer conn.Close()

	cmd := suite.login(conn, "steve", "10.0.0.1:5000")

	suite.Equal(bridge.CommandCheck, cmd.Type)
	suite.Require().NotNil(cmd.Value)
	suite.False(*cmd.Value)
}

func (suite *ServerTestSuite) TestReset() {
	suite.NoError(suite.allowList.Put(context.Background(), "steve", net.ParseIP("10.0.0.1"), 0))

	conn := suite.dial()
	defer conn.Close()

	suite.send(conn, bridge.Event{Type: bridge.EventReset, Username: "steve"})

	cmd := suite.read(conn)

	suite.Equal(bridge.CommandReset, cmd.Type)
	suite.Require().NotNil(cmd.Value)
	suite.True(*cmd.Value)
	suite.False(suite.allowList.Contains(context.Background(), "steve", net.ParseIP("10.0.0.1")))
}

func (suite *ServerTestSuite) TestThrottled() {
	for range 2 {
		conn := suite.dial()

		cmd := suite.login(conn, "steve", "10.0.0.1:5000")
		suite.Equal(bridge.CommandCheck, cmd.Type)

		suite.send(conn, bridge.Event{Type: bridge.EventDisconnect})
		conn.Close()
	}

	conn := suite.dial()
	defer conn.Close()

	cmd := suite.login(conn, "steve", "10.0.0.1:5000")

	suite.Equal(bridge.CommandThrottled, cmd.Type)

	conn = suite.dial()
	defer conn.Close()

	cmd = suite.login(conn, "alex", "10.0.0.2:5000")

	suite.Equal(bridge.CommandCheck, cmd.Type)
}

func (suite *ServerTestSuite) TestCaptchaSolved() {
	conn := suite.dial()
	defer conn.Close()

	cmd := suite.login(conn, "steve", "10.0.0.1:5000")
	suite.Require().NotNil(cmd.Value)
	suite.True(*cmd.Value)

	suite.send(conn, bridge.Event{Type: bridge.EventSettings})
	suite.send(conn, bridge.Event{Type: bridge.EventBrand, Brand: "vanilla"})
	suite.send(conn, bridge.Event{Type: bridge.EventKeepAlive, PingMillis: 30})
	suite.send(conn, bridge.Event{Type: bridge.EventSpawn})

	suite.Equal(bridge.CommandRespawn, suite.read(conn).Type)

	for {
		cmd = suite.read(conn)
		suite.Equal(bridge.CommandWrite, cmd.Type)
		suite.NotEmpty(cmd.Frames)

		if strings.Contains(string(cmd.Frames[len(cmd.Frames)-1]), `"map_data"`) {
			break
		}
	}

	suite.send(conn, bridge.Event{Type: bridge.EventChat, Message: "abc"})

	for cmd.Type != bridge.CommandProceed {
		cmd = suite.read(conn)
	}

	suite.Eventually(func() bool {
		return suite.allowList.Contains(context.Background(), "steve", net.ParseIP("10.0.0.1"))
	}, 5*time.Second, 10*time.Millisecond)

	suite.Contains(suite.events.Kinds(), "passed")
}

func (suite *ServerTestSuite) TestCaptchaFailed() {
	conn := suite.dial()
	defer conn.Close()

	suite.login(conn, "steve", "10.0.0.1:5000")
	suite.send(conn, bridge.Event{Type: bridge.EventSpawn})

	for range voidlib.DefaultCaptchaAttempts {
		suite.send(conn, bridge.Event{Type: bridge.EventChat, Message: "wrong"})
	}

	cmd := suite.read(conn)
	for cmd.Type != bridge.CommandClose {
		cmd = suite.read(conn)
	}

	suite.Contains(string(cmd.Frames[len(cmd.Frames)-1]), `"disconnect"`)
	suite.Eventually(func() bool {
		for _, evt := range suite.events.Events() {
			if blocked, ok := evt.(voidlib.EventBlocked); ok {
				return blocked.Reason == voidlib.BlockCaptchaFailed
			}
		}

		return false
	}, 5*time.Second, 10*time.Millisecond)
}

func TestServer(t *testing.T) {
	t.Parallel()
	suite.Run(t, &ServerTestSuite{})
}
