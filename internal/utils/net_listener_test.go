package utils_test

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/voidcheck/voidcheck/internal/utils"
)

type ListenerTestSuite struct {
	suite.Suite
}

func (suite *ListenerTestSuite) TestAccept() {
	for _, tfo := range []bool{false, true} {
		listener, err := utils.NewListener("127.0.0.1:0", tfo)
		suite.Require().NoError(err)

		if !tfo {
			suite.False(listener.IsTFOEnabled())
		}

		accepted := make(chan net.Conn, 1)

		go func() {
			conn, err := listener.Accept()
			if err == nil {
				accepted <- conn
			}

			close(accepted)
		}()

		client, err := net.DialTimeout("tcp", listener.Addr().String(), time.Second)
		suite.Require().NoError(err)

		select {
		case conn := <-accepted:
			suite.Require().NotNil(conn)
			suite.IsType(&net.TCPConn{}, conn)
			conn.Close()
		case <-time.After(5 * time.Second):
			suite.FailNow("connection was not accepted")
		}

		client.Close()
		listener.Close()
	}
}

func (suite *ListenerTestSuite) TestBusyAddress() {
	listener, err := utils.NewListener("127.0.0.1:0", false)
	suite.Require().NoError(err)

	defer listener.Close()

	_, err = utils.NewListener(listener.Addr().String(), false)
	suite.Error(err)
}

func TestListener(t *testing.T) {
	t.Parallel()
	suite.Run(t, &ListenerTestSuite{})
}
