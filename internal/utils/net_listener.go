package utils

import (
	"fmt"
	"net"
	"time"
)

const (
	DefaultTCPKeepAlivePeriod = 30 * time.Second
	DefaultTFOQueueLen        = 256
)

// Listener настраивает каждое принятое соединение от прокси.
type Listener struct {
	net.Listener

	tfoEnabled bool
}

func (l Listener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	if err := setSocketOptions(conn); err != nil {
		conn.Close()

		return nil, fmt.Errorf("cannot set TCP options: %w", err)
	}

	return conn, nil
}

// IsTFOEnabled возвращает true если TFO включен на listener.
func (l Listener) IsTFOEnabled() bool {
	return l.tfoEnabled
}

// NewListener создаёт TCP listener. Если enableTFO=true и ядро
// поддерживает серверный TFO, он включается. Иначе обычный listener.
func NewListener(bindTo string, enableTFO bool) (Listener, error) {
	var (
		base net.Listener
		err  error
	)

	tfoActive := enableTFO && isTFOServerEnabled()

	if tfoActive {
		base, err = listenTFO(bindTo, DefaultTFOQueueLen)
	} else {
		base, err = net.Listen("tcp", bindTo)
	}

	if err != nil {
		return Listener{}, fmt.Errorf("cannot build a base listener: %w", err)
	}

	return Listener{
		Listener:   base,
		tfoEnabled: tfoActive,
	}, nil
}

func setSocketOptions(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	// TCP_NODELAY - команды моста маленькие, Nagle только мешает
	if err := tcpConn.SetNoDelay(true); err != nil {
		return fmt.Errorf("cannot set TCP_NODELAY: %w", err)
	}

	if err := tcpConn.SetKeepAlive(true); err != nil {
		return fmt.Errorf("cannot enable TCP keepalive: %w", err)
	}

	if err := tcpConn.SetKeepAlivePeriod(DefaultTCPKeepAlivePeriod); err != nil {
		return fmt.Errorf("cannot set time period of TCP keepalive probes: %w", err)
	}

	return nil
}
