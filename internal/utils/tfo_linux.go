//go:build linux

package utils

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

// TFO modes (значения из /proc/sys/net/ipv4/tcp_fastopen)
const (
	tfoModeServerOnly   = 2
	tfoModeClientServer = 3
)

func isTFOServerEnabled() bool {
	mode := getTFOMode()

	return mode == tfoModeServerOnly || mode == tfoModeClientServer
}

func getTFOMode() int {
	data, err := os.ReadFile("/proc/sys/net/ipv4/tcp_fastopen")
	if err != nil {
		return 0
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}

	// Маскируем только биты режима (0-3)
	return value & 0x3 //nolint: gomnd
}

func listenTFO(address string, queueLen int) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var opErr error

			err := c.Control(func(fd uintptr) {
				opErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_FASTOPEN, queueLen)
			})
			if err != nil {
				return err //nolint: wrapcheck
			}

			if opErr != nil {
				return fmt.Errorf("cannot enable TCP_FASTOPEN: %w", opErr)
			}

			return nil
		},
	}

	return lc.Listen(context.Background(), "tcp", address) //nolint: wrapcheck
}
