package tcpwatch

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/voidcheck/voidcheck/logger"
	"github.com/voidcheck/voidcheck/voidlib"
)

// Options configures a watcher.
type Options struct {
	// Interface is a name of a network interface to capture.
	Interface string

	// Port is a port of the game proxy.
	Port uint16

	// SnapLen is a number of bytes captured per frame.
	SnapLen int

	// ListenDelay is a minimal time between two probes of the same
	// address.
	ListenDelay time.Duration

	// Timeout is a read timeout of a capture socket.
	Timeout time.Duration

	// LocalAddresses are addresses of this host. If empty, addresses of
	// all interfaces are used.
	LocalAddresses []net.IP

	Logger voidlib.Logger

	// Clock returns a current time. It is useful for tests only.
	Clock func() time.Time
}

func (o Options) getLogger() voidlib.Logger {
	if o.Logger == nil {
		return logger.NewNoopLogger()
	}

	return o.Logger.Named("tcpwatch")
}

func (o Options) getSnapLen() int {
	if o.SnapLen <= 0 {
		return DefaultSnapLen
	}

	return o.SnapLen
}

func (o Options) getTimeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}

	return o.Timeout
}

func (o Options) getClock() func() time.Time {
	if o.Clock == nil {
		return time.Now
	}

	return o.Clock
}

func (o Options) getLocalAddresses() (map[netip.Addr]struct{}, error) {
	ips := o.LocalAddresses

	if len(ips) == 0 {
		addrs, err := net.InterfaceAddrs()
		if err != nil {
			return nil, fmt.Errorf("cannot list local addresses: %w", err)
		}

		for _, v := range addrs {
			if ipNet, ok := v.(*net.IPNet); ok {
				ips = append(ips, ipNet.IP)
			}
		}
	}

	rv := make(map[netip.Addr]struct{}, len(ips))

	for _, ip := range ips {
		if addr, ok := toAddr(ip); ok {
			rv[addr] = struct{}{}
		}
	}

	return rv, nil
}
