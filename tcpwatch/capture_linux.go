//go:build linux

package tcpwatch

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

type packetSocket struct {
	fd int
}

func (p *packetSocket) ReadFrame(buf []byte) (int, error) {
	n, _, err := unix.Recvfrom(p.fd, buf, 0)

	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EINTR):
		return 0, os.ErrDeadlineExceeded
	}

	return 0, fmt.Errorf("cannot read from a packet socket: %w", err)
}

func (p *packetSocket) Close() error {
	return unix.Close(p.fd) //nolint: wrapcheck
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

func openCapture(iface string, filter []bpf.RawInstruction, timeout time.Duration) (Source, error) {
	netIface, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, fmt.Errorf("cannot find interface: %w", err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("cannot open a packet socket: %w", err)
	}

	sock := &packetSocket{fd: fd}

	if err := sock.setup(netIface.Index, filter, timeout); err != nil {
		sock.Close()

		return nil, err
	}

	return sock, nil
}

func (p *packetSocket) setup(ifaceIndex int, filter []bpf.RawInstruction, timeout time.Duration) error {
	program := make([]unix.SockFilter, len(filter))

	for i, v := range filter {
		program[i] = unix.SockFilter{
			Code: v.Op,
			Jt:   v.Jt,
			Jf:   v.Jf,
			K:    v.K,
		}
	}

	fprog := unix.SockFprog{
		Len:    uint16(len(program)),
		Filter: &program[0],
	}

	// the filter goes before bind, otherwise unrelated frames get queued
	if err := unix.SetsockoptSockFprog(p.fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &fprog); err != nil {
		return fmt.Errorf("cannot attach a filter: %w", err)
	}

	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(p.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fmt.Errorf("cannot set a read timeout: %w", err)
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifaceIndex,
	}

	if err := unix.Bind(p.fd, addr); err != nil {
		return fmt.Errorf("cannot bind to an interface: %w", err)
	}

	return nil
}
