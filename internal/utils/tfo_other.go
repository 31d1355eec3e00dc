//go:build !linux

package utils

import "net"

func isTFOServerEnabled() bool {
	return false
}

func listenTFO(address string, _ int) (net.Listener, error) {
	return net.Listen("tcp", address) //nolint: wrapcheck
}
