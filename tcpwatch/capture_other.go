//go:build !linux

package tcpwatch

import (
	"time"

	"golang.org/x/net/bpf"
)

func openCapture(_ string, _ []bpf.RawInstruction, _ time.Duration) (Source, error) {
	return nil, ErrUnsupportedPlatform
}
