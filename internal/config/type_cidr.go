package config

import (
	"fmt"
	"net"
	"strings"
)

// TypeCIDR is a network like 10.0.0.0/8. A single address is a network
// with a full mask.
type TypeCIDR struct {
	Value net.IPNet
}

func (t *TypeCIDR) Set(value string) error {
	if !strings.Contains(value, "/") {
		ip := net.ParseIP(value)
		if ip == nil {
			return fmt.Errorf("incorrect ip address: %s", value)
		}

		if ip4 := ip.To4(); ip4 != nil {
			value += "/32"
		} else {
			value += "/128"
		}
	}

	_, network, err := net.ParseCIDR(value)
	if err != nil {
		return fmt.Errorf("incorrect network (%s): %w", value, err)
	}

	t.Value = *network

	return nil
}

func (t *TypeCIDR) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeCIDR) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeCIDR) String() string {
	if t.Value.IP == nil {
		return ""
	}

	return t.Value.String()
}
