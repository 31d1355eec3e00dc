package config

import (
	"fmt"
	"strings"

	"github.com/alecthomas/units"
)

type TypeBytes struct {
	Value units.Base2Bytes
}

func (t *TypeBytes) Set(value string) error {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	normalized = strings.TrimSuffix(normalized, "IB")
	normalized = strings.TrimSuffix(normalized, "B")

	if normalized != "" && strings.IndexAny(normalized[len(normalized)-1:], "0123456789") < 0 {
		normalized += "iB"
	} else {
		normalized += "B"
	}

	parsed, err := units.ParseBase2Bytes(normalized)
	if err != nil {
		return fmt.Errorf("incorrect bytes value (%v): %w", value, err)
	}

	if parsed < 0 {
		return fmt.Errorf("%d should be positive number", parsed)
	}

	t.Value = parsed

	return nil
}

func (t TypeBytes) Get(defaultValue uint) uint {
	if t.Value == 0 {
		return defaultValue
	}

	return uint(t.Value)
}

func (t *TypeBytes) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeBytes) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeBytes) String() string {
	return strings.ToLower(t.Value.String())
}
