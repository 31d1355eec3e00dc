package config

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/voidcheck/voidcheck/captcha"
)

// TypeColor is a hex RGB color like AA00AA.
type TypeColor struct {
	Value color.RGBA
}

func (t *TypeColor) Set(value string) error {
	parsed, err := captcha.ParseColor(value)
	if err != nil {
		return fmt.Errorf("incorrect color: %w", err)
	}

	t.Value = parsed

	return nil
}

func (t *TypeColor) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeColor) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeColor) String() string {
	return strings.ToUpper(fmt.Sprintf("%02x%02x%02x", t.Value.R, t.Value.G, t.Value.B))
}
