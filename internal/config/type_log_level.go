package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type TypeLogLevel struct {
	Value   zerolog.Level
	defined bool
}

func (t *TypeLogLevel) Set(value string) error {
	level, err := zerolog.ParseLevel(strings.ToLower(value))
	if err != nil || level == zerolog.NoLevel {
		return fmt.Errorf("unknown log level %s", value)
	}

	t.Value = level
	t.defined = true

	return nil
}

func (t TypeLogLevel) Get(defaultValue zerolog.Level) zerolog.Level {
	if !t.defined {
		return defaultValue
	}

	return t.Value
}

func (t *TypeLogLevel) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeLogLevel) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeLogLevel) String() string {
	if !t.defined {
		return ""
	}

	return t.Value.String()
}
