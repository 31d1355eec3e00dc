package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

type TypeHTTPPath struct {
	Value string
}

func (t *TypeHTTPPath) Set(value string) error {
	if value == "" {
		return fmt.Errorf("path cannot be empty")
	}

	parsed, err := url.Parse(value)
	if err != nil || parsed.Path != value {
		return fmt.Errorf("incorrect http path: %s", value)
	}

	t.Value = path.Clean("/" + strings.TrimPrefix(value, "/"))

	return nil
}

func (t TypeHTTPPath) Get(defaultValue string) string {
	if t.Value == "" {
		return defaultValue
	}

	return t.Value
}

func (t *TypeHTTPPath) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeHTTPPath) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeHTTPPath) String() string {
	return t.Value
}
