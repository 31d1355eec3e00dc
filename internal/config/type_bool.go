package config

import (
	"fmt"
	"strconv"
	"strings"
)

type TypeBool struct {
	Value   bool
	defined bool
}

func (t *TypeBool) Set(value string) error {
	switch strings.ToLower(value) {
	case "1", "y", "yes", "enabled", "true":
		t.Value = true
	case "0", "n", "no", "disabled", "false":
		t.Value = false
	default:
		return fmt.Errorf("unknown bool value %s", value)
	}

	t.defined = true

	return nil
}

func (t TypeBool) Get(defaultValue bool) bool {
	if !t.defined {
		return defaultValue
	}

	return t.Value
}

func (t *TypeBool) UnmarshalJSON(data []byte) error {
	return t.Set(strings.Trim(string(data), `"`))
}

func (t TypeBool) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeBool) String() string {
	return strconv.FormatBool(t.Value)
}
