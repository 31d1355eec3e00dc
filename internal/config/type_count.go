package config

import (
	"fmt"
	"strconv"
)

// TypeCount is a non-negative number of something: attempts, ticks or
// images.
type TypeCount struct {
	Value   int
	defined bool
}

func (t *TypeCount) Set(value string) error {
	parsed, err := strconv.ParseInt(value, 10, 32) //nolint: gomnd
	if err != nil {
		return fmt.Errorf("value is not int (%s): %w", value, err)
	}

	if parsed < 0 {
		return fmt.Errorf("value should not be negative: %d", parsed)
	}

	t.Value = int(parsed)
	t.defined = true

	return nil
}

func (t TypeCount) Get(defaultValue int) int {
	if !t.defined {
		return defaultValue
	}

	return t.Value
}

func (t *TypeCount) UnmarshalJSON(data []byte) error {
	return t.Set(string(data))
}

func (t TypeCount) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeCount) String() string {
	return strconv.Itoa(t.Value)
}
