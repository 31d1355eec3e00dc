package config

import (
	"fmt"
	"strconv"

	"github.com/voidcheck/voidcheck/voidlib"
)

// TypeThreshold is a rate threshold. -1 disables a behavior.
type TypeThreshold struct {
	Value   voidlib.Threshold
	defined bool
}

func (t *TypeThreshold) Set(value string) error {
	parsed, err := strconv.ParseInt(value, 10, 32) //nolint: gomnd
	if err != nil {
		return fmt.Errorf("value is not int (%s): %w", value, err)
	}

	if parsed < int64(voidlib.ThresholdDisabled) {
		return fmt.Errorf("threshold should be -1 or greater: %d", parsed)
	}

	t.Value = voidlib.Threshold(parsed)
	t.defined = true

	return nil
}

func (t TypeThreshold) Get(defaultValue voidlib.Threshold) voidlib.Threshold {
	if !t.defined {
		return defaultValue
	}

	return t.Value
}

func (t *TypeThreshold) UnmarshalJSON(data []byte) error {
	return t.Set(string(data))
}

func (t TypeThreshold) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeThreshold) String() string {
	return strconv.Itoa(int(t.Value))
}
