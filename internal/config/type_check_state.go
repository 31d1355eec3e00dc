package config

import (
	"fmt"

	"github.com/voidcheck/voidcheck/voidlib"
)

type TypeCheckState struct {
	Value   voidlib.CheckState
	defined bool
}

func (t *TypeCheckState) Set(value string) error {
	state, err := voidlib.ParseCheckState(value)
	if err != nil {
		return fmt.Errorf("incorrect check state: %w", err)
	}

	t.Value = state
	t.defined = true

	return nil
}

func (t TypeCheckState) Get(defaultValue voidlib.CheckState) voidlib.CheckState {
	if !t.defined {
		return defaultValue
	}

	return t.Value
}

func (t *TypeCheckState) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeCheckState) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeCheckState) String() string {
	if !t.defined {
		return ""
	}

	return t.Value.String()
}
