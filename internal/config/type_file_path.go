package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// TypeFilePath is a path to an existing readable regular file.
type TypeFilePath struct {
	Value string
}

func (t *TypeFilePath) Set(value string) error {
	absPath, err := filepath.Abs(value)
	if err != nil {
		return fmt.Errorf("incorrect file path (%s): %w", value, err)
	}

	stat, err := os.Stat(absPath)
	if err != nil {
		return fmt.Errorf("cannot stat %s: %w", value, err)
	}

	if !stat.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", value)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", value, err)
	}

	file.Close()

	t.Value = absPath

	return nil
}

func (t *TypeFilePath) UnmarshalText(data []byte) error {
	return t.Set(string(data))
}

func (t TypeFilePath) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t TypeFilePath) String() string {
	return t.Value
}
