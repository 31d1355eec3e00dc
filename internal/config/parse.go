package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml"
)

// Parse reads a TOML document. Every value goes through JSON so typed
// wrappers can validate it.
func Parse(rawData []byte) (*Config, error) {
	tree, err := toml.LoadBytes(rawData)
	if err != nil {
		return nil, fmt.Errorf("cannot parse toml config: %w", err)
	}

	jsonBody, err := json.Marshal(tree.ToMap())
	if err != nil {
		return nil, fmt.Errorf("cannot dump into interim format: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonBody))
	decoder.DisallowUnknownFields()

	conf := &Config{}

	if err := decoder.Decode(conf); err != nil {
		return nil, fmt.Errorf("cannot parse a config: %w", err)
	}

	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("cannot validate config: %w", err)
	}

	return conf, nil
}
