package testlib

import (
	"encoding/json"
	"fmt"

	"github.com/voidcheck/voidcheck/voidlib"
)

// StubEncoder encodes a message as "kind@version:json".
type StubEncoder struct {
	Boundaries []voidlib.ProtocolVersion
	Err        error
}

func (s StubEncoder) Versions() []voidlib.ProtocolVersion {
	return s.Boundaries
}

func (s StubEncoder) Encode(msg voidlib.Message, version voidlib.ProtocolVersion) ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	return []byte(fmt.Sprintf("%s@%d:%s", msg.MessageKind(), version, data)), nil
}
