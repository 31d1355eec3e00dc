package bridge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voidcheck/voidcheck/voidlib"
)

const formattingCodes = "0123456789abcdefklmnorABCDEFKLMNOR"

type encodedFrame struct {
	Kind string          `json:"kind"`
	Data voidlib.Message `json:"data"`
}

type legacyPositionLook struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Yaw   float32 `json:"yaw"`
	Pitch float32 `json:"pitch"`
}

func (legacyPositionLook) MessageKind() string { return "position_look" }

// Encoder turns messages into JSON frames for a host proxy. A host
// proxy does a real protocol encoding, so frames differ between
// versions only where the logical content differs.
type Encoder struct{}

func (e Encoder) Versions() []voidlib.ProtocolVersion {
	return []voidlib.ProtocolVersion{voidlib.Version1_9}
}

func (e Encoder) Encode(msg voidlib.Message, version voidlib.ProtocolVersion) ([]byte, error) {
	switch typed := msg.(type) {
	case voidlib.MessageChat:
		typed.Text = translateColors(typed.Text)
		msg = typed
	case voidlib.MessageTitle:
		typed.Title = translateColors(typed.Title)
		typed.Subtitle = translateColors(typed.Subtitle)
		msg = typed
	case voidlib.MessageDisconnect:
		typed.Reason = translateColors(typed.Reason)
		msg = typed
	case voidlib.MessagePositionLook:
		// teleports have no id before 1.9
		if version < voidlib.Version1_9 {
			msg = legacyPositionLook{
				X:     typed.X,
				Y:     typed.Y,
				Z:     typed.Z,
				Yaw:   typed.Yaw,
				Pitch: typed.Pitch,
			}
		}
	}

	data, err := json.Marshal(encodedFrame{
		Kind: msg.MessageKind(),
		Data: msg,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot encode %s: %w", msg.MessageKind(), err)
	}

	return data, nil
}

// translateColors replaces & formatting codes with section signs.
func translateColors(text string) string {
	if !strings.Contains(text, "&") {
		return text
	}

	builder := strings.Builder{}
	runes := []rune(text)

	builder.Grow(len(text))

	for i := 0; i < len(runes); i++ {
		if runes[i] == '&' && i+1 < len(runes) && strings.ContainsRune(formattingCodes, runes[i+1]) {
			builder.WriteRune('§')
			builder.WriteRune(runes[i+1] | 0x20) //nolint: gomnd

			i++

			continue
		}

		builder.WriteRune(runes[i])
	}

	return builder.String()
}

func NewEncoder() Encoder {
	return Encoder{}
}
