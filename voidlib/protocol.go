package voidlib

import "strconv"

// ProtocolVersion is a numeric protocol revision negotiated by a client
// during handshake.
type ProtocolVersion int

// Protocol revisions where something visible to this engine has
// changed.
const (
	Version1_7_2  ProtocolVersion = 4
	Version1_7_6  ProtocolVersion = 5
	Version1_8    ProtocolVersion = 47
	Version1_9    ProtocolVersion = 107
	Version1_12   ProtocolVersion = 335
	Version1_13   ProtocolVersion = 393
	Version1_16   ProtocolVersion = 735
	Version1_17   ProtocolVersion = 755
	Version1_19   ProtocolVersion = 759
	Version1_20_3 ProtocolVersion = 765
	Version1_21_4 ProtocolVersion = 769

	MinimumVersion = Version1_7_2
	MaximumVersion = Version1_21_4
)

var versionNames = map[ProtocolVersion]string{
	Version1_7_2:  "1.7.2",
	Version1_7_6:  "1.7.6",
	Version1_8:    "1.8",
	Version1_9:    "1.9",
	Version1_12:   "1.12",
	Version1_13:   "1.13",
	Version1_16:   "1.16",
	Version1_17:   "1.17",
	Version1_19:   "1.19",
	Version1_20_3: "1.20.3",
	Version1_21_4: "1.21.4",
}

func (v ProtocolVersion) String() string {
	if name, ok := versionNames[v]; ok {
		return name
	}

	return "protocol " + strconv.Itoa(int(v))
}

// ConfirmsTeleportByPosition tells if a client of this version has no
// dedicated teleport confirmation and acknowledges a teleport by echoing
// a position.
func (v ProtocolVersion) ConfirmsTeleportByPosition() bool {
	return v <= Version1_8
}

// UsesColumnMaps tells if a client of this version expects map pixels
// to be sent column by column.
func (v ProtocolVersion) UsesColumnMaps() bool {
	return v < Version1_8
}
