package voidlib

// Message is a logical protocol message. Messages are encoded into raw
// frames by an [Encoder] once and then reused as parts of [Artifact].
type Message interface {
	MessageKind() string
}

// MessageChat is a system chat message.
type MessageChat struct {
	Text string `json:"text"`
}

// MessageTitle shows a title and a subtitle in the middle of the screen.
// Timings are in ticks.
type MessageTitle struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	FadeIn   int    `json:"fadeIn"`
	Stay     int    `json:"stay"`
	FadeOut  int    `json:"fadeOut"`
}

// MessageDisconnect closes a connection with a reason shown to a user.
type MessageDisconnect struct {
	Reason string `json:"reason"`
}

// MessagePositionLook teleports a player.
type MessagePositionLook struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Yaw        float32 `json:"yaw"`
	Pitch      float32 `json:"pitch"`
	TeleportID int     `json:"teleportId"`
}

// MessageChunk asks the world collaborator to materialize an empty chunk.
type MessageChunk struct {
	ChunkX int `json:"chunkX"`
	ChunkZ int `json:"chunkZ"`
}

// MessageAbilities sets player abilities.
type MessageAbilities struct {
	Flags     byte    `json:"flags"`
	FlySpeed  float32 `json:"flySpeed"`
	WalkSpeed float32 `json:"walkSpeed"`
}

// MessageExperience sets an experience bar.
type MessageExperience struct {
	Bar   float32 `json:"bar"`
	Level int     `json:"level"`
	Total int     `json:"total"`
}

// MessageSetSlot puts an item into a hotbar slot. Empty item clears it.
type MessageSetSlot struct {
	Slot  int    `json:"slot"`
	Item  string `json:"item"`
	Count int    `json:"count"`
	MapID int    `json:"mapId"`
}

// MessageMapData carries map pixels as palette indices. Column is -1 if
// Pixels is a whole 128x128 image, otherwise Pixels is a single column.
type MessageMapData struct {
	MapID  int    `json:"mapId"`
	Column int    `json:"column"`
	Pixels []byte `json:"pixels"`
}

func (MessageChat) MessageKind() string         { return "chat" }
func (MessageTitle) MessageKind() string        { return "title" }
func (MessageDisconnect) MessageKind() string   { return "disconnect" }
func (MessagePositionLook) MessageKind() string { return "position_look" }
func (MessageChunk) MessageKind() string        { return "chunk" }
func (MessageAbilities) MessageKind() string    { return "abilities" }
func (MessageExperience) MessageKind() string   { return "experience" }
func (MessageSetSlot) MessageKind() string      { return "set_slot" }
func (MessageMapData) MessageKind() string      { return "map_data" }
