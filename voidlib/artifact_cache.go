package voidlib

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	titleFadeIn  = 10
	titleStay    = 70
	titleFadeOut = 20

	// CaptchaMapID is an ID of the map item which holds a CAPTCHA image.
	CaptchaMapID = 0

	// CaptchaSlot is a hotbar slot where a CAPTCHA map is put.
	CaptchaSlot = 36
)

// ArtifactCache keeps every fixed message a session may send, encoded
// for all supported protocol versions. It is built once per
// configuration and never changed after.
type ArtifactCache struct {
	fallingCheck         *Artifact
	fallingCheckGreeting *Artifact
	noAbilities          *Artifact
	resetSlot            *Artifact
	experience           []*Artifact
	captchaAttempts      []*Artifact
	successfulChat       *Artifact
	successfulReconnect  *Artifact
	captchaNotReady      *Artifact
	kicks                map[BlockReason]*Artifact
}

// FallingCheck returns a teleport into the void with a chunk stub.
func (a *ArtifactCache) FallingCheck() *Artifact {
	return a.fallingCheck
}

// FallingCheckGreeting returns a title and a chat message shown while a
// player falls.
func (a *ArtifactCache) FallingCheckGreeting() *Artifact {
	return a.fallingCheckGreeting
}

// NoAbilities resets player abilities after a respawn.
func (a *ArtifactCache) NoAbilities() *Artifact {
	return a.noAbilities
}

// ResetSlot removes a CAPTCHA map from the hotbar.
func (a *ArtifactCache) ResetSlot() *Artifact {
	return a.resetSlot
}

// Experience returns an experience bar which shows a progress of the
// falling check at the given tick.
func (a *ArtifactCache) Experience(tick int) *Artifact {
	if tick < 0 || tick >= len(a.experience) {
		return nil
	}

	return a.experience[tick]
}

// LastExperience returns a full experience bar.
func (a *ArtifactCache) LastExperience() *Artifact {
	return a.experience[len(a.experience)-1]
}

// CaptchaAttempts returns a chat message with a number of attempts
// left. If this is not the first attempt, a message about a wrong answer
// goes first.
func (a *ArtifactCache) CaptchaAttempts(attempts int) *Artifact {
	switch {
	case attempts < 1:
		attempts = 1
	case attempts >= len(a.captchaAttempts):
		attempts = len(a.captchaAttempts) - 1
	}

	return a.captchaAttempts[attempts]
}

// SuccessfulChat is sent to a client which goes straight to the backend.
func (a *ArtifactCache) SuccessfulChat() *Artifact {
	return a.successfulChat
}

// SuccessfulReconnect kicks a client which has to join again.
func (a *ArtifactCache) SuccessfulReconnect() *Artifact {
	return a.successfulReconnect
}

// CaptchaNotReady kicks a client if there are no challenges yet.
func (a *ArtifactCache) CaptchaNotReady() *Artifact {
	return a.captchaNotReady
}

// Kick returns a disconnect message for a reason.
func (a *ArtifactCache) Kick(reason BlockReason) *Artifact {
	return a.kicks[reason]
}

type artifactCacheBuilder struct {
	settings *Settings
	encoder  Encoder
	err      error
}

func (b *artifactCacheBuilder) format(text string) string {
	text = strings.ReplaceAll(text, "{PRFX}", b.settings.Strings.Prefix)

	return strings.ReplaceAll(text, "{NL}", "\n")
}

func (b *artifactCacheBuilder) build(msgs ...Message) *Artifact {
	if b.err != nil {
		return nil
	}

	builder := NewArtifactBuilder(b.encoder)

	for _, msg := range msgs {
		builder.Add(msg)
	}

	rv, err := builder.Build()
	if err != nil {
		b.err = err
	}

	return rv
}

func (b *artifactCacheBuilder) kick(text string) *Artifact {
	return b.build(MessageDisconnect{Reason: b.format(text)})
}

func (b *artifactCacheBuilder) chat(text string) Message {
	return MessageChat{Text: b.format(text)}
}

func (b *artifactCacheBuilder) title(title, subtitle string) Message {
	return MessageTitle{
		Title:    b.format(title),
		Subtitle: b.format(subtitle),
		FadeIn:   titleFadeIn,
		Stay:     titleStay,
		FadeOut:  titleFadeOut,
	}
}

// NewArtifactCache encodes every fixed message for a given settings
// snapshot.
func NewArtifactCache(settings *Settings, encoder Encoder) (*ArtifactCache, error) {
	b := &artifactCacheBuilder{
		settings: settings,
		encoder:  encoder,
	}
	strs := settings.Strings
	coords := settings.FallingCoords

	rv := &ArtifactCache{
		fallingCheck: b.build(
			MessageChunk{
				ChunkX: int(coords.X) >> 4, //nolint: gomnd
				ChunkZ: int(coords.Z) >> 4, //nolint: gomnd
			},
			MessagePositionLook{
				X:          coords.X,
				Y:          coords.Y,
				Z:          coords.Z,
				Yaw:        coords.Yaw,
				Pitch:      coords.Pitch,
				TeleportID: coords.TeleportID,
			},
		),
		fallingCheckGreeting: b.build(
			b.title(strs.CheckingTitle, strs.CheckingSubtitle),
			b.chat(strs.CheckingChat),
		),
		noAbilities: b.build(MessageAbilities{}),
		resetSlot: b.build(MessageSetSlot{
			Slot:  CaptchaSlot,
			MapID: -1,
		}),
		successfulChat:      b.build(b.chat(strs.SuccessfulChat)),
		successfulReconnect: b.kick(strs.SuccessfulReconnectKick),
		captchaNotReady:     b.kick(strs.CaptchaNotReadyKick),
		kicks: map[BlockReason]*Artifact{
			BlockFallingCheck:   b.kick(strs.FallingCheckFailedKick),
			BlockCaptchaFailed:  b.kick(strs.CaptchaFailedKick),
			BlockTimesUp:        b.kick(strs.TimesUpKick),
			BlockClientSettings: b.kick(strs.ClientSettingsKick),
			BlockClientBrand:    b.kick(strs.ClientBrandKick),
			BlockProxyDetected:  b.kick(strs.ProxyCheckKick),
		},
	}

	rv.experience = make([]*Artifact, settings.FallingCheckTicks+1)
	for i := range rv.experience {
		rv.experience[i] = b.build(MessageExperience{
			Bar:   float32(i) / float32(settings.FallingCheckTicks),
			Level: i,
		})
	}

	rv.captchaAttempts = make([]*Artifact, settings.CaptchaAttempts+1)
	for i := 1; i < len(rv.captchaAttempts); i++ {
		chat := b.chat(strings.ReplaceAll(strs.CheckingCaptchaChat, "{0}", strconv.Itoa(i)))

		if i == settings.CaptchaAttempts {
			rv.captchaAttempts[i] = b.build(
				b.title(strs.CheckingCaptchaTitle, strs.CheckingCaptchaSubtitle),
				chat)
		} else {
			rv.captchaAttempts[i] = b.build(
				b.chat(strs.CheckingWrongCaptchaChat),
				chat)
		}
	}

	if b.err != nil {
		return nil, fmt.Errorf("cannot build artifacts: %w", b.err)
	}

	return rv, nil
}
