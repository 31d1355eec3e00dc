package voidlib

import (
	"fmt"
	"sort"
)

// Artifact is an immutable set of pre-encoded protocol frames.
//
// Frames are grouped by protocol ranges: a range starts at some
// version and lasts until the next one. A client gets frames of the
// latest range which starts at or below its version. Clients older than
// the first range get the first range.
type Artifact struct {
	ranges []artifactRange
}

type artifactRange struct {
	since  ProtocolVersion
	frames [][]byte
}

// Frames returns encoded frames for a given protocol version. Returned
// slices must not be modified.
func (a *Artifact) Frames(version ProtocolVersion) [][]byte {
	if a == nil || len(a.ranges) == 0 {
		return nil
	}

	idx := sort.Search(len(a.ranges), func(i int) bool {
		return a.ranges[i].since > version
	}) - 1

	if idx < 0 {
		idx = 0
	}

	return a.ranges[idx].frames
}

// Size returns a number of bytes held by all ranges.
func (a *Artifact) Size() int {
	if a == nil {
		return 0
	}

	size := 0

	for _, r := range a.ranges {
		for _, frame := range r.frames {
			size += len(frame)
		}
	}

	return size
}

// CaptchaArtifact is a rendered challenge together with its expected
// answer.
type CaptchaArtifact struct {
	Answer   string
	Artifact *Artifact
}

type artifactPart struct {
	msg  Message
	from ProtocolVersion
	to   ProtocolVersion
}

// ArtifactBuilder collects messages and encodes them into an
// [Artifact] for every protocol range where encoding may differ.
type ArtifactBuilder struct {
	encoder Encoder
	parts   []artifactPart
}

// Add adds a message for every supported version.
func (b *ArtifactBuilder) Add(msg Message) *ArtifactBuilder {
	return b.AddRange(msg, MinimumVersion, MaximumVersion)
}

// AddRange adds a message which is sent only to clients with versions
// within [from, to].
func (b *ArtifactBuilder) AddRange(msg Message, from, to ProtocolVersion) *ArtifactBuilder {
	b.parts = append(b.parts, artifactPart{
		msg:  msg,
		from: from,
		to:   to,
	})

	return b
}

// Build encodes collected messages.
func (b *ArtifactBuilder) Build() (*Artifact, error) {
	boundaries := b.boundaries()
	rv := &Artifact{
		ranges: make([]artifactRange, 0, len(boundaries)),
	}

	for _, since := range boundaries {
		frames := make([][]byte, 0, len(b.parts))

		for _, part := range b.parts {
			if since < part.from || since > part.to {
				continue
			}

			frame, err := b.encoder.Encode(part.msg, since)
			if err != nil {
				return nil, fmt.Errorf("cannot encode %s for %v: %w", part.msg.MessageKind(), since, err)
			}

			frames = append(frames, frame)
		}

		rv.ranges = append(rv.ranges, artifactRange{
			since:  since,
			frames: frames,
		})
	}

	return rv, nil
}

func (b *ArtifactBuilder) boundaries() []ProtocolVersion {
	seen := map[ProtocolVersion]struct{}{
		MinimumVersion: {},
	}

	for _, v := range b.encoder.Versions() {
		if v >= MinimumVersion && v <= MaximumVersion {
			seen[v] = struct{}{}
		}
	}

	for _, part := range b.parts {
		if part.from > MinimumVersion {
			seen[part.from] = struct{}{}
		}

		if part.to < MaximumVersion {
			seen[part.to+1] = struct{}{}
		}
	}

	rv := make([]ProtocolVersion, 0, len(seen))
	for v := range seen {
		rv = append(rv, v)
	}

	sort.Slice(rv, func(i, j int) bool {
		return rv[i] < rv[j]
	})

	return rv
}

// NewArtifactBuilder creates a new builder bound to an encoder.
func NewArtifactBuilder(encoder Encoder) *ArtifactBuilder {
	return &ArtifactBuilder{
		encoder: encoder,
	}
}
