package captcha

import (
	"sync/atomic"

	"github.com/voidcheck/voidcheck/voidlib"
)

// poolShards is a number of independent cursors of a pool. Consumers
// are spread over shards by their IDs.
const poolShards = 64

// pool is an arena of rendered challenges of one generation. It is
// never modified after it is built. A replaced pool is reclaimed once
// nobody holds a reference to it or to any of its artifacts.
type pool struct {
	generation uint64
	arena      []*voidlib.CaptchaArtifact
	cursors    [poolShards]cursor
}

// cursor is padded to a cache line so shards do not share one.
type cursor struct {
	value atomic.Uint64
	_     [56]byte
}

// Next returns a next artifact for a consumer. Each shard starts at its
// own offset and walks the whole arena before it repeats anything.
func (p *pool) Next(consumer uint32) *voidlib.CaptchaArtifact {
	shard := int(consumer % poolShards)
	offset := shard * len(p.arena) / poolShards
	step := p.cursors[shard].value.Add(1) - 1

	return p.arena[(offset+int(step%uint64(len(p.arena))))%len(p.arena)]
}

func (p *pool) Len() int {
	return len(p.arena)
}

func newPool(generation uint64, arena []*voidlib.CaptchaArtifact) *pool {
	return &pool{
		generation: generation,
		arena:      arena,
	}
}
