package captcha

import (
	"image/color"

	"github.com/voidcheck/voidcheck/voidlib"
)

// MapSize is a width and a height of a map canvas in pixels.
const MapSize = 128

// Indices 0-3 of a map palette are transparent. All of them are sent
// as this one.
const transparentIndex = 0

var baseColors = [...]color.RGBA{
	{0, 0, 0, 0},
	{127, 178, 56, 255},
	{247, 233, 163, 255},
	{199, 199, 199, 255},
	{255, 0, 0, 255},
	{160, 160, 255, 255},
	{167, 167, 167, 255},
	{0, 124, 0, 255},
	{255, 255, 255, 255},
	{164, 168, 184, 255},
	{151, 109, 77, 255},
	{112, 112, 112, 255},
	{64, 64, 255, 255},
	{143, 119, 72, 255},
	{255, 252, 245, 255},
	{216, 127, 51, 255},
	{178, 76, 216, 255},
	{102, 153, 216, 255},
	{229, 229, 51, 255},
	{127, 204, 25, 255},
	{242, 127, 165, 255},
	{76, 76, 76, 255},
	{153, 153, 153, 255},
	{76, 127, 153, 255},
	{127, 63, 178, 255},
	{51, 76, 178, 255},
	{102, 76, 51, 255},
	{102, 127, 51, 255},
	{153, 51, 51, 255},
	{25, 25, 25, 255},
	{250, 238, 77, 255},
	{92, 219, 213, 255},
	{74, 128, 255, 255},
	{0, 217, 58, 255},
	{129, 86, 49, 255},
	{112, 2, 0, 255},
	// 1.12: terracotta
	{209, 177, 161, 255},
	{159, 82, 36, 255},
	{149, 87, 108, 255},
	{112, 108, 138, 255},
	{186, 133, 36, 255},
	{103, 117, 53, 255},
	{160, 77, 78, 255},
	{57, 41, 35, 255},
	{135, 107, 98, 255},
	{87, 92, 92, 255},
	{122, 73, 88, 255},
	{76, 62, 92, 255},
	{76, 50, 35, 255},
	{76, 82, 42, 255},
	{142, 60, 46, 255},
	{37, 22, 16, 255},
	// 1.16: nether
	{189, 48, 49, 255},
	{148, 63, 97, 255},
	{92, 25, 29, 255},
	{22, 126, 134, 255},
	{58, 142, 140, 255},
	{86, 44, 62, 255},
	{20, 180, 133, 255},
	// 1.17
	{100, 100, 100, 255},
	{216, 175, 147, 255},
	{127, 167, 150, 255},
}

var shadeMultipliers = [4]uint32{180, 220, 255, 135}

// mapPalette is a set of colors a client of some protocol range can
// show on a map.
type mapPalette struct {
	since voidlib.ProtocolVersion
	bases int
	remap [256]byte
}

// mapPalettes are sorted by since. The last one has every color and is
// the one images are quantized to.
var mapPalettes = []*mapPalette{
	newMapPalette(voidlib.MinimumVersion, 36),
	newMapPalette(voidlib.Version1_12, 52),
	newMapPalette(voidlib.Version1_16, 59),
	newMapPalette(voidlib.Version1_17, len(baseColors)),
}

// Palette is a full map palette. Index of a color is a value which is
// sent to a client.
var Palette = func() color.Palette {
	rv := make(color.Palette, len(baseColors)*4)

	for i := range rv {
		rv[i] = shadeColor(i)
	}

	return rv
}()

func shadeColor(idx int) color.RGBA {
	base := baseColors[idx/4]
	if base.A == 0 {
		return color.RGBA{}
	}

	mul := shadeMultipliers[idx%4]

	return color.RGBA{
		R: uint8(uint32(base.R) * mul / 255),
		G: uint8(uint32(base.G) * mul / 255),
		B: uint8(uint32(base.B) * mul / 255),
		A: 255,
	}
}

// paletteFor returns a palette of clients with a given version.
func paletteFor(version voidlib.ProtocolVersion) *mapPalette {
	rv := mapPalettes[0]

	for _, p := range mapPalettes[1:] {
		if p.since <= version {
			rv = p
		}
	}

	return rv
}

// Convert rewrites indices of a full palette into indices this palette
// has.
func (m *mapPalette) Convert(pixels []byte) []byte {
	rv := make([]byte, len(pixels))

	for i, v := range pixels {
		rv[i] = m.remap[v]
	}

	return rv
}

func newMapPalette(since voidlib.ProtocolVersion, bases int) *mapPalette {
	rv := &mapPalette{
		since: since,
		bases: bases,
	}

	for i := range rv.remap {
		switch {
		case i < 4, i >= len(baseColors)*4:
			rv.remap[i] = transparentIndex
		case i/4 < bases:
			rv.remap[i] = byte(i)
		default:
			rv.remap[i] = nearestIndex(shadeColor(i), bases)
		}
	}

	return rv
}

// nearestIndex looks for the closest opaque color among first bases
// base colors. It uses a weighted "redmean" distance.
func nearestIndex(c color.RGBA, bases int) byte {
	best := 4
	bestDistance := -1.0

	for i := 4; i < bases*4; i++ {
		if d := colorDistance(c, shadeColor(i)); bestDistance < 0 || d < bestDistance {
			best = i
			bestDistance = d
		}
	}

	return byte(best)
}

func colorDistance(a, b color.RGBA) float64 {
	rmean := (float64(a.R) + float64(b.R)) / 2
	r := float64(a.R) - float64(b.R)
	g := float64(a.G) - float64(b.G)
	bl := float64(a.B) - float64(b.B)

	return (2+rmean/256)*r*r + 4*g*g + (2+(255-rmean)/256)*bl*bl
}

// quantizer maps colors to palette indices. It memoizes results so it
// must not be shared between goroutines.
type quantizer struct {
	cache map[uint32]byte
}

func (q *quantizer) Index(c color.RGBA) byte {
	key := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)

	if idx, ok := q.cache[key]; ok {
		return idx
	}

	idx := nearestIndex(c, len(baseColors))
	q.cache[key] = idx

	return idx
}

func newQuantizer() *quantizer {
	return &quantizer{
		cache: map[uint32]byte{},
	}
}
