package captcha

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/suite"
)

type EffectsTestSuite struct {
	suite.Suite

	rnd *rand.Rand
}

func (suite *EffectsTestSuite) SetupTest() {
	suite.rnd = rand.New(rand.NewPCG(3, 4)) //nolint: gosec
}

func (suite *EffectsTestSuite) opaque(img *image.NRGBA) int {
	count := 0

	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			count++
		}
	}

	return count
}

func (suite *EffectsTestSuite) TestWaveDeltas() {
	deltas := waveDeltas(MapSize, 1, 3, 12.8)

	suite.Len(deltas, MapSize)

	for _, v := range deltas {
		suite.LessOrEqual(v, 13)
		suite.GreaterOrEqual(v, -13)
	}

	for _, v := range waveDeltas(10, 1, 3, 0) {
		suite.Equal(0, v)
	}
}

func (suite *EffectsTestSuite) TestRippleKeepsPixels() {
	img := image.NewNRGBA(image.Rect(0, 0, MapSize, MapSize))

	for y := 40; y < 80; y++ {
		for x := 10; x < 100; x++ {
			img.SetNRGBA(x, y, color.NRGBA{10, 20, 30, 255})
		}
	}

	rippled := ripple(img, suite.rnd)

	suite.Equal(suite.opaque(img), suite.opaque(rippled))
	suite.NotEqual(img.Pix, rippled.Pix)
}

func (suite *EffectsTestSuite) TestOutline() {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 5))

	for y := 1; y < 4; y++ {
		for x := 1; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{0xff, 0x7f, 0xaa, 0xff})
		}
	}

	outline(img)

	suite.Equal(color.NRGBA{0xff, 0x7f, 0xaa, 0xff}, img.NRGBAAt(2, 2))
	suite.Equal(color.NRGBA{0x80, 0x00, 0x80, 0xff}, img.NRGBAAt(1, 1))
	suite.Equal(color.NRGBA{0x80, 0x00, 0x80, 0xff}, img.NRGBAAt(3, 2))
	suite.Equal(color.NRGBA{}, img.NRGBAAt(0, 0))
}

func (suite *EffectsTestSuite) TestMod() {
	suite.Equal(3, mod(-1, 4))
	suite.Equal(0, mod(4, 4))
	suite.Equal(1, mod(5, 4))
}

func TestEffects(t *testing.T) {
	t.Parallel()
	suite.Run(t, &EffectsTestSuite{})
}
