package captcha

import (
	"image"
	"image/color"
)

// alphaThreshold is a minimal alpha of a pixel which is put on a map.
// Maps have no translucency.
const alphaThreshold = 0x80

// Canvas is a map image as palette indices, row by row.
type Canvas [MapSize * MapSize]byte

// Column returns pixels of a column x from the top to the bottom. Old
// clients get map images column by column.
func (c *Canvas) Column(x int) []byte {
	rv := make([]byte, MapSize)

	for y := range MapSize {
		rv[y] = c[y*MapSize+x]
	}

	return rv
}

// Image converts a canvas into a paletted image with a full map
// palette.
func (c *Canvas) Image() *image.Paletted {
	rv := image.NewPaletted(image.Rect(0, 0, MapSize, MapSize), Palette)
	copy(rv.Pix, c[:])

	return rv
}

// Draw puts an image on top of the canvas. Pixels which are not opaque
// enough are skipped.
func (c *Canvas) Draw(img *image.NRGBA, q *quantizer) {
	bounds := img.Bounds().Intersect(image.Rect(0, 0, MapSize, MapSize))

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			if px.A < alphaThreshold {
				continue
			}

			c[y*MapSize+x] = q.Index(color.RGBA{R: px.R, G: px.G, B: px.B, A: 255})
		}
	}
}

func newCanvas(img *image.NRGBA, q *quantizer) *Canvas {
	rv := &Canvas{}
	rv.Draw(img, q)

	return rv
}
