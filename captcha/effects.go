package captcha

import (
	"image"
	"math"
	"math/rand/v2"
)

// ripple shifts columns vertically and rows horizontally along sine
// waves. Pixels which leave an image come back from the other side.
func ripple(img *image.NRGBA, rnd *rand.Rand) *image.NRGBA {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	vertical := waveDeltas(width,
		rnd.Float64()*2*math.Pi,
		(1+2*rnd.Float64())*math.Pi,
		float64(height)/10)
	horizontal := waveDeltas(height,
		rnd.Float64()*2*math.Pi,
		(2+2*rnd.Float64())*math.Pi,
		float64(width)/100)

	rv := image.NewNRGBA(bounds)

	for y := range height {
		for x := range width {
			ny := mod(y+vertical[x], height)
			nx := mod(x+horizontal[ny], width)

			src := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
			dst := rv.PixOffset(bounds.Min.X+nx, bounds.Min.Y+ny)
			copy(rv.Pix[dst:dst+4], img.Pix[src:src+4])
		}
	}

	return rv
}

func waveDeltas(num int, start, length, amplitude float64) []int {
	start = math.Mod(start, 2*math.Pi)
	length = math.Mod(length, 4*math.Pi)
	rv := make([]int, num)

	for i := range rv {
		rv[i] = int(math.Round(amplitude * math.Sin(start+float64(i)*length/float64(num))))
	}

	return rv
}

func mod(a, b int) int {
	return ((a % b) + b) % b
}

// outline darkens visible pixels which touch transparent ones.
func outline(img *image.NRGBA) {
	bounds := img.Bounds()
	edges := []int{}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			offset := img.PixOffset(x, y)
			if img.Pix[offset+3] != 0 && touchesTransparent(img, x, y) {
				edges = append(edges, offset)
			}
		}
	}

	for _, offset := range edges {
		img.Pix[offset] &= 0x80
		img.Pix[offset+1] &= 0x80
		img.Pix[offset+2] &= 0x80
	}
}

func touchesTransparent(img *image.NRGBA, x, y int) bool {
	bounds := img.Bounds()

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			pt := image.Pt(x+dx, y+dy)
			if pt.In(bounds) && img.Pix[img.PixOffset(pt.X, pt.Y)+3] == 0 {
				return true
			}
		}
	}

	return false
}
