package captcha

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // backplate format
	_ "image/jpeg" // backplate format
	_ "image/png"  // backplate format
	"math/rand/v2"
	"os"

	_ "golang.org/x/image/bmp"  // backplate format
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	_ "golang.org/x/image/webp" // backplate format
)

type namedFont struct {
	name string
	font *sfnt.Font
}

// resources are shared read-only by all workers of a generation cycle.
type resources struct {
	backplates  []*Canvas
	fonts       []namedFont
	foregrounds []image.Image
}

func loadResources(opts Options, rnd *rand.Rand) (*resources, error) {
	fonts, err := loadFonts(opts)
	if err != nil {
		return nil, err
	}

	if fonts, err = filterFonts(fonts, opts.getAnswerer().Runes()); err != nil {
		return nil, err
	}

	backplates, err := loadBackplates(opts.Backplates)
	if err != nil {
		return nil, err
	}

	foregrounds, err := makeForegrounds(opts, rnd)
	if err != nil {
		return nil, err
	}

	return &resources{
		backplates:  backplates,
		fonts:       fonts,
		foregrounds: foregrounds,
	}, nil
}

func loadFonts(opts Options) ([]namedFont, error) {
	rv := []namedFont{}

	if opts.UseStandardFonts {
		standard := []struct {
			name string
			data []byte
		}{
			{"Go Regular", goregular.TTF},
			{"Go Mono", gomono.TTF},
			{"Go Bold", gobold.TTF},
		}

		for _, v := range standard {
			parsed, err := opentype.Parse(v.data)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %s: %w", v.name, err)
			}

			rv = append(rv, namedFont{name: v.name, font: parsed})
		}
	}

	for _, path := range opts.Fonts {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read font %s: %w", path, err)
		}

		parsed, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("cannot parse font %s: %w", path, err)
		}

		rv = append(rv, namedFont{name: path, font: parsed})
	}

	if len(rv) == 0 {
		return nil, ErrNoFonts
	}

	return rv, nil
}

// filterFonts keeps fonts which can draw every rune. A rune which no
// font has is an error: an answer with it cannot be drawn.
func filterFonts(fonts []namedFont, runes []rune) ([]namedFont, error) {
	buf := &sfnt.Buffer{}
	rv := make([]namedFont, 0, len(fonts))
	missing := map[rune]int{}

	for _, f := range fonts {
		complete := true

		for _, r := range runes {
			idx, err := f.font.GlyphIndex(buf, r)
			if err != nil {
				return nil, fmt.Errorf("cannot lookup %q in %s: %w", r, f.name, err)
			}

			if idx == 0 {
				missing[r]++
				complete = false
			}
		}

		if complete {
			rv = append(rv, f)
		}
	}

	for _, r := range runes {
		if missing[r] == len(fonts) {
			return nil, fmt.Errorf("%w: %q", ErrMissingGlyph, r)
		}
	}

	if len(rv) == 0 {
		return nil, fmt.Errorf("%w: no font has every glyph", ErrMissingGlyph)
	}

	return rv, nil
}

func loadBackplates(paths []string) ([]*Canvas, error) {
	rv := make([]*Canvas, 0, len(paths))
	q := newQuantizer()

	for _, path := range paths {
		img, err := decodeImage(path)
		if err != nil {
			return nil, fmt.Errorf("cannot load backplate %s: %w", path, err)
		}

		rv = append(rv, newCanvas(resizeToMap(img), q))
	}

	return rv, nil
}

func decodeImage(path string) (image.Image, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	defer fp.Close()

	img, _, err := image.Decode(fp)

	return img, err //nolint: wrapcheck
}

func resizeToMap(img image.Image) *image.NRGBA {
	rv := image.NewNRGBA(image.Rect(0, 0, MapSize, MapSize))
	draw.CatmullRom.Scale(rv, rv.Bounds(), img, img.Bounds(), draw.Src, nil)

	return rv
}

func makeForegrounds(opts Options, rnd *rand.Rand) ([]image.Image, error) {
	colors, err := opts.getColors()
	if err != nil {
		return nil, err
	}

	if len(colors) == 0 {
		return nil, ErrNoColors
	}

	if opts.Gradient == nil {
		rv := make([]image.Image, len(colors))

		for i, c := range colors {
			rv[i] = image.NewUniform(c)
		}

		return rv, nil
	}

	grad := opts.Gradient
	count := max(grad.Count, 1)
	rv := make([]image.Image, count)

	for i := range rv {
		rv[i] = linearGradient(
			grad.StartX+rnd.Float64()*grad.StartXRandomness*MapSize,
			grad.StartY+rnd.Float64()*grad.StartYRandomness*MapSize,
			grad.EndX-rnd.Float64()*grad.EndXRandomness*MapSize,
			grad.EndY-rnd.Float64()*grad.EndYRandomness*MapSize,
			shuffledColors(colors, rnd),
			grad.Fractions)
	}

	return rv, nil
}

func shuffledColors(colors []color.RGBA, rnd *rand.Rand) []color.RGBA {
	rv := append([]color.RGBA(nil), colors...)
	rnd.Shuffle(len(rv), func(i, j int) {
		rv[i], rv[j] = rv[j], rv[i]
	})

	return rv
}

// linearGradient fills a map sized image with colors changing along a
// line from (x0, y0) to (x1, y1). Colors are padded outside of the line.
func linearGradient(x0, y0, x1, y1 float64, colors []color.RGBA, fractions []float64) *image.NRGBA {
	stops := gradientStops(len(colors), fractions)
	rv := image.NewNRGBA(image.Rect(0, 0, MapSize, MapSize))

	dx := x1 - x0
	dy := y1 - y0
	length := dx*dx + dy*dy

	for y := range MapSize {
		for x := range MapSize {
			t := 0.0
			if length > 0 {
				t = ((float64(x)-x0)*dx + (float64(y)-y0)*dy) / length
			}

			c := gradientColor(min(max(t, 0), 1), colors, stops)
			rv.SetNRGBA(x, y, color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
		}
	}

	return rv
}

func gradientStops(count int, fractions []float64) []float64 {
	if len(fractions) >= count {
		return fractions[:count]
	}

	rv := make([]float64, count)

	for i := range rv {
		if count > 1 {
			rv[i] = float64(i) / float64(count-1)
		}
	}

	return rv
}

func gradientColor(t float64, colors []color.RGBA, stops []float64) color.RGBA {
	if t <= stops[0] {
		return colors[0]
	}

	for i := 1; i < len(stops); i++ {
		if t > stops[i] {
			continue
		}

		span := stops[i] - stops[i-1]
		if span <= 0 {
			return colors[i]
		}

		k := (t - stops[i-1]) / span

		return color.RGBA{
			R: lerp(colors[i-1].R, colors[i].R, k),
			G: lerp(colors[i-1].G, colors[i].G, k),
			B: lerp(colors[i-1].B, colors[i].B, k),
			A: 255,
		}
	}

	return colors[len(colors)-1]
}

func lerp(a, b uint8, k float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*k)
}
