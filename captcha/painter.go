package captcha

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

const (
	glyphPadding = 2
	fontDPI      = 72
)

// sample is everything a painter needs to draw a single challenge.
type sample struct {
	lines      []string
	font       namedFont
	foreground image.Image
	backplate  *Canvas
}

// sprite is a rendered glyph mask. baseline is a row of the glyph
// origin, ink is a box of visible pixels.
type sprite struct {
	img      *image.RGBA
	baseline int
	ink      image.Rectangle
}

// painter draws challenges. It is not goroutine-safe: each worker gets
// its own instance.
type painter struct {
	opts      Options
	rnd       *rand.Rand
	quantizer *quantizer
}

// Paint draws a map canvas for a sample.
func (p *painter) Paint(s sample) (*Canvas, error) {
	text, err := p.drawText(s)
	if err != nil {
		return nil, err
	}

	rv := &Canvas{}
	if s.backplate != nil {
		*rv = *s.backplate
	}

	rv.Draw(text, p.quantizer)

	return rv, nil
}

func (p *painter) drawText(s sample) (*image.NRGBA, error) {
	face, err := opentype.NewFace(s.font.font, &opentype.FaceOptions{
		Size:    p.opts.getFontSize(),
		DPI:     fontDPI,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create a face of %s: %w", s.font.name, err)
	}

	defer face.Close()

	lines := make([]*image.RGBA, 0, len(s.lines))

	for _, text := range s.lines {
		if line := p.drawLine(face, text); line != nil {
			lines = append(lines, line)
		}
	}

	mask := p.fitToMap(stackLines(lines, int(p.opts.getFontSize()/10)))
	img := colorize(mask, s.foreground)

	if p.opts.Ripple {
		img = ripple(img, p.rnd)
	}

	if p.opts.Outline {
		outline(img)
	}

	for range p.opts.CurvesAmount {
		p.drawCurve(img, s.foreground)
	}

	return img, nil
}

func (p *painter) drawLine(face font.Face, text string) *image.RGBA {
	runes := []rune(text)
	sprites := make([]*sprite, 0, len(runes))
	gaps := make([]int, 0, len(runes))
	gap := 0

	spaceAdvance, _ := face.GlyphAdvance(' ')

	angle := (p.rnd.Float64() - 0.5) * math.Pi / 8
	step := p.rnd.Float64() * 3 * math.Pi / 8 / float64(len(runes)+1)

	if p.rnd.IntN(2) == 0 {
		step = -step
	}

	for _, r := range runes {
		if unicode.IsSpace(r) {
			gap += spaceAdvance.Ceil()

			continue
		}

		sp := p.drawGlyph(face, r)
		if sp == nil {
			continue
		}

		if p.opts.Rotate {
			sp = rotateSprite(sp, angle)
			angle += step

			if p.rnd.Float64() < 0.25 {
				step = -step
			}
		}

		sprites = append(sprites, sp)
		gaps = append(gaps, gap)
		gap = 0
	}

	if len(sprites) == 0 {
		return nil
	}

	overlap := 0.1
	if p.opts.Rotate {
		overlap = 0.27
	}

	positions := make([]int, len(sprites))
	above, below, x := 0, 0, 0

	for i, sp := range sprites {
		if i > 0 {
			kerning := float64(min(sprites[i-1].ink.Dx(), sp.ink.Dx())) * (p.rnd.Float64()/20 + overlap)
			x += gaps[i] - int(kerning)
		}

		positions[i] = x - sp.ink.Min.X
		x += sp.ink.Dx()
		above = max(above, sp.baseline)
		below = max(below, sp.img.Bounds().Dy()-sp.baseline)
	}

	line := image.NewRGBA(image.Rect(0, 0, max(x, 1), above+below))

	for i, sp := range sprites {
		at := image.Pt(positions[i], above-sp.baseline)
		draw.Draw(line, sp.img.Bounds().Add(at), sp.img, image.Point{}, draw.Over)
	}

	thickness := max(1, int(p.opts.getFontSize()/15))

	if p.opts.Underline {
		y := above + thickness
		draw.Draw(line, image.Rect(0, y, x, y+thickness), image.White, image.Point{}, draw.Over)
	}

	if p.opts.Strikethrough {
		y := above - int(p.opts.getFontSize()/4)
		draw.Draw(line, image.Rect(0, y, x, y+thickness), image.White, image.Point{}, draw.Over)
	}

	return line
}

func (p *painter) drawGlyph(face font.Face, r rune) *sprite {
	bounds, _, ok := face.GlyphBounds(r)
	if !ok {
		return nil
	}

	width := (bounds.Max.X-bounds.Min.X).Ceil() + 2*glyphPadding
	height := (bounds.Max.Y-bounds.Min.Y).Ceil() + 2*glyphPadding
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	drawer := font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(glyphPadding) - bounds.Min.X,
			Y: fixed.I(glyphPadding) - bounds.Min.Y,
		},
	}
	drawer.DrawString(string(r))

	return &sprite{
		img:      img,
		baseline: glyphPadding + (-bounds.Min.Y).Ceil(),
		ink:      inkBounds(img),
	}
}

// fitToMap scales a text block so it takes most of a map. Width and
// height are scaled separately.
func (p *painter) fitToMap(block *image.RGBA) *image.RGBA {
	rv := image.NewRGBA(image.Rect(0, 0, MapSize, MapSize))
	ink := inkBounds(block)

	if ink.Empty() {
		return rv
	}

	widthRatio, heightRatio := 0.92, 0.75
	if p.opts.Outline {
		widthRatio, heightRatio = 0.89, 0.68
	}

	width := int(MapSize * (p.rnd.Float64()/20 + widthRatio))
	height := int(MapSize * (p.rnd.Float64()/20 + heightRatio))
	target := image.Rect(0, 0, width, height).Add(image.Pt((MapSize-width)/2, (MapSize-height)/2))

	draw.BiLinear.Scale(rv, target, block, ink, draw.Over, nil)

	return rv
}

// drawCurve draws a cubic curve which goes from the top to the bottom
// or from the left to the right.
func (p *painter) drawCurve(img *image.NRGBA, fg image.Image) {
	size := p.opts.CurveSize
	if size <= 0 {
		return
	}

	rnd := func(scale float64) float64 {
		return p.rnd.Float64() * scale * MapSize
	}

	var pts [4][2]float64

	if p.rnd.IntN(2) == 0 {
		pts = [4][2]float64{
			{rnd(1), rnd(0.1)},
			{rnd(1), rnd(1)},
			{rnd(1), rnd(1)},
			{rnd(1), (0.8 + p.rnd.Float64()/10) * MapSize},
		}
	} else {
		pts = [4][2]float64{
			{rnd(0.1), rnd(1)},
			{rnd(1), rnd(1)},
			{rnd(1), rnd(1)},
			{(0.8 + p.rnd.Float64()/10) * MapSize, rnd(1)},
		}
	}

	radius := size / 2

	for i := 0; i <= 4*MapSize; i++ {
		t := float64(i) / (4 * MapSize)
		x, y := bezier(pts, t)
		stamp(img, x, y, radius, fg)
	}
}

func bezier(pts [4][2]float64, t float64) (float64, float64) {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t

	return a*pts[0][0] + b*pts[1][0] + c*pts[2][0] + d*pts[3][0],
		a*pts[0][1] + b*pts[1][1] + c*pts[2][1] + d*pts[3][1]
}

// stamp draws an opaque disc.
func stamp(img *image.NRGBA, cx, cy, radius float64, fg image.Image) {
	bounds := img.Bounds()
	r := int(math.Ceil(radius))

	for y := int(cy) - r; y <= int(cy)+r; y++ {
		for x := int(cx) - r; x <= int(cx)+r; x++ {
			if !image.Pt(x, y).In(bounds) {
				continue
			}

			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy

			if dx*dx+dy*dy > radius*radius+0.25 {
				continue
			}

			c := color.NRGBAModel.Convert(fg.At(x, y)).(color.NRGBA) //nolint: forcetypeassert
			c.A = 255
			img.SetNRGBA(x, y, c)
		}
	}
}

func rotateSprite(sp *sprite, angle float64) *sprite {
	src := sp.img.Bounds()
	side := int(math.Ceil(math.Hypot(float64(src.Dx()), float64(src.Dy()))))
	dst := image.NewRGBA(image.Rect(0, 0, side, side))

	sin, cos := math.Sincos(angle)
	scx, scy := float64(src.Dx())/2, float64(src.Dy())/2
	dcx, dcy := float64(side)/2, float64(side)/2
	tx := dcx - (cos*scx - sin*scy)
	ty := dcy - (sin*scx + cos*scy)

	draw.BiLinear.Transform(dst, f64.Aff3{cos, -sin, tx, sin, cos, ty}, sp.img, src, draw.Over, nil)

	return &sprite{
		img:      dst,
		baseline: int(math.Round(sin*scx + cos*float64(sp.baseline) + ty)),
		ink:      inkBounds(dst),
	}
}

// stackLines puts lines one under another, centered.
func stackLines(lines []*image.RGBA, gap int) *image.RGBA {
	width, height := 1, 0

	for i, line := range lines {
		width = max(width, line.Bounds().Dx())
		height += line.Bounds().Dy()

		if i > 0 {
			height += gap
		}
	}

	rv := image.NewRGBA(image.Rect(0, 0, width, max(height, 1)))
	y := 0

	for _, line := range lines {
		bounds := line.Bounds()
		at := image.Pt((width-bounds.Dx())/2, y)
		draw.Draw(rv, bounds.Add(at), line, image.Point{}, draw.Over)
		y += bounds.Dy() + gap
	}

	return rv
}

// inkBounds returns a box of pixels which are not fully transparent.
func inkBounds(img *image.RGBA) image.Rectangle {
	bounds := img.Bounds()
	rv := image.Rectangle{}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.RGBAAt(x, y).A == 0 {
				continue
			}

			rv = rv.Union(image.Rect(x, y, x+1, y+1))
		}
	}

	return rv
}

// colorize paints a mask with a foreground sampled at the same
// coordinates.
func colorize(mask *image.RGBA, fg image.Image) *image.NRGBA {
	bounds := mask.Bounds()
	rv := image.NewNRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			alpha := mask.RGBAAt(x, y).A
			if alpha == 0 {
				continue
			}

			c := color.NRGBAModel.Convert(fg.At(x, y)).(color.NRGBA) //nolint: forcetypeassert
			c.A = alpha
			rv.SetNRGBA(x, y, c)
		}
	}

	return rv
}

func newPainter(opts Options, seed uint64) *painter {
	return &painter{
		opts:      opts,
		rnd:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint: gosec
		quantizer: newQuantizer(),
	}
}
