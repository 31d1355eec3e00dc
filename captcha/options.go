package captcha

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"runtime"

	"github.com/voidcheck/voidcheck/logger"
	"github.com/voidcheck/voidcheck/voidlib"
)

const (
	DefaultImagesCount = 1000
	DefaultPattern     = "abcdefghijklmnopqrstuvwxyz1234567890"
	DefaultLength      = 3
	DefaultFontSize    = 78
	DefaultCurveSize   = 2
	DefaultCurves      = 3
)

// DefaultColors are foreground colors used if nothing is configured.
var DefaultColors = []string{"000000", "AA0000", "00AA00", "0000AA", "AAAA00", "AA00AA", "00AAAA"}

// Gradient describes linear gradient fills. Coordinates are in map
// pixels, randomness is a fraction of a map size.
type Gradient struct {
	Count int

	StartX           float64
	StartY           float64
	EndX             float64
	EndY             float64
	StartXRandomness float64
	StartYRandomness float64
	EndXRandomness   float64
	EndYRandomness   float64

	// Fractions are stops of colors along a gradient. If empty, colors
	// are distributed evenly.
	Fractions []float64
}

// DefaultGradient returns gradient settings which fill text from the
// top to the bottom.
func DefaultGradient() *Gradient {
	return &Gradient{
		Count:            32,
		StartY:           40,
		EndX:             MapSize,
		EndY:             80,
		StartYRandomness: 2,
		EndYRandomness:   2,
		Fractions:        []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9},
	}
}

// Options is a set of generator settings.
type Options struct {
	// Encoder packs rendered images into protocol frames.
	//
	// This is a mandatory setting.
	Encoder voidlib.Encoder

	// Logger defines an instance of the logger.
	//
	// This is an optional setting.
	Logger voidlib.Logger

	// EventStream receives an event on every installed pool.
	//
	// This is an optional setting.
	EventStream voidlib.EventStream

	// Concurrency is a number of render workers. Default is a number
	// of CPUs.
	Concurrency int

	// ImagesCount is a size of a pool.
	ImagesCount int

	// Pattern is an alphabet of random answers.
	Pattern string

	// Length is a number of characters of an answer or a number of
	// digits if NumberSpelling is set.
	Length int

	// NumberSpelling draws numbers written with words. An answer is
	// a number in digits.
	NumberSpelling         bool
	EachWordOnSeparateLine bool
	Spelling               Spelling

	// Backplates are paths to background images.
	Backplates []string

	// Fonts are paths to TTF or OTF files.
	Fonts            []string
	UseStandardFonts bool
	FontSize         float64

	Outline       bool
	Rotate        bool
	Ripple        bool
	Underline     bool
	Strikethrough bool
	CurveSize     float64
	CurvesAmount  int

	// Colors are hex RGB strings like AA0000. With Gradient set,
	// colors are gradient stops.
	Colors   []string
	Gradient *Gradient
}

func (o Options) valid() error {
	switch {
	case o.Encoder == nil:
		return ErrEncoderIsNotDefined
	case !o.NumberSpelling && o.Pattern == "":
		return ErrInvalidAlphabet
	case !o.UseStandardFonts && len(o.Fonts) == 0:
		return ErrNoFonts
	}

	if o.NumberSpelling {
		return o.Spelling.valid(o.getLength())
	}

	return nil
}

func (o Options) getLogger() voidlib.Logger {
	if o.Logger == nil {
		return logger.NewNoopLogger()
	}

	return o.Logger.Named("captcha")
}

func (o Options) getConcurrency() int {
	if o.Concurrency < 1 {
		return runtime.NumCPU()
	}

	return o.Concurrency
}

func (o Options) getImagesCount() int {
	if o.ImagesCount < 1 {
		return DefaultImagesCount
	}

	return o.ImagesCount
}

func (o Options) getLength() int {
	if o.Length < 1 {
		return DefaultLength
	}

	return o.Length
}

func (o Options) getFontSize() float64 {
	if o.FontSize <= 0 {
		return DefaultFontSize
	}

	return o.FontSize
}

func (o Options) getColors() ([]color.RGBA, error) {
	values := o.Colors
	if len(values) == 0 {
		values = DefaultColors
	}

	rv := make([]color.RGBA, 0, len(values))

	for _, v := range values {
		c, err := ParseColor(v)
		if err != nil {
			return nil, err
		}

		rv = append(rv, c)
	}

	return rv, nil
}

func (o Options) getAnswerer() answerer {
	rv := answerer{
		alphabet:      []rune(o.Pattern),
		length:        o.getLength(),
		separateLines: o.EachWordOnSeparateLine,
	}

	if o.NumberSpelling {
		spelling := o.Spelling
		rv.spelling = &spelling
	}

	return rv
}

// ParseColor parses a hex RGB color like AA00AA or #AA00AA.
func ParseColor(value string) (color.RGBA, error) {
	if len(value) > 0 && value[0] == '#' {
		value = value[1:]
	}

	decoded, err := hex.DecodeString(value)
	if err != nil || len(decoded) != 3 {
		return color.RGBA{}, fmt.Errorf("incorrect color %q", value)
	}

	return color.RGBA{R: decoded[0], G: decoded[1], B: decoded[2], A: 255}, nil
}
