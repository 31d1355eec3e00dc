package captcha

import "errors"

var (
	ErrGenerationInProgress = errors.New("captcha generation is in progress")
	ErrGeneratorClosed      = errors.New("captcha generator is closed")
	ErrMissingGlyph         = errors.New("glyph is missing in every font")
	ErrNoFonts              = errors.New("no fonts are configured")
	ErrNoColors             = errors.New("no foreground colors are configured")
	ErrInvalidAlphabet      = errors.New("alphabet is empty")
	ErrInvalidSpelling      = errors.New("invalid number spelling")
	ErrEncoderIsNotDefined  = errors.New("encoder is not defined")
)
