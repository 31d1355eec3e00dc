package voidlib

import (
	"fmt"
	"strings"
)

// CheckState is a verification mode of a session.
type CheckState int

const (
	// CheckOnlyPosition runs a falling check only.
	CheckOnlyPosition CheckState = iota

	// CheckOnlyCaptcha asks to solve a CAPTCHA only.
	CheckOnlyCaptcha

	// CheckCaptchaPosition runs both checks at the same time.
	CheckCaptchaPosition

	// CheckCaptchaOnPositionFailed runs a falling check and gives a
	// CAPTCHA to those who failed it.
	CheckCaptchaOnPositionFailed

	// CheckSuccessful is a terminal state of a session which passed all
	// checks.
	CheckSuccessful
)

func (c CheckState) String() string {
	switch c {
	case CheckOnlyPosition:
		return "only_position"
	case CheckOnlyCaptcha:
		return "only_captcha"
	case CheckCaptchaPosition:
		return "captcha_position"
	case CheckCaptchaOnPositionFailed:
		return "captcha_on_position_failed"
	case CheckSuccessful:
		return "successful"
	}

	return fmt.Sprintf("check_state(%d)", int(c))
}

// ParseCheckState parses a name of the check state. Both snake case and
// upper case names are accepted.
func ParseCheckState(value string) (CheckState, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")

	for _, state := range []CheckState{
		CheckOnlyPosition,
		CheckOnlyCaptcha,
		CheckCaptchaPosition,
		CheckCaptchaOnPositionFailed,
	} {
		if state.String() == normalized {
			return state, nil
		}
	}

	return 0, fmt.Errorf("unknown check state %q", value)
}
