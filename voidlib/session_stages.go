package voidlib

// stage is a tagged state of a session. Each stage carries only the data
// it needs, so nothing leaks from a previous stage into the next one.
type stage interface {
	State() CheckState
}

// fallingStage is a stage which runs a falling check.
type fallingStage interface {
	stage
	trace() *fallingTrace
}

type fallingTrace struct {
	posX  float64
	posY  float64
	posZ  float64
	lastY float64

	ticks        int
	ignoredTicks int
	nonValidXZ   int
	listening    bool
}

type captchaChallenge struct {
	answer   string
	attempts int
}

type stageOnlyPosition struct {
	fall *fallingTrace
}

type stageOnlyCaptcha struct {
	captcha *captchaChallenge
}

type stageCaptchaPosition struct {
	fall    *fallingTrace
	captcha *captchaChallenge
}

type stageCaptchaOnPositionFailed struct {
	fall *fallingTrace
}

type stageSuccessful struct{}

type stageRejected struct {
	reason BlockReason
	from   CheckState
}

// stageAborted is a session closed without a verdict: a client has
// gone or there was nothing to show it.
type stageAborted struct {
	from CheckState
}

func (s *stageOnlyPosition) State() CheckState            { return CheckOnlyPosition }
func (s *stageOnlyCaptcha) State() CheckState             { return CheckOnlyCaptcha }
func (s *stageCaptchaPosition) State() CheckState         { return CheckCaptchaPosition }
func (s *stageCaptchaOnPositionFailed) State() CheckState { return CheckCaptchaOnPositionFailed }
func (s *stageSuccessful) State() CheckState              { return CheckSuccessful }
func (s *stageRejected) State() CheckState                { return s.from }
func (s *stageAborted) State() CheckState                 { return s.from }

func (s *stageOnlyPosition) trace() *fallingTrace            { return s.fall }
func (s *stageCaptchaPosition) trace() *fallingTrace         { return s.fall }
func (s *stageCaptchaOnPositionFailed) trace() *fallingTrace { return s.fall }

func isTerminal(s stage) bool {
	switch s.(type) {
	case *stageSuccessful, *stageRejected, *stageAborted:
		return true
	}

	return false
}

func challengeOf(s stage) *captchaChallenge {
	switch st := s.(type) {
	case *stageOnlyCaptcha:
		return st.captcha
	case *stageCaptchaPosition:
		return st.captcha
	}

	return nil
}

func newFallingTrace(coords Coords) *fallingTrace {
	return &fallingTrace{
		posX:  coords.X,
		posY:  coords.Y,
		posZ:  coords.Z,
		lastY: coords.Y,
		ticks: 1,
	}
}

func newStage(state CheckState, settings *Settings) stage {
	challenge := func() *captchaChallenge {
		return &captchaChallenge{attempts: settings.CaptchaAttempts}
	}

	switch state {
	case CheckOnlyPosition:
		return &stageOnlyPosition{fall: newFallingTrace(settings.FallingCoords)}
	case CheckOnlyCaptcha:
		return &stageOnlyCaptcha{captcha: challenge()}
	case CheckCaptchaOnPositionFailed:
		return &stageCaptchaOnPositionFailed{fall: newFallingTrace(settings.FallingCoords)}
	default:
		return &stageCaptchaPosition{
			fall:    newFallingTrace(settings.FallingCoords),
			captcha: challenge(),
		}
	}
}
