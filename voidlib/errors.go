package voidlib

import "errors"

var (
	ErrSettingsAreNotDefined      = errors.New("settings are not defined")
	ErrEncoderIsNotDefined        = errors.New("encoder is not defined")
	ErrAllowListIsNotDefined      = errors.New("allow list is not defined")
	ErrCaptchaSourceIsNotDefined  = errors.New("captcha source is not defined")
	ErrEventStreamIsNotDefined    = errors.New("event stream is not defined")
	ErrLoggerIsNotDefined         = errors.New("logger is not defined")
	ErrFilterClosed               = errors.New("filter is closed")
	ErrIncorrectFallingCheckTicks = errors.New("falling check ticks should be positive")
	ErrIncorrectCaptchaAttempts   = errors.New("captcha attempts should be positive")
	ErrIncorrectRateUnit          = errors.New("rate unit should be at least one second")
)
