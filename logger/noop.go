package logger

import "github.com/voidcheck/voidcheck/voidlib"

type noopLogger struct{}

func (n noopLogger) Named(_ string) voidlib.Logger          { return n }
func (n noopLogger) BindInt(_ string, _ int) voidlib.Logger { return n }
func (n noopLogger) BindStr(_, _ string) voidlib.Logger     { return n }
func (n noopLogger) BindJSON(_, _ string) voidlib.Logger    { return n }
func (n noopLogger) Printf(_ string, _ ...any)              {}
func (n noopLogger) Info(_ string)                          {}
func (n noopLogger) InfoError(_ string, _ error)            {}
func (n noopLogger) Warning(_ string)                       {}
func (n noopLogger) WarningError(_ string, _ error)         {}
func (n noopLogger) Debug(_ string)                         {}
func (n noopLogger) DebugError(_ string, _ error)           {}

// NewNoopLogger returns a logger which discards everything.
func NewNoopLogger() voidlib.Logger {
	return noopLogger{}
}
