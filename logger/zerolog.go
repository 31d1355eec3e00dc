package logger

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/voidcheck/voidcheck/voidlib"
)

type zeroLogContext struct {
	name string
	log  *zerolog.Logger
}

func (z *zeroLogContext) Named(name string) voidlib.Logger {
	newName := name

	if z.name != "" {
		newName = z.name + "." + name
	}

	return &zeroLogContext{
		log:  z.log,
		name: newName,
	}
}

func (z *zeroLogContext) BindInt(name string, value int) voidlib.Logger {
	ctx := z.log.With().Int(name, value).Logger()

	return &zeroLogContext{
		log:  &ctx,
		name: z.name,
	}
}

func (z *zeroLogContext) BindStr(name, value string) voidlib.Logger {
	ctx := z.log.With().Str(name, value).Logger()

	return &zeroLogContext{
		log:  &ctx,
		name: z.name,
	}
}

func (z *zeroLogContext) BindJSON(name, value string) voidlib.Logger {
	ctx := z.log.With().RawJSON(name, []byte(value)).Logger()

	return &zeroLogContext{
		log:  &ctx,
		name: z.name,
	}
}

func (z *zeroLogContext) Printf(format string, args ...any) {
	z.Debug(fmt.Sprintf(format, args...))
}

func (z *zeroLogContext) Info(msg string) {
	z.InfoError(msg, nil)
}

func (z *zeroLogContext) InfoError(msg string, err error) {
	z.emitLog(z.log.Info(), msg, err)
}

func (z *zeroLogContext) Warning(msg string) {
	z.WarningError(msg, nil)
}

func (z *zeroLogContext) WarningError(msg string, err error) {
	z.emitLog(z.log.Warn(), msg, err)
}

func (z *zeroLogContext) Debug(msg string) {
	z.DebugError(msg, nil)
}

func (z *zeroLogContext) DebugError(msg string, err error) {
	z.emitLog(z.log.Debug(), msg, err)
}

func (z *zeroLogContext) emitLog(evt *zerolog.Event, msg string, err error) {
	evt = evt.Str("logger", z.name)

	if err != nil {
		evt = evt.Err(err)
	}

	evt.Msg(msg)
}

// NewZeroLogger returns a logger which uses zerolog as a backend.
func NewZeroLogger(log zerolog.Logger) voidlib.Logger {
	return &zeroLogContext{
		log: &log,
	}
}
