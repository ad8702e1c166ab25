package commands

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// DebugEnabled reports whether XUPG_DEBUG asks for diagnostic output.
func DebugEnabled() bool {
	v, err := strconv.ParseBool(os.Getenv("XUPG_DEBUG"))
	return err == nil && v
}

// NewLogger returns a console logger on w at debug level, or a disabled
// logger when debug is false.
func NewLogger(debug bool, w io.Writer) zerolog.Logger {
	if !debug {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(zerolog.DebugLevel).
		With().
		Timestamp().
		Logger()
}
