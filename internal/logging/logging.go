// Package logging builds the zerolog logger shared by the CLI and services.
package logging

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ParseLevel maps a config/flag level name to a zerolog level.
// An empty name means info.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, errors.Errorf("parsing log level %q: %w", name, err)
	}
	return level, nil
}

// New returns a console logger writing to w at the named level.
func New(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(console).Level(lvl).With().Timestamp().Logger(), nil
}
