// Package logging builds the service's zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Build struct {
	writer io.Writer
	level  string
	format string
}

func New() *Build {
	return &Build{writer: os.Stderr, level: "info", format: FormatJSON}
}

func (b *Build) Writer(w io.Writer) *Build {
	b.writer = w
	return b
}

func (b *Build) Level(level string) *Build {
	b.level = level
	return b
}

func (b *Build) Format(format string) *Build {
	b.format = format
	return b
}

func (b *Build) Make() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(b.level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", b.level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	w := b.writer
	switch b.format {
	case FormatJSON, "":
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", b.format)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
