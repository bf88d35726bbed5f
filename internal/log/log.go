// Package log provides logging utilities.
package log

//go:generate go tool errtrace -w .

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"braces.dev/errtrace"
	"github.com/golang-cz/devslog"
	"github.com/phsym/console-slog"
	slogformatter "github.com/samber/slog-formatter"

	"github.com/ghettovoice/registrar/internal/errorutil"
	"github.com/ghettovoice/registrar/internal/util"
)

// Redacted replaces values of the sensitive attributes.
const Redacted = "<redacted>"

// SensitiveKeys are attribute keys which values are never written to the log.
var SensitiveKeys = []string{"secret", "password", "response"}

func redact(slog.Value) slog.Value { return slog.StringValue(Redacted) }

var newHandler = func() func(slog.Handler) slog.Handler {
	formatters := []slogformatter.Formatter{
		slogformatter.ErrorFormatter("error"),
	}
	for _, k := range SensitiveKeys {
		formatters = append(formatters, slogformatter.FormatByKey(k, redact))
	}
	return slogformatter.NewFormatterHandler(formatters...)
}()

// Format is a log output format.
type Format string

const (
	FormatConsole Format = "console"
	FormatDev     Format = "dev"
	FormatJSON    Format = "json"
	FormatNone    Format = "none"
)

// ErrUnknownFormat is returned by [New] for unsupported formats.
const ErrUnknownFormat errorutil.Error = "unknown log format"

// New builds a logger writing to w in the given format at the given minimal level.
// An empty format means [FormatConsole].
func New(format Format, level slog.Level, w io.Writer) (*slog.Logger, error) {
	switch Format(util.LCase(string(format))) {
	case FormatConsole, "":
		return slog.New(newHandler(
			console.NewHandler(w, &console.HandlerOptions{
				AddSource:  true,
				Level:      level,
				TimeFormat: time.RFC3339Nano,
			}),
		)), nil
	case FormatDev:
		return slog.New(newHandler(
			devslog.NewHandler(w, &devslog.Options{
				HandlerOptions: &slog.HandlerOptions{
					AddSource: true,
					Level:     level,
				},
				SortKeys:   true,
				TimeFormat: time.RFC3339Nano,
			}),
		)), nil
	case FormatJSON:
		return slog.New(newHandler(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				AddSource: true,
				Level:     level,
			}),
		)), nil
	case FormatNone:
		return Noop, nil
	default:
		return nil, errtrace.Wrap(errorutil.NewWrapperError(ErrUnknownFormat, "%q", format))
	}
}

// ParseLevel parses a level name like "debug" or "WARN".
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, errtrace.Wrap(errorutil.NewInvalidArgumentError(err))
	}
	return lvl, nil
}

// Def is a default logger.
var Def = must(New(FormatConsole, slog.LevelDebug, os.Stdout))

// Dev is a developer logger.
var Dev = must(New(FormatDev, slog.LevelDebug, os.Stdout))

// JSON is a production logger.
var JSON = must(New(FormatJSON, slog.LevelInfo, os.Stdout))

func must(l *slog.Logger, err error) *slog.Logger {
	if err != nil {
		panic(err)
	}
	return l
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h noopHandler) WithGroup(string) slog.Handler { return h }

// Noop is a noop logger.
var Noop = slog.New(noopHandler{})
