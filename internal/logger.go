package internal

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// redactedKeys never reach production logs in clear text.
var redactedKeys = map[string]bool{
	"otp":           true,
	"token":         true,
	"signature":     true,
	"authorization": true,
	"key_secret":    true,
}

// NewLogger builds the process logger. In prod it writes JSON with
// RFC3339Nano timestamps and masks credential attributes; elsewhere it
// writes text so the development OTP sender stays readable.
func NewLogger(w io.Writer, env string, level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if level != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(level)); err != nil {
			slog.Default().Warn("Invalid log level. Using default level: info", slog.String("value", level))
		} else {
			lvl.Set(parsed)
		}
	}

	if env != "prod" {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch {
			case a.Key == slog.TimeKey && len(groups) == 0:
				return slog.String("time", a.Value.Time().Format(time.RFC3339Nano))
			case redactedKeys[strings.ToLower(a.Key)]:
				return slog.String(a.Key, "[redacted]")
			}
			return a
		},
	})
	return slog.New(h).With(slog.String("service", "haat"))
}
