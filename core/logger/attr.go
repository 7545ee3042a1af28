package logger

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Helpers return an empty Attr for nil input; slog drops empty attributes,
// so log.Info("msg", logger.Error(err)) needs no nil check.

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under "errors", keyed by their position.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Duration creates an attribute for a measured duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed reports the time passed since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

func CommandID(id uuid.UUID) slog.Attr {
	return slog.String("command_id", id.String())
}

func CommandName(name string) slog.Attr {
	return slog.String("command", name)
}

// State creates an attribute for lifecycle states.
func State(s fmt.Stringer) slog.Attr {
	if s == nil {
		return slog.Attr{}
	}
	return slog.String("state", s.String())
}

func Priority(p int) slog.Attr {
	return slog.Int("priority", p)
}

// Handler names the event handler a record refers to.
func Handler(name string) slog.Attr {
	return slog.String("handler", name)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Count creates a counter attribute under key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}
