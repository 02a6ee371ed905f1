package copilot

import (
	"context"
	"log/slog"
	"time"

	"github.com/KaramelBytes/titanic-analytics/internal/logging"
)

// Origin says where loaded data came from.
type Origin int

const (
	Remote Origin = iota
	Fallback
)

func (o Origin) String() string {
	if o == Remote {
		return "remote"
	}
	return "fallback"
}

// Loader yields a value from somewhere; callers never branch on the source.
type Loader[T any] interface {
	Load(ctx context.Context) (T, Origin)
}

// FallbackLoader tries Fetch within Timeout and substitutes Static on any
// error. A zero Timeout leaves ctx untouched.
type FallbackLoader[T any] struct {
	Name    string
	Fetch   func(ctx context.Context) (T, error)
	Static  func() T
	Timeout time.Duration
	Logger  *slog.Logger
}

func (l FallbackLoader[T]) Load(ctx context.Context) (T, Origin) {
	if l.Fetch != nil {
		fctx := ctx
		if l.Timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(ctx, l.Timeout)
			defer cancel()
		}
		v, err := l.Fetch(fctx)
		if err == nil {
			return v, Remote
		}
		logging.OrDiscard(l.Logger).Warn("using fallback", "loader", l.Name, "error", err)
	}
	return l.Static(), Fallback
}
