package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// StatsSource serves the precomputed dataset endpoints.
type StatsSource interface {
	Info(ctx context.Context) (*DatasetInfo, error)
	Summary(ctx context.Context) (Summary, error)
	Correlation(ctx context.Context) (CorrelationMatrix, error)
	SurvivalRates(ctx context.Context) (*SurvivalRates, error)
	Page(ctx context.Context, page, perPage int) (*DataPage, error)
	Count(ctx context.Context) (int, error)
	Regression(ctx context.Context) (*RegressionResult, error)
	FeatureAnalysis(ctx context.Context) (FeatureAnalysis, error)
}

// Assistant serves the conversational endpoints.
type Assistant interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) (*Health, error)
	SetContext(ctx context.Context, view string) error
	QuickActions(ctx context.Context, view string) ([]QuickAction, error)
	Chat(ctx context.Context, question, view string) (json.RawMessage, error)
	Tour(ctx context.Context, kind string) ([]TourStep, error)
}

// Source is a backend able to answer both endpoint families.
type Source interface {
	StatsSource
	Assistant
}

// Source identifiers used by the CLI for selection.
const (
	SourceHTTP     = "http"
	SourceSnapshot = "snapshot"
)

// SourceConfig carries common knobs used by sources.
type SourceConfig struct {
	// HTTP
	BaseURL     string
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeouts    Timeouts
	// Snapshot
	Path string

	Logger *slog.Logger
}

// SourceFactory builds a Source from the generic config above.
type SourceFactory func(SourceConfig) (Source, error)

var registry = map[string]SourceFactory{}

// RegisterSource registers a source name with its factory.
func RegisterSource(name string, f SourceFactory) { registry[name] = f }

// OpenSource creates the named source.
func OpenSource(name string, cfg SourceConfig) (Source, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (available: %v)", name, SourceNames())
	}
	return f(cfg)
}

// SourceNames lists registered sources in lexical order.
func SourceNames() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// init registers built-in sources.
func init() {
	RegisterSource(SourceHTTP, func(c SourceConfig) (Source, error) {
		return NewClient(c.BaseURL, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay).
			WithTimeouts(c.Timeouts).
			WithLogger(c.Logger), nil
	})
	RegisterSource(SourceSnapshot, func(c SourceConfig) (Source, error) {
		if c.Path == "" {
			return nil, fmt.Errorf("snapshot source requires a path")
		}
		return LoadSnapshot(c.Path)
	})
}
