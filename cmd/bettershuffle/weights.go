package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"bettershuffle/internal/core"
	"bettershuffle/internal/weightfile"
	"bettershuffle/pkg/fuzzy"
)

// tableLoader turns the source collection and the weight file into a WeightTable.
type tableLoader struct {
	path       string
	match      core.NameMatcher
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger
}

func newTableLoader(cfg core.WeightsConfig, log *zap.Logger) (*tableLoader, error) {
	match, err := core.ParseMatchStrategy(cfg.Match)
	if err != nil {
		return nil, err
	}
	return &tableLoader{
		path:       cfg.Path,
		match:      match,
		normalizer: fuzzy.NewNormalizer(),
		logger:     log,
	}, nil
}

// FetchTracks drains the source collection.
func (l *tableLoader) FetchTracks(ctx context.Context, source core.TrackSource, sourceID string) ([]core.Track, error) {
	tracks, err := core.CollectTracks(source.SourceTracks(ctx, sourceID))
	if err != nil {
		return nil, fmt.Errorf("fetching source %s: %w", sourceID, err)
	}
	l.logger.Info("Fetched source tracks", zap.String("source", sourceID), zap.Int("count", len(tracks)))
	return tracks, nil
}

// Load fetches the source and builds its table.
func (l *tableLoader) Load(ctx context.Context, source core.TrackSource, sourceID string) (*core.WeightTable, error) {
	tracks, err := l.FetchTracks(ctx, source, sourceID)
	if err != nil {
		return nil, err
	}
	return l.Build(tracks)
}

// Build reads the weight file and applies it to tracks. A missing weight file
// leaves every track at weight 1.
func (l *tableLoader) Build(tracks []core.Track) (*core.WeightTable, error) {
	overrides, err := weightfile.Read(l.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		l.logger.Warn("Weight file not found, every track gets weight 1", zap.String("path", l.path))
	case err != nil:
		return nil, err
	}

	table, err := core.BuildWeightTable(tracks, overrides, l.match)
	if err != nil {
		return nil, err
	}

	l.warnUnmatched(table)
	l.logger.Info("Weight table built",
		zap.Int("tracks", table.Len()),
		zap.Int("overrides", len(overrides)),
		zap.Int("totalWeight", table.TotalWeight()))

	return table, nil
}

func (l *tableLoader) warnUnmatched(table *core.WeightTable) {
	unmatched := table.Unmatched()
	if len(unmatched) == 0 {
		return
	}

	names := table.TrackNames()
	for _, o := range unmatched {
		fields := []zap.Field{
			zap.Int("line", o.Line),
			zap.String("name", o.Name),
		}
		if closest, score, ok := l.normalizer.Closest(o.Name, names); ok {
			fields = append(fields, zap.String("closest", closest), zap.Float64("similarity", score))
		}
		l.logger.Warn("Weight override matches no track", fields...)
	}
}
