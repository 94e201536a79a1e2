package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Materializer writes a WeightTable out as a playlist in which every track
// appears weight times.
type Materializer struct {
	store   PlaylistStore
	metrics Metrics
	logger  *zap.Logger
}

func NewMaterializer(store PlaylistStore, metrics Metrics, logger *zap.Logger) *Materializer {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Materializer{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Snapshot expands the table into playlist order. Zero-weight tracks are left out.
func Snapshot(table *WeightTable) []string {
	ids := make([]string, 0, table.TotalWeight())
	for _, e := range table.entries {
		for range e.Weight {
			ids = append(ids, e.Track.ID)
		}
	}
	return ids
}

// Materialize finds or creates the playlist called name owned by ownerID and
// replaces its contents with the table's snapshot. It returns the playlist ID.
func (m *Materializer) Materialize(ctx context.Context, table *WeightTable, name, ownerID string) (string, error) {
	if total := table.TotalWeight(); total > MaxPlaylistItems {
		return "", fmt.Errorf("%w: total weight is %d", ErrSnapshotTooLarge, total)
	}

	playlistID, found, err := m.store.FindPlaylistByName(ctx, ownerID, name)
	if err != nil {
		m.metrics.RecordError("materializer", "lookup")
		return "", &PlaylistLookupError{Name: name, Err: err}
	}

	if found {
		m.logger.Info("Reusing existing playlist",
			zap.String("playlistID", playlistID),
			zap.String("name", name))
	} else {
		playlistID, err = m.store.CreatePlaylist(ctx, ownerID, name, true, false, "")
		if err != nil {
			m.metrics.RecordError("materializer", "create")
			return "", &PlaylistWriteError{Op: "create", Err: err}
		}
		m.logger.Info("Created playlist",
			zap.String("playlistID", playlistID),
			zap.String("name", name))
	}

	snapshot := Snapshot(table)
	if err := m.store.ReplacePlaylistTracks(ctx, playlistID, snapshot); err != nil {
		m.metrics.RecordError("materializer", "replace")
		return "", &PlaylistWriteError{Op: "replace", PlaylistID: playlistID, Err: err}
	}

	m.metrics.SetMaterialized(len(snapshot))
	m.logger.Info("Playlist contents replaced",
		zap.String("playlistID", playlistID),
		zap.Int("distinctTracks", table.Len()),
		zap.Int("snapshotLength", len(snapshot)))

	return playlistID, nil
}
