package spotify

import (
	"context"
	"errors"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"bettershuffle/internal/core"
)

// FindPlaylistByName pages through the owner's playlists for one named exactly
// name and owned by ownerID. An empty ownerID means the authenticated user.
func (c *Client) FindPlaylistByName(ctx context.Context, ownerID, name string) (string, bool, error) {
	ownerID, err := c.resolveOwner(ctx, ownerID)
	if err != nil {
		return "", false, err
	}

	page, err := c.client.GetPlaylistsForUser(ctx, ownerID, spotify.Limit(PageLimitPlaylists))
	if err != nil {
		return "", false, classifyError("list_playlists", err)
	}

	for {
		for i := range page.Playlists {
			p := &page.Playlists[i]
			if p.Name == name && p.Owner.ID == ownerID {
				return string(p.ID), true, nil
			}
		}

		err = c.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			return "", false, nil
		}
		if err != nil {
			return "", false, classifyError("list_playlists", err)
		}
	}
}

// CreatePlaylist creates a playlist for ownerID and returns its ID.
func (c *Client) CreatePlaylist(
	ctx context.Context,
	ownerID, name string,
	public, collaborative bool,
	description string,
) (string, error) {
	ownerID, err := c.resolveOwner(ctx, ownerID)
	if err != nil {
		return "", err
	}

	playlist, err := c.client.CreatePlaylistForUser(ctx, ownerID, name, description, public, collaborative)
	if err != nil {
		return "", classifyError("create_playlist", err)
	}

	return string(playlist.ID), nil
}

// ReplacePlaylistTracks sets the playlist contents to trackIDs in order. The
// first batch replaces the contents and the rest is appended batch by batch,
// each batch retried on transient failures. If a batch still fails, the tracks
// the playlist held before the call are written back.
func (c *Client) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if c.client == nil {
		return errNotAuthenticated
	}

	previous, err := c.playlistTrackIDs(ctx, playlistID)
	if err != nil {
		return err
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	if err := c.writePlaylist(ctx, playlistID, ids); err != nil {
		if restoreErr := c.writePlaylist(context.WithoutCancel(ctx), playlistID, previous); restoreErr != nil {
			c.logger.Error("Failed to restore playlist after a failed write",
				zap.String("playlistID", playlistID),
				zap.Int("previousCount", len(previous)),
				zap.Error(restoreErr))
			return errors.Join(err, fmt.Errorf("restoring previous contents: %w", restoreErr))
		}
		c.logger.Warn("Playlist write failed, previous contents restored",
			zap.String("playlistID", playlistID),
			zap.Int("previousCount", len(previous)),
			zap.Error(err))
		return err
	}

	c.logger.Info("Replaced playlist tracks",
		zap.String("playlistID", playlistID),
		zap.Int("count", len(ids)))
	return nil
}

// writePlaylist replaces the contents with the first batch through the JSON
// body endpoint, which also clears the playlist when ids is empty, then
// appends the remaining batches.
func (c *Client) writePlaylist(ctx context.Context, playlistID string, ids []spotify.ID) error {
	first := make([]spotify.URI, 0, MaxTracksPerRequest)
	for _, id := range ids[:min(MaxTracksPerRequest, len(ids))] {
		first = append(first, spotify.URI("spotify:track:"+string(id)))
	}

	err := c.withRetry(ctx, "replace_playlist_tracks", func() error {
		_, err := c.client.ReplacePlaylistItems(ctx, spotify.ID(playlistID), first...)
		return classifyError("replace_playlist_tracks", err)
	})
	if err != nil {
		return err
	}

	for i := MaxTracksPerRequest; i < len(ids); i += MaxTracksPerRequest {
		end := min(i+MaxTracksPerRequest, len(ids))
		err := c.withRetry(ctx, "add_playlist_tracks", func() error {
			_, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids[i:end]...)
			if err != nil {
				return classifyError("add_playlist_tracks", fmt.Errorf("batch %d-%d: %w", i+1, end, err))
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// playlistTrackIDs lists the track IDs a playlist currently holds. Episodes and
// unavailable items cannot be written back through the track endpoints and are
// left out.
func (c *Client) playlistTrackIDs(ctx context.Context, playlistID string) ([]spotify.ID, error) {
	ids := []spotify.ID{}
	skipped := 0
	for track, err := range c.playlistTracks(ctx, playlistID) {
		if err != nil {
			return nil, err
		}
		if track.Kind != core.ItemKindTrack || track.ID == "" {
			skipped++
			continue
		}
		ids = append(ids, spotify.ID(track.ID))
	}
	if skipped > 0 {
		c.logger.Debug("Skipped non-track items in playlist snapshot",
			zap.String("playlistID", playlistID),
			zap.Int("skipped", skipped))
	}
	return ids, nil
}

func (c *Client) resolveOwner(ctx context.Context, ownerID string) (string, error) {
	if c.client == nil {
		return "", errNotAuthenticated
	}
	if ownerID != "" {
		return ownerID, nil
	}
	return c.CurrentUserID(ctx)
}
