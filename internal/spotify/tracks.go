package spotify

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"bettershuffle/internal/core"
)

// SourceTracks lazily pages through a playlist, or the user's saved tracks when
// sourceID is core.LikedSongsSource. Iteration stops at the first error.
func (c *Client) SourceTracks(ctx context.Context, sourceID string) iter.Seq2[core.Track, error] {
	if sourceID == core.LikedSongsSource {
		return c.savedTracks(ctx)
	}
	return c.playlistTracks(ctx, sourceID)
}

func (c *Client) playlistTracks(ctx context.Context, playlistID string) iter.Seq2[core.Track, error] {
	return func(yield func(core.Track, error) bool) {
		if c.client == nil {
			yield(core.Track{}, errNotAuthenticated)
			return
		}

		page, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(PageLimitPlaylistItems))
		if err != nil {
			yield(core.Track{}, classifyError("playlist_items", err))
			return
		}

		count := 0
		for {
			for i := range page.Items {
				count++
				if !yield(convertPlaylistItem(&page.Items[i]), nil) {
					return
				}
			}

			err = c.client.NextPage(ctx, page)
			if errors.Is(err, spotify.ErrNoMorePages) {
				break
			}
			if err != nil {
				yield(core.Track{}, classifyError("playlist_items", err))
				return
			}
		}

		c.logger.Info("Retrieved playlist tracks",
			zap.String("playlistID", playlistID),
			zap.Int("count", count))
	}
}

func (c *Client) savedTracks(ctx context.Context) iter.Seq2[core.Track, error] {
	return func(yield func(core.Track, error) bool) {
		if c.client == nil {
			yield(core.Track{}, errNotAuthenticated)
			return
		}

		page, err := c.client.CurrentUsersTracks(ctx, spotify.Limit(PageLimitSavedTracks))
		if err != nil {
			yield(core.Track{}, classifyError("saved_tracks", err))
			return
		}

		count := 0
		for {
			for i := range page.Tracks {
				count++
				if !yield(convertFullTrack(&page.Tracks[i].FullTrack), nil) {
					return
				}
			}

			err = c.client.NextPage(ctx, page)
			if errors.Is(err, spotify.ErrNoMorePages) {
				break
			}
			if err != nil {
				yield(core.Track{}, classifyError("saved_tracks", err))
				return
			}
		}

		c.logger.Info("Retrieved saved tracks", zap.Int("count", count))
	}
}

func convertPlaylistItem(item *spotify.PlaylistItem) core.Track {
	switch {
	case item.Track.Track != nil:
		return convertFullTrack(item.Track.Track)
	case item.Track.Episode != nil:
		return core.Track{
			ID:   string(item.Track.Episode.ID),
			Name: item.Track.Episode.Name,
			Kind: core.ItemKindEpisode,
		}
	default:
		return core.Track{Kind: core.ItemKindUnavailable}
	}
}

func convertFullTrack(track *spotify.FullTrack) core.Track {
	artists := make([]string, 0, len(track.Artists))
	for _, artist := range track.Artists {
		artists = append(artists, artist.Name)
	}

	return core.Track{
		ID:       string(track.ID),
		Name:     track.Name,
		Artists:  artists,
		Album:    track.Album.Name,
		Duration: time.Duration(track.Duration) * time.Millisecond,
		URI:      string(track.URI),
		Kind:     core.ItemKindTrack,
	}
}

// ArtistLine joins the artist names of a track for display.
func ArtistLine(track core.Track) string {
	return strings.Join(track.Artists, ", ")
}
