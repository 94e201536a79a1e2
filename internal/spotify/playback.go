package spotify

import (
	"context"

	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"

	"bettershuffle/internal/core"
)

// AddToQueue appends a track to the end of the user's playback queue.
func (c *Client) AddToQueue(ctx context.Context, trackID string) error {
	if c.client == nil {
		return errNotAuthenticated
	}

	if err := c.client.QueueSong(ctx, spotify.ID(trackID)); err != nil {
		return classifyError("add_to_queue", err)
	}

	c.logger.Debug("Track added to queue", zap.String("trackID", trackID))
	return nil
}

// CurrentlyPlaying returns the item on the active device, or nil when nothing
// is loaded. A paused track still counts as playing.
func (c *Client) CurrentlyPlaying(ctx context.Context) (*core.Track, error) {
	if c.client == nil {
		return nil, errNotAuthenticated
	}

	currently, err := c.client.PlayerCurrentlyPlaying(ctx)
	if err != nil {
		return nil, classifyError("currently_playing", err)
	}
	if currently == nil || currently.Item == nil {
		return nil, nil
	}

	track := convertFullTrack(currently.Item)
	return &track, nil
}
