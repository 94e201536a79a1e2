package core

import (
	"context"
	"iter"
	"time"
)

type ItemKind int

const (
	// ItemKindTrack is a playable music track
	ItemKindTrack ItemKind = iota
	// ItemKindEpisode is a podcast episode
	ItemKindEpisode
	// ItemKindUnavailable is an item the service returned without a usable payload
	ItemKindUnavailable
)

func (k ItemKind) String() string {
	switch k {
	case ItemKindTrack:
		return "track"
	case ItemKindEpisode:
		return "episode"
	case ItemKindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Track is a single item from the streaming service. Identity is ID alone; every
// other field is payload.
type Track struct {
	ID       string
	Name     string
	Artists  []string
	Album    string
	Duration time.Duration
	URI      string
	Kind     ItemKind
}

// WeightOverride is one `name = weight` line of the weight file.
type WeightOverride struct {
	Name   string
	Weight int
	Line   int
}

// QueueStatus is a point-in-time view of the refill controller.
type QueueStatus struct {
	Session      string    `json:"session"`
	State        string    `json:"state"`
	Buffer       []string  `json:"buffer"`
	Pushes       int       `json:"pushes"`
	Refills      int       `json:"refills"`
	LastPlaying  string    `json:"last_playing,omitempty"`
	LastPollAt   time.Time `json:"last_poll_at"`
	TableTracks  int       `json:"table_tracks"`
	TableWeight  int       `json:"table_weight"`
	RecentPushes []string  `json:"recent_pushes"`
	// DistinctPushed is the number of distinct tracks the history remembers.
	DistinctPushed int `json:"distinct_pushed"`
	// BufferPushCounts maps each buffered track to its pushes this session.
	BufferPushCounts map[string]int `json:"buffer_push_counts,omitempty"`
}

type TrackSource interface {
	SourceTracks(ctx context.Context, sourceID string) iter.Seq2[Track, error]
}

type PlaybackQueue interface {
	AddToQueue(ctx context.Context, trackID string) error
	// CurrentlyPlaying returns nil, nil when nothing is playing.
	CurrentlyPlaying(ctx context.Context) (*Track, error)
}

type PlaylistStore interface {
	FindPlaylistByName(ctx context.Context, ownerID, name string) (playlistID string, found bool, err error)
	CreatePlaylist(ctx context.Context, ownerID, name string, public, collaborative bool, description string) (string, error)
	ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

type PushHistory interface {
	// Record stores trackID and reports whether it was already pushed this session.
	Record(trackID string) (repeat bool)
	Recent() []string
	// Count returns how many times trackID was pushed while remembered.
	Count(trackID string) int
	// Size returns the number of distinct track IDs remembered.
	Size() int
}

// Metrics receives counters from the controller and the materializer.
type Metrics interface {
	RecordPush(repeat bool)
	RecordPoll(result string)
	RecordRefill()
	RecordRetry(op string)
	RecordError(component, errorType string)
	SetTable(tracks, totalWeight int)
	SetMaterialized(tracks int)
}

type noopMetrics struct{}

func (noopMetrics) RecordPush(bool) {}
func (noopMetrics) RecordPoll(string) {}
func (noopMetrics) RecordRefill() {}
func (noopMetrics) RecordRetry(string) {}
func (noopMetrics) RecordError(string, string) {}
func (noopMetrics) SetTable(int, int) {}
func (noopMetrics) SetMaterialized(int) {}

// CollectTracks drains a lazy track sequence, stopping at the first error.
func CollectTracks(seq iter.Seq2[Track, error]) ([]Track, error) {
	var tracks []Track
	for track, err := range seq {
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}
