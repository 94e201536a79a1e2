package core

import (
	"time"
)

const (
	// DefaultBatchSize is the number of tracks pushed per refill cycle
	DefaultBatchSize = 5
	// DefaultRequeueDepth is the trailing window of the batch checked against playback
	DefaultRequeueDepth = 3
	// DefaultPollInterval is how often current playback is polled while watching
	DefaultPollInterval = 3 * time.Second
	// DefaultMaxRetries bounds retries of transient remote failures
	DefaultMaxRetries = 3
	// DefaultRetryMinDelay is the first backoff delay
	DefaultRetryMinDelay = 500 * time.Millisecond
	// DefaultRetryMaxDelay caps the backoff delay
	DefaultRetryMaxDelay = 10 * time.Second
	// DefaultHistorySize is how many pushed tracks the session history keeps
	DefaultHistorySize = 500
	// DefaultServerPort is the HTTP port for health and metrics
	DefaultServerPort = 8080
	// DefaultWeightsPath is the weight file read when none is configured
	DefaultWeightsPath = "weights.txt"
	// DefaultPlaylistName is the destination playlist for materialization
	DefaultPlaylistName = "better shuffle"
	// MaxPlaylistItems is the most items a Spotify playlist can hold
	MaxPlaylistItems = 10000
	// LikedSongsSource selects the user's saved tracks as the source collection
	LikedSongsSource = "liked"
)

type Config struct {
	Spotify  SpotifyConfig
	Weights  WeightsConfig
	Queue    QueueConfig
	Playlist PlaylistConfig
	Server   ServerConfig
	Log      LogConfig
}

type SpotifyConfig struct {
	ClientID         string
	ClientSecret     string
	RedirectURL      string
	TokenPath        string
	SourcePlaylistID string
}

type WeightsConfig struct {
	Path  string
	Match string
	Watch bool
}

type QueueConfig struct {
	BatchSize     int
	RequeueDepth  int
	PollInterval  time.Duration
	MaxRetries    int
	RetryMinDelay time.Duration
	RetryMaxDelay time.Duration
	HistorySize   int
}

type PlaylistConfig struct {
	Name    string
	OwnerID string
}

type ServerConfig struct {
	Enabled      bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL: "http://127.0.0.1:8080/callback",
			TokenPath:   "./spotify_token.json",
		},
		Weights: WeightsConfig{
			Path:  DefaultWeightsPath,
			Match: MatchStrategyExact,
		},
		Queue: QueueConfig{
			BatchSize:     DefaultBatchSize,
			RequeueDepth:  DefaultRequeueDepth,
			PollInterval:  DefaultPollInterval,
			MaxRetries:    DefaultMaxRetries,
			RetryMinDelay: DefaultRetryMinDelay,
			RetryMaxDelay: DefaultRetryMaxDelay,
			HistorySize:   DefaultHistorySize,
		},
		Playlist: PlaylistConfig{
			Name: DefaultPlaylistName,
		},
		Server: ServerConfig{
			Enabled:      false,
			Host:         "127.0.0.1",
			Port:         DefaultServerPort,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
