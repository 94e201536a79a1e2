package main

import (
	"fmt"
	"strings"

	"bettershuffle/internal/core"
	"bettershuffle/pkg/text"
)

func validateConfig() error {
	if err := validateSpotifyConfig(); err != nil {
		return err
	}

	if err := validateSourceConfig(); err != nil {
		return err
	}

	if err := validateWeightsConfig(); err != nil {
		return err
	}

	if err := core.ValidateQueueConfig(config.Queue); err != nil {
		return err
	}

	return validateLogConfig()
}

func validateSpotifyConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}

	return nil
}

func validateSourceConfig() error {
	if config.Spotify.SourcePlaylistID == "" {
		return fmt.Errorf("source is required (a playlist ID, link or %q)", core.LikedSongsSource)
	}
	id, err := resolveSource(config.Spotify.SourcePlaylistID)
	if err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}
	config.Spotify.SourcePlaylistID = id
	return nil
}

// resolveSource turns a playlist link or URI into a bare playlist ID.
func resolveSource(raw string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(raw), core.LikedSongsSource) {
		return core.LikedSongsSource, nil
	}
	return text.NewParser().ExtractPlaylistID(raw)
}

func validateWeightsConfig() error {
	if config.Weights.Path == "" {
		return fmt.Errorf("weights path is required")
	}
	if _, err := core.ParseMatchStrategy(config.Weights.Match); err != nil {
		return err
	}
	return nil
}

func validateLogConfig() error {
	switch strings.ToLower(config.Log.Format) {
	case logFormatJSON, logFormatText:
		return nil
	default:
		return fmt.Errorf("unknown log format %q (must be %s or %s)", config.Log.Format, logFormatJSON, logFormatText)
	}
}
