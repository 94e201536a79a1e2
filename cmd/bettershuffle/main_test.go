package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"bettershuffle/internal/core"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := []struct {
		flag     string
		expected string
	}{
		{"spotify-client-id", "BETTERSHUFFLE_SPOTIFY_CLIENT_ID"},
		{"source", "BETTERSHUFFLE_SOURCE"},
		{"requeue-depth", "BETTERSHUFFLE_REQUEUE_DEPTH"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			if got := flagToEnvVar(tt.flag); got != tt.expected {
				t.Errorf("flagToEnvVar(%q) = %q, want %q", tt.flag, got, tt.expected)
			}
		})
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, section := range envSections {
		for _, flag := range section.flags {
			if !strings.Contains(content, flagToEnvVar(flag)+"=") {
				t.Errorf(".env.example is missing %s", flagToEnvVar(flag))
			}
		}
	}

	expected := []string{
		"BETTERSHUFFLE_BATCH_SIZE=5",
		"BETTERSHUFFLE_REQUEUE_DEPTH=3",
		"BETTERSHUFFLE_POLL_INTERVAL=3s",
		"BETTERSHUFFLE_WEIGHTS_MATCH=exact",
	}
	for _, line := range expected {
		if !strings.Contains(content, line) {
			t.Errorf(".env.example is missing default line %q", line)
		}
	}
}

func TestBuildConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	viper.Set("spotify-client-id", "id")
	viper.Set("spotify-client-secret", "secret")
	viper.Set("source", core.LikedSongsSource)
	viper.Set("batch-size", 8)
	viper.Set("requeue-depth", 2)
	viper.Set("poll-interval", "5s")
	viper.Set("history-size", 0)
	viper.Set("weights-match", "normalized")

	cfg := buildConfig()

	if cfg.Spotify.ClientID != "id" || cfg.Spotify.SourcePlaylistID != core.LikedSongsSource {
		t.Errorf("Spotify config = %+v", cfg.Spotify)
	}
	if cfg.Queue.BatchSize != 8 || cfg.Queue.RequeueDepth != 2 {
		t.Errorf("Queue sizes = %d/%d, want 8/2", cfg.Queue.BatchSize, cfg.Queue.RequeueDepth)
	}
	if cfg.Queue.PollInterval != 5*time.Second {
		t.Errorf("PollInterval = %v, want 5s", cfg.Queue.PollInterval)
	}
	if cfg.Queue.HistorySize != core.DefaultHistorySize {
		t.Errorf("HistorySize = %d, want default %d", cfg.Queue.HistorySize, core.DefaultHistorySize)
	}
	if cfg.Weights.Match != core.MatchStrategyNormalized {
		t.Errorf("Weights.Match = %s, want normalized", cfg.Weights.Match)
	}
	if cfg.Weights.Path != core.DefaultWeightsPath {
		t.Errorf("Weights.Path = %s, want default", cfg.Weights.Path)
	}
	if cfg.Spotify.TokenPath == "" || cfg.Spotify.RedirectURL == "" {
		t.Error("Spotify defaults were not kept")
	}
}

func TestValidateConfig(t *testing.T) {
	valid := func() *core.Config {
		cfg := core.DefaultConfig()
		cfg.Spotify.ClientID = "id"
		cfg.Spotify.ClientSecret = "secret"
		cfg.Spotify.SourcePlaylistID = "pl"
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*core.Config)
		wantErr bool
	}{
		{"Valid", func(*core.Config) {}, false},
		{"Missing client ID", func(c *core.Config) { c.Spotify.ClientID = "" }, true},
		{"Missing source", func(c *core.Config) { c.Spotify.SourcePlaylistID = "" }, true},
		{"Track link as source", func(c *core.Config) {
			c.Spotify.SourcePlaylistID = "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC"
		}, true},
		{"Unknown match strategy", func(c *core.Config) { c.Weights.Match = "regex" }, true},
		{"Depth beyond batch", func(c *core.Config) { c.Queue.RequeueDepth = 9 }, true},
		{"Unknown log format", func(c *core.Config) { c.Log.Format = "xml" }, true},
		{"Console log format", func(c *core.Config) { c.Log.Format = "console" }, false},
	}

	saved := config
	t.Cleanup(func() { config = saved })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config = valid()
			tt.modify(config)
			if err := validateConfig(); (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveSource(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"liked", core.LikedSongsSource},
		{" Liked ", core.LikedSongsSource},
		{"pl", "pl"},
		{"spotify:playlist:37i9dQZF1DXcBWIGoYBM5M", "37i9dQZF1DXcBWIGoYBM5M"},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc", "37i9dQZF1DXcBWIGoYBM5M"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := resolveSource(tt.input)
			if err != nil {
				t.Fatalf("resolveSource(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("resolveSource(%q) = %s, want %s", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		if l := buildLogger("debug", format); l == nil {
			t.Errorf("buildLogger(debug, %s) returned nil", format)
		}
	}
}

func TestPrintTable(t *testing.T) {
	tracks := []core.Track{
		{ID: "1", Name: "Song A", Artists: []string{"X"}, Kind: core.ItemKindTrack},
		{ID: "2", Name: "Song B", Kind: core.ItemKindTrack},
	}
	overrides := []core.WeightOverride{
		{Name: "song a", Weight: 4, Line: 1},
		{Name: "Nope", Weight: 2, Line: 2},
	}
	table, err := core.BuildWeightTable(tracks, overrides, nil)
	if err != nil {
		t.Fatalf("BuildWeightTable() error = %v", err)
	}

	var all bytes.Buffer
	if err := printTable(&all, table, false); err != nil {
		t.Fatalf("printTable() error = %v", err)
	}
	if !strings.Contains(all.String(), "Song A") || !strings.Contains(all.String(), "total weight 5") {
		t.Errorf("printTable() = %q", all.String())
	}

	var unmatched bytes.Buffer
	if err := printTable(&unmatched, table, true); err != nil {
		t.Fatalf("printTable() error = %v", err)
	}
	if !strings.Contains(unmatched.String(), "Nope") || strings.Contains(unmatched.String(), "Song B") {
		t.Errorf("printTable(unmatched) = %q", unmatched.String())
	}
}

func TestTableLoader_MissingWeightFile(t *testing.T) {
	loader, err := newTableLoader(core.WeightsConfig{Path: t.TempDir() + "/missing.txt"}, zap.NewNop())
	if err != nil {
		t.Fatalf("newTableLoader() error = %v", err)
	}

	table, err := loader.Build([]core.Track{{ID: "1", Name: "A", Kind: core.ItemKindTrack}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if table.TotalWeight() != 1 {
		t.Errorf("TotalWeight() = %d, want 1", table.TotalWeight())
	}
}
