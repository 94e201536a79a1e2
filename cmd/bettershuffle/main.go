// Package main provides the bettershuffle CLI application entry point.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bettershuffle/internal/core"
)

const (
	envPrefix       = "BETTERSHUFFLE"
	logFormatJSON   = "json"
	logFormatText   = "console"
	historyFPRate   = 0.001
	defaultLogLevel = "info"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bettershuffle",
	Short: "bettershuffle - weighted shuffle for Spotify",
	Long: `bettershuffle plays a Spotify playlist (or your liked songs) in weighted random order.
Weights come from a plain text file of "track name = weight" lines; every other track has weight 1.

It can keep your live playback queue topped up with weighted picks (queue), or write a
playlist in which every track appears weight times (playlist).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if viper.GetBool("generate-env-example") {
			return generateEnvExample(cmd)
		}
		return cmd.Help()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := core.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("log-format", logFormatJSON, "log format (json, console)")

	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.String("spotify-redirect-url", defaults.Spotify.RedirectURL, "Spotify OAuth redirect URL")
	flags.String("spotify-token-path", defaults.Spotify.TokenPath, "Path of the cached Spotify token")
	flags.String("source", "", fmt.Sprintf("Source playlist ID, link or URI, or %q for your saved tracks", core.LikedSongsSource))

	flags.String("weights-path", defaults.Weights.Path, "Weight override file")
	flags.String("weights-match", defaults.Weights.Match, "Override name matching (exact, substring, normalized)")
	flags.Bool("weights-watch", defaults.Weights.Watch, "Reload the weight file when it changes (queue only)")

	flags.Int("batch-size", defaults.Queue.BatchSize, "Tracks pushed to the queue per refill")
	flags.Int("requeue-depth", defaults.Queue.RequeueDepth, "Refill once playback reaches one of the last N pushed tracks")
	flags.Duration("poll-interval", defaults.Queue.PollInterval, "How often current playback is checked")
	flags.Int("max-retries", defaults.Queue.MaxRetries, "Retries of a transient Spotify failure")
	flags.Duration("retry-min-delay", defaults.Queue.RetryMinDelay, "First retry delay")
	flags.Duration("retry-max-delay", defaults.Queue.RetryMaxDelay, "Maximum retry delay")
	flags.Int("history-size", defaults.Queue.HistorySize, "Pushed tracks remembered per session")

	flags.String("playlist-name", defaults.Playlist.Name, "Name of the materialized playlist")
	flags.String("playlist-owner", "", "Owner of the materialized playlist (default: current user)")

	flags.Bool("server-enabled", defaults.Server.Enabled, "Serve health, status and metrics while queueing")
	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")

	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(queueCmd, playlistCmd, authCmd, tracksCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureSpotify(cfg)
	configureWeights(cfg)
	configureQueue(cfg)
	configurePlaylist(cfg)
	configureServer(cfg)
	configureLog(cfg)

	return cfg
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	if url := viper.GetString("spotify-redirect-url"); url != "" {
		cfg.Spotify.RedirectURL = url
	}
	if path := viper.GetString("spotify-token-path"); path != "" {
		cfg.Spotify.TokenPath = path
	}
	cfg.Spotify.SourcePlaylistID = viper.GetString("source")
}

func configureWeights(cfg *core.Config) {
	if path := viper.GetString("weights-path"); path != "" {
		cfg.Weights.Path = path
	}
	if match := viper.GetString("weights-match"); match != "" {
		cfg.Weights.Match = match
	}
	cfg.Weights.Watch = viper.GetBool("weights-watch")
}

func configureQueue(cfg *core.Config) {
	cfg.Queue.BatchSize = viper.GetInt("batch-size")
	cfg.Queue.RequeueDepth = viper.GetInt("requeue-depth")
	cfg.Queue.PollInterval = viper.GetDuration("poll-interval")
	cfg.Queue.MaxRetries = viper.GetInt("max-retries")
	cfg.Queue.RetryMinDelay = viper.GetDuration("retry-min-delay")
	cfg.Queue.RetryMaxDelay = viper.GetDuration("retry-max-delay")

	cfg.Queue.HistorySize = viper.GetInt("history-size")
	if cfg.Queue.HistorySize <= 0 {
		fmt.Printf("Warning: Invalid history size (%d), using default (%d)\n",
			cfg.Queue.HistorySize, core.DefaultHistorySize)
		cfg.Queue.HistorySize = core.DefaultHistorySize
	}
}

func configurePlaylist(cfg *core.Config) {
	if name := viper.GetString("playlist-name"); name != "" {
		cfg.Playlist.Name = name
	}
	cfg.Playlist.OwnerID = viper.GetString("playlist-owner")
}

func configureServer(cfg *core.Config) {
	cfg.Server.Enabled = viper.GetBool("server-enabled")
	if host := viper.GetString("server-host"); host != "" {
		cfg.Server.Host = host
	}
	cfg.Server.Port = viper.GetInt("server-port")
}

func configureLog(cfg *core.Config) {
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if strings.ToLower(format) == logFormatText {
		cfg.Encoding = logFormatText
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}
