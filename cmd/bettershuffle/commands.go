package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bettershuffle/internal/core"
	httpserver "bettershuffle/internal/http"
	"bettershuffle/internal/spotify"
	"bettershuffle/internal/store"
	"bettershuffle/internal/weightfile"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Keep the playback queue filled with weighted random tracks",
	Long: `queue pushes a batch of weighted random picks onto your active Spotify playback queue and
refills it whenever playback reaches the last pushed tracks. Start playing something first.`,
	RunE: runQueue,
}

var playlistCmd = &cobra.Command{
	Use:   "playlist",
	Short: "Write a playlist in which every track appears weight times",
	RunE:  runPlaylist,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize with Spotify and cache the token",
	RunE:  runAuth,
}

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "Print the weight table built from the source and weight file",
	RunE:  runTracks,
}

func init() {
	tracksCmd.Flags().Bool("unmatched", false, "Only list weight overrides that matched no track")
}

func runAuth(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := validateSpotifyConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	client := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := client.ForceAuthenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}

	fmt.Printf("Token saved to %s\n", config.Spotify.TokenPath)
	return nil
}

func runTracks(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	client, err := authenticate(ctx)
	if err != nil {
		return err
	}

	loader, err := newTableLoader(config.Weights, logger.Named("weights"))
	if err != nil {
		return err
	}
	table, err := loader.Load(ctx, client, config.Spotify.SourcePlaylistID)
	if err != nil {
		return err
	}

	onlyUnmatched, _ := cmd.Flags().GetBool("unmatched")
	return printTable(os.Stdout, table, onlyUnmatched)
}

func printTable(out io.Writer, table *core.WeightTable, onlyUnmatched bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	if onlyUnmatched {
		fmt.Fprintln(w, "LINE\tNAME\tWEIGHT")
		for _, o := range table.Unmatched() {
			fmt.Fprintf(w, "%d\t%s\t%d\n", o.Line, o.Name, o.Weight)
		}
		return w.Flush()
	}

	fmt.Fprintln(w, "WEIGHT\tNAME\tARTISTS\tID")
	for _, e := range table.Entries() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.Weight, e.Track.Name, spotify.ArtistLine(e.Track), e.Track.ID)
	}
	fmt.Fprintf(w, "\n%d tracks, total weight %d\n", table.Len(), table.TotalWeight())
	return w.Flush()
}

func runPlaylist(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	client, err := authenticate(ctx)
	if err != nil {
		return err
	}

	loader, err := newTableLoader(config.Weights, logger.Named("weights"))
	if err != nil {
		return err
	}
	table, err := loader.Load(ctx, client, config.Spotify.SourcePlaylistID)
	if err != nil {
		return err
	}

	materializer := core.NewMaterializer(client, nil, logger.Named("materializer"))
	playlistID, err := materializer.Materialize(ctx, table, config.Playlist.Name, config.Playlist.OwnerID)
	if err != nil {
		return err
	}

	fmt.Printf("Playlist %q (%s) now holds %d tracks\n", config.Playlist.Name, playlistID, table.TotalWeight())
	return nil
}

func runQueue(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	session := uuid.NewString()
	sessionLogger := logger.With(zap.String("session", session))

	sessionLogger.Info("Starting bettershuffle queue",
		zap.String("source", config.Spotify.SourcePlaylistID),
		zap.String("weights", config.Weights.Path),
		zap.Bool("weightsWatch", config.Weights.Watch),
		zap.Bool("serverEnabled", config.Server.Enabled))

	svcs, err := initializeServices(ctx, session, sessionLogger)
	if err != nil {
		return err
	}

	return runServices(ctx, svcs, sessionLogger)
}

type services struct {
	spotify    *spotify.Client
	loader     *tableLoader
	tracks     []core.Track
	httpServer *httpserver.Server
	controller *core.RefillController
	reloads    chan *core.WeightTable
}

func initializeServices(ctx context.Context, session string, log *zap.Logger) (*services, error) {
	client, err := authenticate(ctx)
	if err != nil {
		return nil, err
	}

	loader, err := newTableLoader(config.Weights, log.Named("weights"))
	if err != nil {
		return nil, err
	}
	tracks, err := loader.FetchTracks(ctx, client, config.Spotify.SourcePlaylistID)
	if err != nil {
		return nil, err
	}
	table, err := loader.Build(tracks)
	if err != nil {
		return nil, err
	}

	svcs := &services{
		spotify: client,
		loader:  loader,
		tracks:  tracks,
		reloads: make(chan *core.WeightTable, 1),
	}

	opts := []core.RefillOption{
		core.WithSession(session),
		core.WithPushHistory(store.NewHistory(config.Queue.HistorySize, historyFPRate)),
		core.WithTableReloads(svcs.reloads),
	}
	if config.Server.Enabled {
		svcs.httpServer = httpserver.NewServer(&config.Server, log.Named("http"))
		opts = append(opts, core.WithMetrics(svcs.httpServer.Metrics()))
	}

	controller, err := core.NewRefillController(config.Queue, table, client, core.NewSampler(nil), log.Named("refill"), opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid queue configuration: %w", err)
	}
	svcs.controller = controller
	if svcs.httpServer != nil {
		svcs.httpServer.SetStatusProvider(controller)
	}

	return svcs, nil
}

func runServices(ctx context.Context, svcs *services, log *zap.Logger) error {
	g, gCtx := errgroup.WithContext(ctx)

	if svcs.httpServer != nil {
		g.Go(func() error {
			return svcs.httpServer.Start(gCtx)
		})
	}

	if config.Weights.Watch {
		watcher := weightfile.NewWatcher(config.Weights.Path, weightfile.DefaultDebounce, log.Named("watcher"))
		g.Go(func() error {
			return watcher.Run(gCtx, func() { svcs.reloadTable(log) })
		})
	}

	g.Go(func() error {
		return svcs.controller.Run(gCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error("bettershuffle stopped with error", zap.Error(err))
		return err
	}

	log.Info("bettershuffle stopped gracefully",
		zap.Int("pushes", svcs.controller.Status().Pushes),
		zap.Int("refills", svcs.controller.Status().Refills))
	return nil
}

// reloadTable rebuilds the table from the cached source tracks. A file that no
// longer parses keeps the previous table in place.
func (s *services) reloadTable(log *zap.Logger) {
	table, err := s.loader.Build(s.tracks)
	if err != nil {
		log.Error("Weight file reload failed, keeping previous weights", zap.Error(err))
		return
	}

	for {
		select {
		case s.reloads <- table:
			return
		case <-s.reloads:
			// drop a table the controller has not picked up yet
		}
	}
}

func authenticate(ctx context.Context) (*spotify.Client, error) {
	client := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := client.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}
	return client, nil
}
