package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"
)

// Queue Refill Controller
// Keeps a finite lookahead of sampled tracks on the remote playback queue. The
// remote API does not expose a reliable queue position, so the controller infers
// that the queue is running low when playback reaches one of the last
// RequeueDepth tracks of the batch it pushed. A skip past the whole batch, or a
// remote shuffle, goes undetected.

type RefillState int

const (
	// StateFilling pushes a fresh batch to the remote queue
	StateFilling RefillState = iota
	// StateWatching polls playback against the trailing window of the batch
	StateWatching
	// StateRefilling drops the buffer before the next fill
	StateRefilling
)

func (s RefillState) String() string {
	switch s {
	case StateFilling:
		return "filling"
	case StateWatching:
		return "watching"
	case StateRefilling:
		return "refilling"
	default:
		return "unknown"
	}
}

const (
	pollResultIdle   = "idle"
	pollResultRefill = "refill"
)

type RefillOption func(*RefillController)

// WithPushHistory records every successful push in h.
func WithPushHistory(h PushHistory) RefillOption {
	return func(c *RefillController) { c.history = h }
}

func WithMetrics(m Metrics) RefillOption {
	return func(c *RefillController) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithSession tags logs and status with a session identifier.
func WithSession(id string) RefillOption {
	return func(c *RefillController) { c.session = id }
}

// WithTableReloads swaps in tables received on ch between polls.
func WithTableReloads(ch <-chan *WeightTable) RefillOption {
	return func(c *RefillController) { c.reloads = ch }
}

type RefillController struct {
	config  QueueConfig
	queue   PlaybackQueue
	sampler *Sampler
	history PushHistory
	metrics Metrics
	logger  *zap.Logger
	session string
	reloads <-chan *WeightTable
	sleep   func(ctx context.Context, d time.Duration) error

	table  *WeightTable
	buffer []Track

	statusMutex sync.RWMutex
	state       RefillState
	pushes      int
	refills     int
	lastPlaying string
	lastPollAt  time.Time
}

// NewRefillController validates cfg and returns a controller in the Filling state.
func NewRefillController(
	cfg QueueConfig,
	table *WeightTable,
	queue PlaybackQueue,
	sampler *Sampler,
	logger *zap.Logger,
	opts ...RefillOption,
) (*RefillController, error) {
	if err := ValidateQueueConfig(cfg); err != nil {
		return nil, err
	}
	if table == nil {
		return nil, ErrEmptyTable
	}

	c := &RefillController{
		config:  cfg,
		queue:   queue,
		sampler: sampler,
		metrics: noopMetrics{},
		logger:  logger,
		sleep:   sleepContext,
		table:   table,
		state:   StateFilling,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.SetTable(table.Len(), table.TotalWeight())

	return c, nil
}

// ValidateQueueConfig checks the batch, window and polling parameters.
func ValidateQueueConfig(cfg QueueConfig) error {
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.RequeueDepth <= 0 || cfg.RequeueDepth > cfg.BatchSize {
		return fmt.Errorf("requeue depth must be between 1 and batch size %d, got %d", cfg.BatchSize, cfg.RequeueDepth)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", cfg.MaxRetries)
	}
	return nil
}

// Run fills the queue once and then watches playback until ctx is cancelled
// (returns nil) or a non-recoverable error occurs.
func (c *RefillController) Run(ctx context.Context) error {
	c.logger.Info("Starting queue refill controller",
		zap.String("session", c.session),
		zap.Int("batchSize", c.config.BatchSize),
		zap.Int("requeueDepth", c.config.RequeueDepth),
		zap.Duration("pollInterval", c.config.PollInterval),
		zap.Int("tracks", c.table.Len()),
		zap.Int("totalWeight", c.table.TotalWeight()))

	if err := c.Fill(ctx); err != nil {
		return c.stop(ctx, err)
	}

	timer := time.NewTimer(c.config.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return c.stop(ctx, nil)
		case table, ok := <-c.reloads:
			if !ok {
				c.reloads = nil
				continue
			}
			c.swapTable(table)
		case <-timer.C:
			if _, err := c.Poll(ctx); err != nil {
				return c.stop(ctx, err)
			}
			timer.Reset(c.config.PollInterval)
		}
	}
}

func (c *RefillController) stop(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		c.logger.Info("Queue refill controller stopped", zap.String("session", c.session))
		return nil
	}
	c.logger.Error("Queue refill controller failed", zap.String("session", c.session), zap.Error(err))
	return err
}

// Fill samples and pushes a full batch, then replaces the buffer with it.
func (c *RefillController) Fill(ctx context.Context) error {
	c.setState(StateFilling)

	batch := make([]Track, 0, c.config.BatchSize)
	for i := 0; i < c.config.BatchSize; i++ {
		track, err := c.sampler.Sample(c.table)
		if err != nil {
			c.metrics.RecordError("refill", "sample")
			return fmt.Errorf("sampling track %d of %d: %w", i+1, c.config.BatchSize, err)
		}

		if err := c.push(ctx, track); err != nil {
			return err
		}
		batch = append(batch, track)
	}

	c.statusMutex.Lock()
	c.buffer = batch
	c.state = StateWatching
	c.statusMutex.Unlock()

	c.logger.Debug("Batch queued", zap.String("session", c.session), zap.Strings("trackIDs", trackIDs(batch)))
	return nil
}

// Poll checks current playback once and refills when it has reached the
// trailing window of the buffer. It reports whether a refill happened.
func (c *RefillController) Poll(ctx context.Context) (bool, error) {
	var playing *Track
	err := c.withRetry(ctx, "currently_playing", func() error {
		var pollErr error
		playing, pollErr = c.queue.CurrentlyPlaying(ctx)
		return pollErr
	})
	if err != nil {
		c.metrics.RecordError("refill", "poll")
		return false, fmt.Errorf("polling current playback: %w", err)
	}

	if playing == nil {
		c.metrics.RecordError("refill", "playback_state")
		return false, &PlaybackStateError{Reason: "nothing is playing"}
	}
	if playing.Kind != ItemKindTrack || playing.ID == "" {
		c.metrics.RecordError("refill", "playback_state")
		return false, &PlaybackStateError{Reason: fmt.Sprintf("%s %q is playing, not a track", playing.Kind, playing.Name)}
	}

	c.statusMutex.Lock()
	c.lastPlaying = playing.ID
	c.lastPollAt = time.Now()
	c.statusMutex.Unlock()

	if !c.inTrailingWindow(playing.ID) {
		c.metrics.RecordPoll(pollResultIdle)
		return false, nil
	}

	c.logger.Info("Playback reached the end of the queued batch, refilling",
		zap.String("session", c.session),
		zap.String("trackID", playing.ID),
		zap.String("name", playing.Name))

	c.statusMutex.Lock()
	c.state = StateRefilling
	c.buffer = nil
	c.refills++
	c.statusMutex.Unlock()
	c.metrics.RecordPoll(pollResultRefill)
	c.metrics.RecordRefill()

	return true, c.Fill(ctx)
}

func (c *RefillController) inTrailingWindow(trackID string) bool {
	start := max(len(c.buffer)-c.config.RequeueDepth, 0)
	for _, t := range c.buffer[start:] {
		if t.ID == trackID {
			return true
		}
	}
	return false
}

func (c *RefillController) push(ctx context.Context, track Track) error {
	err := c.withRetry(ctx, "add_to_queue", func() error {
		return c.queue.AddToQueue(ctx, track.ID)
	})
	if err != nil {
		c.metrics.RecordError("refill", "push")
		return fmt.Errorf("queueing %q (%s): %w", track.Name, track.ID, err)
	}

	repeat := false
	if c.history != nil {
		repeat = c.history.Record(track.ID)
	}
	c.metrics.RecordPush(repeat)

	c.statusMutex.Lock()
	c.pushes++
	c.statusMutex.Unlock()

	c.logger.Info("Track queued",
		zap.String("session", c.session),
		zap.String("trackID", track.ID),
		zap.String("name", track.Name),
		zap.Bool("repeat", repeat))
	return nil
}

// withRetry retries fn on transient remote errors with exponential backoff,
// at most MaxRetries times.
func (c *RefillController) withRetry(ctx context.Context, op string, fn func() error) error {
	b := &backoff.Backoff{
		Min:    c.config.RetryMinDelay,
		Max:    c.config.RetryMaxDelay,
		Factor: 2,
		Jitter: true,
	}

	for {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsTransient(err) || int(b.Attempt()) >= c.config.MaxRetries {
			return err
		}

		delay := b.Duration()
		c.metrics.RecordRetry(op)
		c.logger.Warn("Transient remote failure, retrying",
			zap.String("session", c.session),
			zap.String("op", op),
			zap.Float64("attempt", b.Attempt()),
			zap.Duration("delay", delay),
			zap.Error(err))

		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return errors.Join(err, sleepErr)
		}
	}
}

func (c *RefillController) swapTable(table *WeightTable) {
	if table == nil {
		return
	}
	c.statusMutex.Lock()
	c.table = table
	c.statusMutex.Unlock()
	c.metrics.SetTable(table.Len(), table.TotalWeight())
	c.logger.Info("Weight table reloaded",
		zap.String("session", c.session),
		zap.Int("tracks", table.Len()),
		zap.Int("totalWeight", table.TotalWeight()))
}

func (c *RefillController) setState(s RefillState) {
	c.statusMutex.Lock()
	c.state = s
	c.statusMutex.Unlock()
}

// State returns the current state of the controller.
func (c *RefillController) State() RefillState {
	c.statusMutex.RLock()
	defer c.statusMutex.RUnlock()
	return c.state
}

// Buffer returns a copy of the last pushed batch in push order.
func (c *RefillController) Buffer() []Track {
	c.statusMutex.RLock()
	defer c.statusMutex.RUnlock()
	out := make([]Track, len(c.buffer))
	copy(out, c.buffer)
	return out
}

// Status returns a snapshot safe to read from other goroutines.
func (c *RefillController) Status() QueueStatus {
	c.statusMutex.RLock()
	status := QueueStatus{
		Session:     c.session,
		State:       c.state.String(),
		Buffer:      trackIDs(c.buffer),
		Pushes:      c.pushes,
		Refills:     c.refills,
		LastPlaying: c.lastPlaying,
		LastPollAt:  c.lastPollAt,
		TableTracks: c.table.Len(),
		TableWeight: c.table.TotalWeight(),
	}
	c.statusMutex.RUnlock()

	if c.history != nil {
		status.RecentPushes = c.history.Recent()
		status.DistinctPushed = c.history.Size()
		status.BufferPushCounts = make(map[string]int, len(status.Buffer))
		for _, id := range status.Buffer {
			status.BufferPushCounts[id] = c.history.Count(id)
		}
	}
	return status
}

func trackIDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
