package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	chans "github.com/aura-labs/aura-studio/internal/lib/utils/channels"
	"github.com/aura-labs/aura-studio/internal/models"
)

// Clock advances the playhead in wall-clock time while the
// player is in the playing state. It is the only writer that
// moves the playhead during playback; seeks and scrubs go
// through the project store directly.
type Clock struct {
	// Dependencies
	log      *slog.Logger
	player   Player
	viewport Viewport

	// Internal channels
	stopChan chan struct{}
	runMutex sync.Mutex
}

type Player interface {
	Advance(delta float64)
	PlaybackState() models.Playback
}

// Viewport follows the playhead so it stays visible during
// playback. A nil viewport disables following.
type Viewport interface {
	FollowPlayhead(t float64)
}

func New(
	log *slog.Logger,
	player Player,
	viewport Viewport,
) *Clock {
	return &Clock{
		log:      log,
		player:   player,
		viewport: viewport,
		stopChan: make(chan struct{}),
	}
}

// Run drives the playhead until the context is cancelled or
// Stop is called. The tick rate follows the player's nominal
// FPS, but advancement uses measured wall-clock deltas so a
// slow tick never desynchronizes composition time.
func (c *Clock) Run(ctx context.Context) error {
	const op = "Clock.Run"

	log := c.log.With(
		slog.String("op", op),
	)

	// mutex to prevent multiple
	// run call.
	if !c.runMutex.TryLock() {
		return nil
	}
	defer c.runMutex.Unlock()

	log.Info("start playback clock")

	ticker := time.NewTicker(c.tickInterval())
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case now := <-ticker.C:
			c.tick(now.Sub(last))
			last = now
		case <-c.stopChan:
			log.Debug("got stop chan")
			log.Info("finish playback clock")
			return nil
		case <-ctx.Done():
			log.Debug("got stop chan")
			log.Info("finish playback clock")
			return nil
		}
	}
}

// tick applies one measured delta. Advancement rules (stopped,
// scrubbing, end-of-timeline clamp) live in the player; the
// clock only measures time and keeps the viewport following.
func (c *Clock) tick(delta time.Duration) {
	c.player.Advance(delta.Seconds())

	state := c.player.PlaybackState()
	if state.IsPlaying && c.viewport != nil {
		c.viewport.FollowPlayhead(state.CurrentTime)
	}
}

func (c *Clock) tickInterval() time.Duration {
	fps := c.player.PlaybackState().FPS
	if fps <= 0 {
		fps = models.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// IsRunning returns clock status.
func (c *Clock) IsRunning() bool {
	if c.runMutex.TryLock() {
		c.runMutex.Unlock()
		return false
	}
	return true
}

func (c *Clock) Stop() {
	chans.Notify(c.stopChan)
}
