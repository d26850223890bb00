// Package playback implements an in-process playback pipeline over a loaded
// recording.
package playback

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/source/memory"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

// Compile-time interface compliance checks.
var (
	_ source.Pipeline = (*Player)(nil)
	_ source.Controls = (*Player)(nil)
)

// ErrSeekOutOfRange is returned when seeking outside the recording.
var ErrSeekOutOfRange = errors.New("seek target outside recording")

// Options configures a Player.
type Options struct {
	// TopicStats exposes per-topic statistics. Disabling it emulates sources
	// without an indexed summary.
	TopicStats bool
}

// Player plays back a recording. It starts paused at the recording start.
type Player struct {
	log   logrus.FieldLogger
	src   *memory.Source
	stats map[string]source.TopicStats
	start *timestamp.Time
	end   *timestamp.Time

	mu      sync.RWMutex
	current *timestamp.Time
	paused  bool
}

// NewPlayer creates a player over events.
func NewPlayer(log logrus.FieldLogger, events []source.MessageEvent, opts Options) *Player {
	src := memory.New(events)
	start, end := src.Bounds()

	p := &Player{
		log:    log.WithField("component", "player"),
		src:    src,
		start:  start,
		end:    end,
		paused: true,
	}

	if opts.TopicStats {
		p.stats = src.Stats()
	}

	if start != nil {
		p.current = start.Ptr()
	}

	return p
}

// Topics returns the recorded topic names.
func (p *Player) Topics() []string {
	return p.src.Topics()
}

// Stats returns per-topic statistics regardless of whether they are exposed
// to navigation.
func (p *Player) Stats() map[string]source.TopicStats {
	return p.src.Stats()
}

// CurrentTime returns the playback position.
func (p *Player) CurrentTime() *timestamp.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.current == nil {
		return nil
	}

	return p.current.Ptr()
}

// StartTime returns the recording start.
func (p *Player) StartTime() *timestamp.Time {
	return p.start
}

// EndTime returns the recording end.
func (p *Player) EndTime() *timestamp.Time {
	return p.end
}

// TopicStats returns per-topic statistics, or nil when disabled.
func (p *Player) TopicStats() map[string]source.TopicStats {
	return p.stats
}

// Controls returns the player itself, or nil for an empty recording.
func (p *Player) Controls() source.Controls {
	if p.start == nil {
		return nil
	}

	return p
}

// GetBatchIterator opens an iterator over topic restricted to r.
func (p *Player) GetBatchIterator(topic string, r source.Range) (source.Iterator, bool) {
	return p.src.GetBatchIterator(topic, r)
}

// Paused reports whether playback is paused.
func (p *Player) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.paused
}

// Play resumes playback.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.paused = false
}

// PausePlayback pauses playback.
func (p *Player) PausePlayback() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.paused = true

	return nil
}

// SeekPlayback moves the playback position to t.
func (p *Player) SeekPlayback(t timestamp.Time) error {
	if !t.IsValid() {
		return fmt.Errorf("invalid seek target %s", t)
	}

	if p.start == nil || t.Before(*p.start) || t.After(*p.end) {
		return fmt.Errorf("%w: %s", ErrSeekOutOfRange, t)
	}

	p.mu.Lock()
	p.current = t.Ptr()
	p.mu.Unlock()

	p.log.WithField("time", t.String()).Debug("Seeked playback")

	return nil
}

// SetReady toggles whether the player can serve iterators.
func (p *Player) SetReady(ready bool) {
	p.src.SetReady(ready)
}
