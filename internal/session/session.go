// Package session holds navigation sessions: a playback of the recording, a
// boundary cache and one navigator per topic that has been used.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/bounds"
	"github.com/ethpandaops/topicnav/internal/navigator"
	"github.com/ethpandaops/topicnav/internal/playback"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTopicNotFound is returned for topics absent from the recording.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrTooManySessions is returned when the session limit is reached.
	ErrTooManySessions = errors.New("too many sessions")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// Info describes a session.
//
//nolint:tagliatelle // superior snake-case yo.
type Info struct {
	ID          string          `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	CurrentTime *timestamp.Time `json:"current_time,omitempty"`
	StartTime   *timestamp.Time `json:"start_time,omitempty"`
	EndTime     *timestamp.Time `json:"end_time,omitempty"`
	Paused      bool            `json:"paused"`
}

// Session is one independent view over the recording.
type Session struct {
	id      string
	log     logrus.FieldLogger
	player  *playback.Player
	cache   bounds.Cache
	navCfg  navigator.Config
	topics  map[string]struct{}
	created time.Time

	mu         sync.Mutex
	navigators map[string]*navigator.Navigator
	lastUsed   time.Time
	closed     bool
}

func newSession(
	log logrus.FieldLogger,
	id string,
	player *playback.Player,
	cache bounds.Cache,
	navCfg navigator.Config,
	now time.Time,
) *Session {
	topics := make(map[string]struct{})
	for _, topic := range player.Topics() {
		topics[topic] = struct{}{}
	}

	return &Session{
		id:         id,
		log:        log.WithField("session", id),
		player:     player,
		cache:      cache,
		navCfg:     navCfg,
		topics:     topics,
		created:    now,
		navigators: make(map[string]*navigator.Navigator),
		lastUsed:   now,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Info returns a description of the session.
func (s *Session) Info() Info {
	return Info{
		ID:          s.id,
		CreatedAt:   s.created,
		CurrentTime: s.player.CurrentTime(),
		StartTime:   s.player.StartTime(),
		EndTime:     s.player.EndTime(),
		Paused:      s.player.Paused(),
	}
}

// Seek moves the session's playback to t.
func (s *Session) Seek(t timestamp.Time) error {
	if s.isClosed() {
		return ErrSessionClosed
	}

	return s.player.SeekPlayback(t)
}

// Next navigates topic to its next message and returns the resulting state.
func (s *Session) Next(ctx context.Context, topic string) (navigator.State, error) {
	nav, err := s.navigator(topic)
	if err != nil {
		return navigator.State{}, err
	}

	nav.HandleNext(ctx)

	return nav.State(ctx), nil
}

// Previous navigates topic to its previous message and returns the resulting
// state.
func (s *Session) Previous(ctx context.Context, topic string) (navigator.State, error) {
	nav, err := s.navigator(topic)
	if err != nil {
		return navigator.State{}, err
	}

	nav.HandlePrevious(ctx)

	return nav.State(ctx), nil
}

// SetSelection records whether topic is selected and subscribed.
func (s *Session) SetSelection(
	ctx context.Context,
	topic string,
	selected, subscribed bool,
) (navigator.State, error) {
	nav, err := s.navigator(topic)
	if err != nil {
		return navigator.State{}, err
	}

	nav.UpdateSelection(ctx, selected, subscribed)

	return nav.State(ctx), nil
}

// State returns the navigation state of topic.
func (s *Session) State(ctx context.Context, topic string) (navigator.State, error) {
	nav, err := s.navigator(topic)
	if err != nil {
		return navigator.State{}, err
	}

	return nav.State(ctx), nil
}

// Close cancels all navigation of the session and drops its cached
// boundaries.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	navigators := s.navigators
	s.navigators = nil
	s.mu.Unlock()

	for _, nav := range navigators {
		nav.Close()
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to invalidate session cache: %w", err)
	}

	s.log.Debug("Closed session")

	return nil
}

func (s *Session) navigator(topic string) (*navigator.Navigator, error) {
	if _, ok := s.topics[topic]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, topic)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	nav, ok := s.navigators[topic]
	if !ok {
		nav = navigator.New(s.log, s.navCfg, s.player, s.cache, topic)
		s.navigators[topic] = nav
	}

	return nav, nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastUsed = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastUsed
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
