package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/bounds"
	"github.com/ethpandaops/topicnav/internal/navigator"
	"github.com/ethpandaops/topicnav/internal/playback"
	"github.com/ethpandaops/topicnav/internal/source"
)

// Config controls session lifetime.
type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

// CacheFactory creates the boundary cache of a session. The session id is
// passed as namespace.
type CacheFactory func(namespace string) bounds.Cache

// Manager creates, looks up and expires sessions.
type Manager interface {
	Start(ctx context.Context) error
	Stop() error
	Create(ctx context.Context) (*Session, error)
	Get(id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Len() int
}

type manager struct {
	log        logrus.FieldLogger
	cfg        Config
	navCfg     navigator.Config
	events     []source.MessageEvent
	playerOpts playback.Options
	newCache   CacheFactory
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a session manager. Every session plays back events on
// its own player.
func NewManager(
	log logrus.FieldLogger,
	cfg Config,
	navCfg navigator.Config,
	events []source.MessageEvent,
	playerOpts playback.Options,
	newCache CacheFactory,
) Manager {
	return &manager{
		log:        log.WithField("component", "sessions"),
		cfg:        cfg,
		navCfg:     navCfg,
		events:     events,
		playerOpts: playerOpts,
		newCache:   newCache,
		now:        time.Now,
		sessions:   make(map[string]*Session),
		done:       make(chan struct{}),
	}
}

// Start begins expiring idle sessions.
func (m *manager) Start(ctx context.Context) error {
	m.log.WithFields(logrus.Fields{
		"idle_timeout":   m.cfg.IdleTimeout,
		"sweep_interval": m.cfg.SweepInterval,
	}).Info("Starting session manager")

	m.wg.Add(1)

	go m.sweepLoop(ctx)

	return nil
}

// Stop stops the sweeper and closes every session.
func (m *manager) Stop() error {
	m.log.Info("Stopping session manager")
	close(m.done)
	m.wg.Wait()

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			m.log.WithError(err).WithField("session", s.ID()).Warn("Failed to close session")
		}
	}

	sessionsActive.Set(0)

	return nil
}

// Create starts a new session at the beginning of the recording.
func (m *manager) Create(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	id := uuid.New().String()
	player := playback.NewPlayer(m.log, m.events, m.playerOpts)
	s := newSession(m.log, id, player, m.newCache(id), m.navCfg, m.now())

	m.sessions[id] = s

	sessionsCreated.Inc()
	sessionsActive.Set(float64(len(m.sessions)))

	m.log.WithField("session", id).Debug("Created session")

	return s, nil
}

// Get returns the session with id and marks it used.
func (m *manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	s.touch(m.now())

	return s, nil
}

// Delete closes and forgets the session with id.
func (m *manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	sessionsActive.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	return s.Close(ctx)
}

// Len returns the number of live sessions.
func (m *manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

func (m *manager) sweepLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep closes sessions unused for longer than the idle timeout.
func (m *manager) sweep(ctx context.Context) {
	if m.cfg.IdleTimeout <= 0 {
		return
	}

	cutoff := m.now().Add(-m.cfg.IdleTimeout)

	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	sessionsActive.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, s := range expired {
		if err := s.Close(ctx); err != nil {
			m.log.WithError(err).WithField("session", s.ID()).Warn("Failed to close expired session")
		}
	}

	if len(expired) > 0 {
		sessionsExpired.Add(float64(len(expired)))
		m.log.WithField("count", len(expired)).Info("Expired idle sessions")
	}
}
