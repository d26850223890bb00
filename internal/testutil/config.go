package testutil

import (
	"time"

	"github.com/ethpandaops/topicnav/internal/config"
)

// NewTestConfig returns a minimal valid config for testing.
func NewTestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
			LogLevel:        "info",
		},
		Recording: config.RecordingConfig{
			Path:       "testdata/recording.jsonl",
			TopicStats: true,
		},
		Navigation: config.NavigationConfig{
			TargetMessagesInWindow: 10,
			WindowCount:            4,
			SupersedeInFlight:      true,
		},
		Bounds: config.BoundsConfig{
			Backend: "memory",
		},
		Sessions: config.SessionsConfig{
			IdleTimeout:   time.Minute,
			SweepInterval: time.Second,
			MaxSessions:   10,
		},
	}
}
