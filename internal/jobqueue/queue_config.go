/*
Package jobqueue configuration. All tunable parameters for the River queue
live here so they can be adjusted without touching worker logic.

Worker counts are deliberately small: the upstream telephony API allows only
two requests per second, so more workers just pile up behind the client-side
rate limiter.
*/
package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// Queue names. Staff notifications get their own queue so a backlog of
// webhook installs can never delay an urgent page.
const (
	QueueNotifications = "notifications"
)

// River priorities, 1 is highest.
const (
	priorityUrgent  = 1
	priorityDefault = 2
)

// QueueConfig holds all configurable parameters for the job queue.
type QueueConfig struct {
	// MaxWorkers is the number of concurrent workers per queue.
	MaxWorkers int

	// MaxRetries is the maximum number of attempts per job before River
	// discards it.
	MaxRetries int

	// JobTimeout bounds a single job execution.
	JobTimeout time.Duration
}

// DefaultQueueConfig returns the standard production configuration.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers: 4,
		MaxRetries: 10,
		JobTimeout: 2 * time.Minute,
	}
}

// DevelopmentQueueConfig fails fast for local runs.
func DevelopmentQueueConfig() *QueueConfig {
	config := DefaultQueueConfig()
	config.MaxWorkers = 2
	config.MaxRetries = 3
	config.JobTimeout = 30 * time.Second
	return config
}

// RiverQueueConfig converts our config to River's queue configuration format.
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
		QueueNotifications: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
