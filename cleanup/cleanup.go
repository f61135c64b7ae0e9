// Package cleanup provides a background worker that removes expired
// sessions from the store.
package cleanup

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nmehta6/dishcovery/store"
)

// Logger is the interface for logging cleanup events.
type Logger interface {
	Printf(format string, v ...interface{})
}

// defaultLogger wraps the standard log package.
type defaultLogger struct{}

func (d *defaultLogger) Printf(format string, v ...interface{}) {
	log.Printf("[cleanup] "+format, v...)
}

// Config holds cleanup worker configuration.
type Config struct {
	// Sessions is the session store to sweep.
	Sessions store.Sessions

	// Interval is how often to run a sweep. Defaults to 1 hour.
	Interval time.Duration

	// Timeout bounds a single sweep. Defaults to 5 minutes.
	Timeout time.Duration

	// Logger for cleanup events. Defaults to the standard log package.
	Logger Logger
}

// Worker periodically deletes expired sessions. Expired sessions are
// already invisible to lookups, so the sweep is about reclaiming
// storage, not correctness.
type Worker struct {
	sessions store.Sessions
	interval time.Duration
	timeout  time.Duration
	logger   Logger
	done     chan struct{}
	wg       sync.WaitGroup

	mu              sync.RWMutex
	lastRun         time.Time
	sessionsDeleted int64
	errors          int64
}

// NewWorker creates a new cleanup worker.
func NewWorker(cfg *Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = &defaultLogger{}
	}

	return &Worker{
		sessions: cfg.Sessions,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}
}

// Start begins the cleanup worker.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop gracefully stops the cleanup worker.
func (w *Worker) Stop() {
	close(w.done)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()

	// Run immediately on start
	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *Worker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	deleted, err := w.sessions.DeleteExpiredSessions(ctx)

	w.mu.Lock()
	w.lastRun = time.Now()
	if err != nil {
		w.errors++
	}
	w.sessionsDeleted += deleted
	w.mu.Unlock()

	if err != nil {
		w.logger.Printf("error sweeping expired sessions: %v", err)
		return
	}
	if deleted > 0 {
		w.logger.Printf("deleted %d expired sessions", deleted)
	}
}

// RunNow triggers an immediate sweep.
func (w *Worker) RunNow() {
	w.sweep()
}

// Stats holds cleanup counters.
type Stats struct {
	LastRun         time.Time
	SessionsDeleted int64
	Errors          int64
}

// Stats returns the current cleanup statistics.
func (w *Worker) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return Stats{
		LastRun:         w.lastRun,
		SessionsDeleted: w.sessionsDeleted,
		Errors:          w.errors,
	}
}
