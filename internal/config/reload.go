package config

import (
	"context"
	"errors"
	"os"
	"time"

	"gembiz2api/gateway/internal/account"
	"gembiz2api/gateway/internal/logger"
)

// ErrReloaderStopped reports a forced reload requested after the watcher
// shut down.
var ErrReloaderStopped = errors.New("config reloader stopped")

// Applier is the pool's apply entry point; the reloader never mutates
// account records directly.
type Applier interface {
	Apply(defs []account.Definition, settings account.Settings) (account.ApplyResult, error)
	WarnExpiring() []string
}

// Reloader polls the accounts file for modification-time changes and
// applies the new candidate set atomically. A rejected file leaves the
// live pool exactly as it was.
type Reloader struct {
	path     string
	pool     Applier
	interval time.Duration

	lastMod time.Time
	trigger chan chan error
	stopped chan struct{}
}

func NewReloader(path string, pool Applier, interval time.Duration) *Reloader {
	return &Reloader{
		path:     path,
		pool:     pool,
		interval: interval,
		trigger:  make(chan chan error),
		stopped:  make(chan struct{}),
	}
}

// Start watches for file changes until ctx is cancelled. Call it in its
// own goroutine.
func (r *Reloader) Start(ctx context.Context) {
	defer close(r.stopped)

	if st, err := os.Stat(r.path); err == nil {
		r.lastMod = st.ModTime()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Info("watching %s for changes every %s", r.path, r.interval)

	for {
		select {
		case <-ctx.Done():
			return
		case done := <-r.trigger:
			done <- r.reload()
		case <-ticker.C:
			st, err := os.Stat(r.path)
			if err != nil {
				logger.Warn("accounts file unreadable: %v", err)
				continue
			}
			if st.ModTime().Equal(r.lastMod) {
				continue
			}
			r.lastMod = st.ModTime()
			if err := r.reload(); err != nil {
				logger.Error("reload rejected, keeping previous configuration: %v", err)
			}
		}
	}
}

// ReloadNow forces a reload regardless of the file's modification time and
// returns that reload's result. Used by the admin API and the SIGHUP
// handler; concurrent callers queue and each gets its own result.
func (r *Reloader) ReloadNow() error {
	done := make(chan error, 1)
	select {
	case r.trigger <- done:
	case <-r.stopped:
		return ErrReloaderStopped
	}
	select {
	case err := <-done:
		return err
	case <-r.stopped:
		return ErrReloaderStopped
	}
}

func (r *Reloader) reload() error {
	defs, settings, err := LoadAccounts(r.path)
	if err != nil {
		return err
	}
	if _, err := r.pool.Apply(defs, settings); err != nil {
		return err
	}
	r.pool.WarnExpiring()
	return nil
}
