// Package runlock guarantees at most one ETL run at a time, inside one
// process and across processes sharing a lock file.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("runlock")

// ErrBusy means another run holds the lock.
var ErrBusy = errors.New("another run is in progress")

type Lock struct {
	mu         sync.Mutex
	held       atomic.Bool
	path       string
	staleAfter time.Duration
	now        func() time.Time
}

// New returns a lock backed by path. An empty path only locks within the process.
// A lock file older than staleAfter is considered abandoned and taken over.
func New(path string, staleAfter time.Duration) *Lock {
	return &Lock{path: path, staleAfter: staleAfter, now: time.Now}
}

// TryAcquire takes the lock without waiting. The returned func releases it.
func (l *Lock) TryAcquire() (func(), error) {
	if !l.mu.TryLock() {
		return nil, ErrBusy
	}
	if l.path != "" {
		if err := l.createFile(); err != nil {
			l.mu.Unlock()
			return nil, err
		}
	}
	l.held.Store(true)

	var once sync.Once
	return func() {
		once.Do(func() {
			if l.path != "" {
				if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
					log.Warningf("failed to remove lock file %s: %v", l.path, err)
				}
			}
			l.held.Store(false)
			l.mu.Unlock()
		})
	}, nil
}

func (l *Lock) createFile() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d %s\n", os.Getpid(), l.now().Format(time.RFC3339))
			return f.Close()
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("failed to create lock file: %w", err)
		}
		if !l.stale(l.path) {
			return ErrBusy
		}
		log.Warningf("taking over stale lock file %s", l.path)
		if err := l.takeOver(); err != nil {
			return err
		}
	}
	return ErrBusy
}

// takeOver moves a stale lock file aside before removing it, so a run that
// took it over first keeps its fresh lock.
func (l *Lock) takeOver() error {
	aside := fmt.Sprintf("%s.stale-%d-%d", l.path, os.Getpid(), l.now().UnixNano())
	if err := os.Rename(l.path, aside); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to move stale lock file: %w", err)
	}

	if !l.stale(aside) {
		// the file moved aside is a fresh lock from another run
		if err := os.Link(aside, l.path); err != nil && !errors.Is(err, os.ErrExist) {
			log.Warningf("failed to restore lock file %s: %v", l.path, err)
		}
		if err := os.Remove(aside); err != nil {
			log.Warningf("failed to remove %s: %v", aside, err)
		}
		return ErrBusy
	}

	if err := os.Remove(aside); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warningf("failed to remove stale lock file %s: %v", aside, err)
	}
	return nil
}

func (l *Lock) stale(path string) bool {
	if l.staleAfter <= 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Is(err, os.ErrNotExist)
	}
	return l.now().Sub(info.ModTime()) > l.staleAfter
}

// Held reports whether a run currently holds the lock in this process.
func (l *Lock) Held() bool {
	return l.held.Load()
}

// Owner returns the pid recorded in the lock file, or 0.
func (l *Lock) Owner() int {
	if l.path == "" {
		return 0
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return pid
}
