package database

import (
	"context"
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle position of a Lazy connection.
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("database: connection closed")

// OpenFunc establishes a new connection pool.
type OpenFunc func(ctx context.Context) (*sqlx.DB, error)

// Lazy holds the process-wide connection pool. The first Get opens it;
// concurrent first callers share a single open attempt. A failed attempt
// leaves the state uninitialized so that a later call can retry.
type Lazy struct {
	open  OpenFunc
	group singleflight.Group

	mu    sync.RWMutex
	db    *sqlx.DB
	state State
}

// NewLazy returns a Lazy that uses open on first use.
func NewLazy(open OpenFunc) *Lazy {
	return &Lazy{open: open}
}

// Get returns the shared pool, connecting it if necessary.
func (l *Lazy) Get(ctx context.Context) (*sqlx.DB, error) {
	l.mu.RLock()
	db, state := l.db, l.state
	l.mu.RUnlock()
	switch state {
	case StateReady:
		return db, nil
	case StateClosed:
		return nil, ErrClosed
	}

	ch := l.group.DoChan("connect", func() (interface{}, error) {
		l.mu.Lock()
		switch l.state {
		case StateReady:
			db := l.db
			l.mu.Unlock()
			return db, nil
		case StateClosed:
			l.mu.Unlock()
			return nil, ErrClosed
		}
		l.state = StateConnecting
		l.mu.Unlock()

		// The winning caller's deadline must not cancel the attempt for
		// everyone waiting on it.
		db, err := l.open(context.WithoutCancel(ctx))

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.state = StateUninitialized
			return nil, err
		}
		if l.state == StateClosed {
			_ = db.Close()
			return nil, ErrClosed
		}
		l.db = db
		l.state = StateReady
		return db, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sqlx.DB), nil
	}
}

// State reports the current lifecycle state.
func (l *Lazy) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Close tears the pool down. It is safe to call more than once.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	db := l.db
	l.db = nil
	l.state = StateClosed
	if db != nil {
		return db.Close()
	}
	return nil
}
