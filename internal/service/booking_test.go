package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achrefelouafi/evently-booking/internal/lock"
	"github.com/achrefelouafi/evently-booking/internal/queue"
	"github.com/achrefelouafi/evently-booking/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
	err    error
}

func (p *recordingPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type countingCache struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

type failingLocker struct{ err error }

func (f failingLocker) Lock(ctx context.Context, keys ...string) (func(), error) { return nil, f.err }

func seededStore() *memStore {
	m := newMemStore()
	m.addUser("ABC123", "Alice", false)
	m.addUser("XYZ789", "Bob", false)
	m.addStand("Booth-1", false)
	m.addStand("Booth-2", false)
	return m
}

func TestBookSuccessThenAlreadyReserved(t *testing.T) {
	store := seededStore()
	svc := NewBookingService(store, lock.NewLocal(), nil)

	b, err := svc.Book(context.Background(), "Booth-1", "Alice")
	require.NoError(t, err)
	assert.Equal(t, Booking{StandName: "Booth-1", ClientName: "Alice"}, b)

	assert.True(t, store.stands["Booth-1"].IsReserved)
	assert.True(t, store.users["Alice"].HasReserved)
	require.Equal(t, 1, store.reservationCount())
	r := store.reservations[0]
	assert.Equal(t, "Alice", r.ClientName)
	assert.Equal(t, "Booth-1", r.StandName)
	assert.Equal(t, store.stands["Booth-1"].ID, r.StandID)

	_, err = svc.Book(context.Background(), "Booth-1", "Alice")
	assert.ErrorIs(t, err, ErrAlreadyReserved)
	assert.Equal(t, 1, store.reservationCount(), "a rejected booking never adds a reservation")
}

func TestBookStandTakenByAnotherUser(t *testing.T) {
	store := seededStore()
	svc := NewBookingService(store, lock.NewLocal(), nil)

	_, err := svc.Book(context.Background(), "Booth-1", "Alice")
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), "Booth-1", "Bob")
	assert.ErrorIs(t, err, ErrStandTaken)
	assert.False(t, store.users["Bob"].HasReserved)
	assert.Equal(t, 1, store.reservationCount())
}

func TestBookCheckOrder(t *testing.T) {
	tests := []struct {
		name    string
		seed    func(*memStore)
		stand   string
		client  string
		wantErr error
		wantOps []string
	}{
		{
			name:    "missing stand name",
			stand:   "",
			client:  "Alice",
			wantErr: ErrMissingInput,
		},
		{
			name:    "missing client name",
			stand:   "Booth-1",
			client:  "",
			wantErr: ErrMissingInput,
		},
		{
			name:    "unknown user is reported before unknown stand",
			stand:   "Unknown-Booth",
			client:  "Mallory",
			wantErr: ErrUserNotFound,
			wantOps: []string{"FindUserByName"},
		},
		{
			name:    "user already reserved is reported before stand lookup",
			seed:    func(m *memStore) { m.users["Alice"].HasReserved = true },
			stand:   "Unknown-Booth",
			client:  "Alice",
			wantErr: ErrAlreadyReserved,
			wantOps: []string{"FindUserByName"},
		},
		{
			name:    "unknown stand",
			stand:   "Unknown-Booth",
			client:  "Alice",
			wantErr: ErrStandNotFound,
			wantOps: []string{"FindUserByName", "FindStandByName"},
		},
		{
			name:    "stand taken",
			seed:    func(m *memStore) { m.stands["Booth-1"].IsReserved = true },
			stand:   "Booth-1",
			client:  "Alice",
			wantErr: ErrStandTaken,
			wantOps: []string{"FindUserByName", "FindStandByName"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			if tt.seed != nil {
				tt.seed(store)
			}
			svc := NewBookingService(store, lock.NewLocal(), nil)

			_, err := svc.Book(context.Background(), tt.stand, tt.client)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantOps, store.opsSnapshot(), "no writes happen on rejection")
			assert.Zero(t, store.reservationCount())
		})
	}
}

func TestBookWriteOrder(t *testing.T) {
	store := seededStore()
	svc := NewBookingService(store, lock.NewLocal(), nil)

	_, err := svc.Book(context.Background(), "Booth-2", "Bob")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"FindUserByName",
		"FindStandByName",
		"SetStandReserved",
		"SetUserReserved",
		"InsertReservation",
		"Commit",
	}, store.opsSnapshot())
}

func TestBookStoreUnavailable(t *testing.T) {
	for _, op := range []string{"FindUserByName", "FindStandByName", "SetStandReserved", "SetUserReserved", "InsertReservation", "Commit"} {
		t.Run(op, func(t *testing.T) {
			store := seededStore()
			store.fail[op] = context.DeadlineExceeded
			svc := NewBookingService(store, lock.NewLocal(), nil)

			_, err := svc.Book(context.Background(), "Booth-1", "Alice")
			assert.ErrorIs(t, err, ErrStoreUnavailable)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Equal(t, KindInternal, KindOf(err))

			assert.False(t, store.stands["Booth-1"].IsReserved, "no partial writes survive")
			assert.False(t, store.users["Alice"].HasReserved)
			assert.Zero(t, store.reservationCount())
		})
	}
}

func TestBookConflictingWrites(t *testing.T) {
	tests := []struct {
		op      string
		err     error
		wantErr error
	}{
		{"SetStandReserved", repository.ErrConflict, ErrStandTaken},
		{"SetUserReserved", repository.ErrConflict, ErrAlreadyReserved},
		{"InsertReservation", repository.ErrDuplicate, ErrStandTaken},
		{"InsertReservation", repository.ErrDuplicateStand, ErrStandTaken},
		{"InsertReservation", repository.ErrDuplicateClient, ErrAlreadyReserved},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			store := seededStore()
			store.fail[tt.op] = tt.err
			svc := NewBookingService(store, lock.NewLocal(), nil)

			_, err := svc.Book(context.Background(), "Booth-1", "Alice")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, ErrStoreUnavailable)
		})
	}
}

func TestBookLockFailure(t *testing.T) {
	store := seededStore()
	svc := NewBookingService(store, failingLocker{err: lock.ErrLockUnavailable}, nil)

	_, err := svc.Book(context.Background(), "Booth-1", "Alice")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, store.opsSnapshot())
}

func TestBookConcurrentSameStand(t *testing.T) {
	const n = 32
	store := newMemStore()
	store.addStand("Booth-1", false)
	for i := 0; i < n; i++ {
		store.addUser(fmt.Sprintf("code-%d", i), fmt.Sprintf("client-%d", i), false)
	}
	svc := NewBookingService(store, lock.NewLocal(), nil)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), "Booth-1", fmt.Sprintf("client-%d", i))
		}(i)
	}
	wg.Wait()

	var ok, taken int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrStandTaken):
			taken++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, taken)
	assert.Equal(t, 1, store.reservationCount())

	reserved := 0
	for _, u := range store.users {
		if u.HasReserved {
			reserved++
		}
	}
	assert.Equal(t, 1, reserved)
}

func TestBookConcurrentSameUser(t *testing.T) {
	const n = 16
	store := newMemStore()
	store.addUser("ABC123", "Alice", false)
	for i := 0; i < n; i++ {
		store.addStand(fmt.Sprintf("Booth-%d", i), false)
	}
	svc := NewBookingService(store, lock.NewLocal(), nil)

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), fmt.Sprintf("Booth-%d", i), "Alice")
		}(i)
	}
	wg.Wait()

	var ok, already int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrAlreadyReserved):
			already++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, already)
	assert.Equal(t, 1, store.reservationCount())
}

func TestBookConcurrentDisjoint(t *testing.T) {
	store := seededStore()
	svc := NewBookingService(store, lock.NewLocal(), nil)

	var wg sync.WaitGroup
	var errAlice, errBob error
	wg.Add(2)
	go func() { defer wg.Done(); _, errAlice = svc.Book(context.Background(), "Booth-1", "Alice") }()
	go func() { defer wg.Done(); _, errBob = svc.Book(context.Background(), "Booth-2", "Bob") }()
	wg.Wait()

	require.NoError(t, errAlice)
	require.NoError(t, errBob)
	assert.Equal(t, 2, store.reservationCount())
	assert.True(t, store.stands["Booth-1"].IsReserved)
	assert.True(t, store.stands["Booth-2"].IsReserved)
}

func TestBookSideEffects(t *testing.T) {
	t.Run("event and invalidation after commit", func(t *testing.T) {
		store := seededStore()
		pub := &recordingPublisher{}
		cache := &countingCache{}
		svc := NewBookingService(store, lock.NewLocal(), nil, WithEvents(pub), WithCacheInvalidator(cache))
		svc.now = func() time.Time { return time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC) }

		_, err := svc.Book(context.Background(), "Booth-1", "Alice")
		require.NoError(t, err)

		require.Len(t, pub.events, 1)
		ev := pub.events[0]
		assert.NotEmpty(t, ev.EventID)
		assert.Equal(t, "Alice", ev.ClientName)
		assert.Equal(t, "Booth-1", ev.StandName)
		assert.Equal(t, store.stands["Booth-1"].ID, ev.StandID)
		assert.Equal(t, "2026-10-19T10:00:00Z", ev.ConfirmedAt)
		assert.Equal(t, 1, cache.calls)
	})

	t.Run("failures do not fail the booking", func(t *testing.T) {
		store := seededStore()
		pub := &recordingPublisher{err: errors.New("broker down")}
		cache := &countingCache{err: errors.New("redis down")}
		svc := NewBookingService(store, lock.NewLocal(), nil, WithEvents(pub), WithCacheInvalidator(cache))

		_, err := svc.Book(context.Background(), "Booth-1", "Alice")
		require.NoError(t, err)
		assert.Equal(t, 1, store.reservationCount())
	})

	t.Run("nothing happens on rejection", func(t *testing.T) {
		store := seededStore()
		pub := &recordingPublisher{}
		cache := &countingCache{}
		svc := NewBookingService(store, lock.NewLocal(), nil, WithEvents(pub), WithCacheInvalidator(cache))

		_, err := svc.Book(context.Background(), "Unknown-Booth", "Alice")
		require.ErrorIs(t, err, ErrStandNotFound)
		assert.Empty(t, pub.events)
		assert.Zero(t, cache.calls)
	})
}

func TestListStands(t *testing.T) {
	store := seededStore()
	svc := NewBookingService(store, nil, nil)

	stands, err := svc.ListStands(context.Background())
	require.NoError(t, err)
	assert.Len(t, stands, 2)

	store.fail["ListStands"] = errors.New("connection refused")
	_, err = svc.ListStands(context.Background())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(ErrMissingInput))
	assert.Equal(t, KindNotFound, KindOf(ErrUserNotFound))
	assert.Equal(t, KindNotFound, KindOf(ErrStandNotFound))
	assert.Equal(t, KindConflict, KindOf(ErrAlreadyReserved))
	assert.Equal(t, KindConflict, KindOf(ErrStandTaken))
	assert.Equal(t, KindAuth, KindOf(ErrInvalidCode))
	assert.Equal(t, KindInternal, KindOf(unavailable("op", errors.New("boom"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("wrapped: %w", ErrStandTaken)))
}

// lockCheckingPublisher tries to take the booking's own keys while
// publishing.
type lockCheckingPublisher struct {
	locks lock.Locker
	keys  []string
	err   error
}

func (p *lockCheckingPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	lctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	unlock, err := p.locks.Lock(lctx, p.keys...)
	p.err = err
	if err == nil {
		unlock()
	}
	return nil
}

func TestBookReleasesLocksBeforeSideEffects(t *testing.T) {
	store := seededStore()
	locks := lock.NewLocal()
	pub := &lockCheckingPublisher{locks: locks, keys: []string{"user:Alice", "stand:Booth-1"}}
	svc := NewBookingService(store, locks, nil, WithEvents(pub))

	_, err := svc.Book(context.Background(), "Booth-1", "Alice")
	require.NoError(t, err)
	assert.NoError(t, pub.err, "booking keys are free while events are published")
}

func TestBookInsertDuplicateClient(t *testing.T) {
	store := seededStore()
	store.fail["InsertReservation"] = repository.ErrDuplicateClient
	svc := NewBookingService(store, lock.NewLocal(), nil)

	_, err := svc.Book(context.Background(), "Booth-1", "Alice")
	assert.ErrorIs(t, err, ErrAlreadyReserved)
	assert.Zero(t, store.reservationCount())
}
