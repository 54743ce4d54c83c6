package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/achrefelouafi/evently-booking/internal/lock"
	"github.com/achrefelouafi/evently-booking/internal/model"
	"github.com/achrefelouafi/evently-booking/internal/queue"
	"github.com/achrefelouafi/evently-booking/internal/repository"
)

// sideEffectTimeout bounds post-commit work so a slow broker or cache
// cannot hold a confirmed booking's response.
const sideEffectTimeout = 2 * time.Second

// Booking is the result of a successful reservation.
type Booking struct {
	StandName  string
	ClientName string
}

// EventPublisher receives an event for every committed booking.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, event queue.BookingConfirmedEvent) error
}

// CacheInvalidator drops cached stand listings.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// BookingService reserves stands. Each attempt holds exclusive locks on
// its user and stand keys and runs its reads and writes in one store
// transaction, so concurrent attempts on the same user or stand are
// serialised while unrelated ones proceed in parallel.
type BookingService struct {
	store  repository.Store
	locks  lock.Locker
	events EventPublisher
	cache  CacheInvalidator
	log    *zap.Logger
	now    func() time.Time
}

// BookingOption customises a BookingService.
type BookingOption func(*BookingService)

// WithEvents publishes a booking.confirmed event after each commit.
func WithEvents(p EventPublisher) BookingOption {
	return func(s *BookingService) { s.events = p }
}

// WithCacheInvalidator clears the stand listing cache after each commit.
func WithCacheInvalidator(c CacheInvalidator) BookingOption {
	return func(s *BookingService) { s.cache = c }
}

func NewBookingService(store repository.Store, locks lock.Locker, log *zap.Logger, opts ...BookingOption) *BookingService {
	if locks == nil {
		locks = lock.NewLocal()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &BookingService{store: store, locks: locks, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book reserves standName for clientName. Checks run in a fixed order
// (input, user, user's reservation, stand, stand's reservation) and no
// write happens unless all of them pass.
func (s *BookingService) Book(ctx context.Context, standName, clientName string) (Booking, error) {
	if standName == "" || clientName == "" {
		return Booking{}, ErrMissingInput
	}

	unlock, err := s.locks.Lock(ctx, "user:"+clientName, "stand:"+standName)
	if err != nil {
		s.log.Error("booking lock failed", zap.String("stand", standName), zap.String("client", clientName), zap.Error(err))
		return Booking{}, unavailable("acquire booking lock", err)
	}
	defer unlock()

	var stand model.Stand
	err = s.store.InTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		user, err := tx.FindUserByName(ctx, clientName)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return unavailable("find user", err)
		}
		if user.HasReserved {
			return ErrAlreadyReserved
		}

		stand, err = tx.FindStandByName(ctx, standName)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrStandNotFound
		}
		if err != nil {
			return unavailable("find stand", err)
		}
		if stand.IsReserved {
			return ErrStandTaken
		}

		if err := tx.SetStandReserved(ctx, stand.ID); err != nil {
			return writeErr("reserve stand", err, ErrStandTaken)
		}
		if err := tx.SetUserReserved(ctx, user.ID); err != nil {
			return writeErr("reserve user", err, ErrAlreadyReserved)
		}
		if err := tx.InsertReservation(ctx, user.ClientName, stand.Name, stand.ID); err != nil {
			if errors.Is(err, repository.ErrDuplicateClient) {
				return ErrAlreadyReserved
			}
			return writeErr("insert reservation", err, ErrStandTaken)
		}
		return nil
	})
	// Side effects run without the locks.
	unlock()
	if err != nil {
		if !settled(err) {
			err = unavailable("commit booking", err)
		}
		if errors.Is(err, ErrStoreUnavailable) {
			s.log.Error("booking failed", zap.String("stand", standName), zap.String("client", clientName), zap.Error(err))
		}
		return Booking{}, err
	}

	s.log.Info("stand booked", zap.String("stand", stand.Name), zap.String("client", clientName), zap.Uint64("stand_id", stand.ID))
	s.afterCommit(ctx, clientName, stand)
	return Booking{StandName: standName, ClientName: clientName}, nil
}

// writeErr maps a failed write. A conditional update or unique index that
// rejects the write means another booking won; anything else is a store
// failure.
func writeErr(op string, err, conflict error) error {
	if errors.Is(err, repository.ErrConflict) || errors.Is(err, repository.ErrDuplicate) {
		return conflict
	}
	return unavailable(op, err)
}

// afterCommit runs best-effort side effects. Failures are logged only:
// the reservation is already durable.
func (s *BookingService) afterCommit(ctx context.Context, clientName string, stand model.Stand) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.log.Warn("stand cache invalidation failed", zap.Error(err))
		}
	}
	if s.events != nil {
		ev := queue.BookingConfirmedEvent{
			EventID:     uuid.NewString(),
			ClientName:  clientName,
			StandName:   stand.Name,
			StandID:     stand.ID,
			ConfirmedAt: s.now().UTC().Format(time.RFC3339),
		}
		if err := s.events.PublishBookingConfirmed(ctx, ev); err != nil {
			s.log.Warn("booking event not published", zap.String("event_id", ev.EventID), zap.Error(err))
		}
	}
}

// ListStands returns every stand with its reservation flag.
func (s *BookingService) ListStands(ctx context.Context) ([]model.Stand, error) {
	stands, err := s.store.ListStands(ctx)
	if err != nil {
		s.log.Error("list stands failed", zap.Error(err))
		return nil, unavailable("list stands", err)
	}
	return stands, nil
}
