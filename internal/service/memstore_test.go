package service

import (
	"context"
	"sync"

	"github.com/achrefelouafi/evently-booking/internal/model"
	"github.com/achrefelouafi/evently-booking/internal/repository"
)

// memStore is an in-memory repository.Store. Transactions buffer their
// writes and apply them on commit, so a failed callback leaves no trace.
// It takes no row locks: serialisation is the service's job.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*model.User // by client name
	stands       map[string]*model.Stand
	reservations []model.Reservation
	ops          []string
	fail         map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:  map[string]*model.User{},
		stands: map[string]*model.Stand{},
		fail:   map[string]error{},
	}
}

func (m *memStore) addUser(code, name string, reserved bool) {
	m.users[name] = &model.User{ID: uint64(len(m.users) + 1), ClientCode: code, ClientName: name, HasReserved: reserved}
}

func (m *memStore) addStand(name string, reserved bool) {
	m.stands[name] = &model.Stand{ID: uint64(len(m.stands) + 1), Name: name, IsReserved: reserved}
}

// step records op and returns the injected failure for it, if any.
// Callers must hold m.mu.
func (m *memStore) step(op string) error {
	m.ops = append(m.ops, op)
	return m.fail[op]
}

func (m *memStore) opsSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *memStore) reservationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reservations)
}

func (m *memStore) FindUserByCode(ctx context.Context, code string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.step("FindUserByCode"); err != nil {
		return model.User{}, err
	}
	for _, u := range m.users {
		if u.ClientCode == code {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memStore) ListStands(ctx context.Context) ([]model.Stand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.step("ListStands"); err != nil {
		return nil, err
	}
	out := []model.Stand{}
	for _, s := range m.stands {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx := &memTx{store: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.step("Commit"); err != nil {
		return err
	}
	for _, apply := range tx.pending {
		apply()
	}
	return nil
}

type memTx struct {
	store   *memStore
	pending []func()
}

func (t *memTx) FindUserByName(ctx context.Context, name string) (model.User, error) {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.step("FindUserByName"); err != nil {
		return model.User{}, err
	}
	u, ok := m.users[name]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (t *memTx) FindStandByName(ctx context.Context, name string) (model.Stand, error) {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.step("FindStandByName"); err != nil {
		return model.Stand{}, err
	}
	s, ok := m.stands[name]
	if !ok {
		return model.Stand{}, repository.ErrNotFound
	}
	return *s, nil
}

func (t *memTx) SetStandReserved(ctx context.Context, standID uint64) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.step("SetStandReserved"); err != nil {
		return err
	}
	t.pending = append(t.pending, func() {
		for _, s := range m.stands {
			if s.ID == standID {
				s.IsReserved = true
			}
		}
	})
	return nil
}

func (t *memTx) SetUserReserved(ctx context.Context, userID uint64) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.step("SetUserReserved"); err != nil {
		return err
	}
	t.pending = append(t.pending, func() {
		for _, u := range m.users {
			if u.ID == userID {
				u.HasReserved = true
			}
		}
	})
	return nil
}

func (t *memTx) InsertReservation(ctx context.Context, clientName, standName string, standID uint64) error {
	m := t.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.step("InsertReservation"); err != nil {
		return err
	}
	t.pending = append(t.pending, func() {
		m.reservations = append(m.reservations, model.Reservation{
			ID:         uint64(len(m.reservations) + 1),
			ClientName: clientName,
			StandName:  standName,
			StandID:    standID,
		})
	})
	return nil
}
