package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/achrefelouafi/evently-booking/internal/repository"
)

// Session is the identity behind a valid client code.
type Session struct {
	ClientName  string
	HasReserved bool
}

// SessionService validates client codes. It never writes.
type SessionService struct {
	store repository.Store
	log   *zap.Logger
}

func NewSessionService(store repository.Store, log *zap.Logger) *SessionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionService{store: store, log: log}
}

// Login resolves clientCode to a Session. An empty code fails with
// ErrMissingInput before the store is touched; an unknown code fails with
// ErrInvalidCode.
func (s *SessionService) Login(ctx context.Context, clientCode string) (Session, error) {
	if clientCode == "" {
		return Session{}, ErrMissingInput
	}
	u, err := s.store.FindUserByCode(ctx, clientCode)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCode
	}
	if err != nil {
		s.log.Error("login lookup failed", zap.Error(err))
		return Session{}, unavailable("find user by code", err)
	}
	return Session{ClientName: u.ClientName, HasReserved: u.HasReserved}, nil
}
