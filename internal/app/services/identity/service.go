// Package identity implements the anonymous identifier registry.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/greenpen-app/worry-service/internal/app/domain/user"
	"github.com/greenpen-app/worry-service/internal/app/storage"
	"github.com/greenpen-app/worry-service/pkg/logger"
)

// Service registers client-supplied anonymous identifiers exactly once.
type Service struct {
	users storage.UserStore
	log   *logger.Logger
}

// New constructs an identity service.
func New(users storage.UserStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("identity")
	}
	return &Service{users: users, log: log}
}

// EnsureRegistered inserts a zero-point, zero-level record for the identifier
// if none exists. The call is idempotent: an existing record, including one
// created by a concurrent registration racing this call, reports created=false
// without error.
func (s *Service) EnsureRegistered(ctx context.Context, anonID string) (bool, error) {
	anonID = strings.TrimSpace(anonID)
	if anonID == "" {
		return false, fmt.Errorf("anonId is required")
	}

	if _, err := s.users.GetUser(ctx, anonID); err == nil {
		return false, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	if _, err := s.users.CreateUser(ctx, user.User{AnonID: anonID}); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}

	s.log.WithField("anon_id", anonID).Info("anonymous user registered")
	return true, nil
}
