package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/repository"
	apperrors "github.com/medlane/clinic-scheduler/pkg/errors"
)

// Gate resolves whether a user may act on a clinic's resources through the
// user-to-clinic membership relation. Lookups go straight to the store on
// every call so a membership change is visible by the next request.
type Gate interface {
	Authorize(ctx context.Context, userID, clinicID uuid.UUID) error
}

type Service struct {
	users repository.UserRepository
}

func NewService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

func (s *Service) Authorize(ctx context.Context, userID, clinicID uuid.UUID) error {
	if userID == uuid.Nil || clinicID == uuid.Nil {
		return apperrors.Unauthorized(nil)
	}

	isMember, err := s.users.IsMember(ctx, userID, clinicID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperrors.Unauthorized(nil)
	}
	return nil
}
