package clinic

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/model"
	"github.com/medlane/clinic-scheduler/internal/repository"
	apperrors "github.com/medlane/clinic-scheduler/pkg/errors"
	"github.com/medlane/clinic-scheduler/pkg/logger"
)

type Service struct {
	repo   repository.ClinicRepository
	logger *logger.Logger
}

func NewService(repo repository.ClinicRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) CreateClinic(ctx context.Context, req *model.CreateClinicRequest) (*model.Clinic, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.BadRequest("clinic name is required", nil)
	}

	clinic := &model.Clinic{Name: name}
	if err := s.repo.Create(ctx, clinic); err != nil {
		return nil, err
	}

	s.logger.Info("clinic created", "clinic_id", clinic.ID.String())
	return clinic, nil
}

func (s *Service) GetClinic(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateClinic(ctx context.Context, id uuid.UUID, req *model.UpdateClinicRequest) (*model.Clinic, error) {
	clinic, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.BadRequest("clinic name is required", nil)
		}
		clinic.Name = name
	}

	if err := s.repo.Update(ctx, clinic); err != nil {
		return nil, err
	}
	return clinic, nil
}

// DeleteClinic removes the tenant and everything it owns. The repository
// runs the cascade in a single transaction.
func (s *Service) DeleteClinic(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("clinic deleted with dependents", "clinic_id", id.String())
	return nil
}

func (s *Service) ListClinics(ctx context.Context) ([]*model.Clinic, error) {
	return s.repo.List(ctx)
}
