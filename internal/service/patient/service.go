package patient

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
	repo    repository.PatientRepository
	clinics repository.ClinicRepository
	logger  *logger.Logger
}

func NewService(repo repository.PatientRepository, clinics repository.ClinicRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, clinics: clinics, logger: logger}
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if _, err := s.clinics.Get(ctx, req.ClinicID); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.checkEmailUnique(ctx, email, uuid.Nil); err != nil {
		return nil, err
	}

	patient := &model.Patient{
		ClinicID:    req.ClinicID,
		Name:        req.Name,
		Email:       email,
		PhoneNumber: req.PhoneNumber,
		Sex:         req.Sex,
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}

	s.logger.Info("patient created", "patient_id", patient.ID.String(), "clinic_id", patient.ClinicID.String())
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := s.checkEmailUnique(ctx, email, id); err != nil {
			return nil, err
		}
		patient.Email = email
	}
	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.PhoneNumber != nil {
		patient.PhoneNumber = *req.PhoneNumber
	}
	if req.Sex != nil {
		patient.Sex = *req.Sex
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// DeletePatient refuses to remove a patient who still has non-cancelled
// appointments.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	count, err := s.repo.CountAppointments(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.BadRequest("patient has active appointments", nil)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, clinicID uuid.UUID) ([]*model.Patient, error) {
	return s.repo.List(ctx, clinicID)
}

// checkEmailUnique enforces global email uniqueness across all clinics.
// The database unique index is the backstop for races; this check exists
// to surface a friendly error before the write.
func (s *Service) checkEmailUnique(ctx context.Context, email string, selfID uuid.UUID) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return apperrors.ConstraintViolation("a patient with this email already exists", nil)
	}
	return nil
}
