package doctor

import (
	"context"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/model"
	"github.com/medlane/clinic-scheduler/internal/repository"
	apperrors "github.com/medlane/clinic-scheduler/pkg/errors"
	"github.com/medlane/clinic-scheduler/pkg/logger"
)

type Service struct {
	repo    repository.DoctorRepository
	clinics repository.ClinicRepository
	logger  *logger.Logger
}

func NewService(repo repository.DoctorRepository, clinics repository.ClinicRepository, logger *logger.Logger) *Service {
	return &Service{repo: repo, clinics: clinics, logger: logger}
}

func (s *Service) CreateDoctor(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	if _, err := s.clinics.Get(ctx, req.ClinicID); err != nil {
		return nil, err
	}

	doctor := &model.Doctor{
		ClinicID:              req.ClinicID,
		Name:                  req.Name,
		AvatarImageURL:        req.AvatarImageURL,
		Specialty:             req.Specialty,
		AvailableFromWeekday:  req.AvailableFromWeekday,
		AvailableToWeekday:    req.AvailableToWeekday,
		AvailableFromTime:     req.AvailableFromTime,
		AvailableToTime:       req.AvailableToTime,
		AppointmentPriceCents: req.AppointmentPriceCents,
	}
	if err := s.validateDoctor(doctor); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, err
	}

	s.logger.Info("doctor created", "doctor_id", doctor.ID.String(), "clinic_id", doctor.ClinicID.String())
	return doctor, nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, req *model.UpdateDoctorRequest) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		doctor.Name = *req.Name
	}
	if req.AvatarImageURL != nil {
		doctor.AvatarImageURL = *req.AvatarImageURL
	}
	if req.Specialty != nil {
		doctor.Specialty = *req.Specialty
	}
	if req.AvailableFromWeekday != nil {
		doctor.AvailableFromWeekday = *req.AvailableFromWeekday
	}
	if req.AvailableToWeekday != nil {
		doctor.AvailableToWeekday = *req.AvailableToWeekday
	}
	if req.AvailableFromTime != nil {
		doctor.AvailableFromTime = *req.AvailableFromTime
	}
	if req.AvailableToTime != nil {
		doctor.AvailableToTime = *req.AvailableToTime
	}
	if req.AppointmentPriceCents != nil {
		doctor.AppointmentPriceCents = *req.AppointmentPriceCents
	}

	if err := s.validateDoctor(doctor); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

// DeleteDoctor refuses to remove a doctor who still has non-cancelled
// appointments.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	count, err := s.repo.CountAppointments(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.BadRequest("doctor has active appointments", nil)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	return s.repo.List(ctx, clinicID)
}

func (s *Service) validateDoctor(doctor *model.Doctor) error {
	if doctor.AvailableFromWeekday < model.WeekdayMin || doctor.AvailableFromWeekday > model.WeekdayMax ||
		doctor.AvailableToWeekday < model.WeekdayMin || doctor.AvailableToWeekday > model.WeekdayMax {
		return apperrors.BadRequest("availability weekdays must be between 1 (Monday) and 7 (Sunday)", nil)
	}

	from, err := model.ParseClockTime(doctor.AvailableFromTime)
	if err != nil {
		return apperrors.BadRequest("invalid availability start time", err)
	}
	to, err := model.ParseClockTime(doctor.AvailableToTime)
	if err != nil {
		return apperrors.BadRequest("invalid availability end time", err)
	}
	if from >= to {
		return apperrors.BadRequest("availability start time must be before end time", nil)
	}

	if doctor.AppointmentPriceCents < 0 {
		return apperrors.BadRequest("appointment price cannot be negative", nil)
	}
	return nil
}
