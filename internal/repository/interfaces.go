package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/model"
)

// All repository interfaces in one file
type (
	ClinicRepository interface {
		Create(ctx context.Context, clinic *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		Update(ctx context.Context, clinic *model.Clinic) error
		// Delete removes the clinic and all of its dependents (doctors,
		// patients, appointments, memberships) in one transaction.
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Clinic, error)
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error)
		CountAppointments(ctx context.Context, doctorID uuid.UUID) (int, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, clinicID uuid.UUID) ([]*model.Patient, error)
		FindByEmail(ctx context.Context, email string) (*model.Patient, error)
		CountAppointments(ctx context.Context, patientID uuid.UUID) (int, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		// Update applies optimistic concurrency on updated_at and returns
		// ErrConflict when the row changed underneath the caller.
		Update(ctx context.Context, appointment *model.Appointment) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// ListForDoctor returns the doctor's confirmed appointments inside
		// [from, to], ascending by start time.
		ListForDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error)
		// CheckConflicts is the commit-time guard against races the
		// in-process lock cannot see (multi-instance deployments).
		CheckConflicts(ctx context.Context, doctorID uuid.UUID, startTime, endTime time.Time, excludeID *uuid.UUID) (bool, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		IsMember(ctx context.Context, userID, clinicID uuid.UUID) (bool, error)
		AddMembership(ctx context.Context, userID, clinicID uuid.UUID) error
		RemoveMembership(ctx context.Context, userID, clinicID uuid.UUID) error
		ListClinics(ctx context.Context, userID uuid.UUID) ([]*model.Clinic, error)
	}
)
