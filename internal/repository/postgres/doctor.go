package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/model"
)

// All doctor repository methods here

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (
			id, clinic_id, name, avatar_image_url, specialty,
			available_from_weekday, available_to_weekday,
			available_from_time, available_to_time,
			appointment_price_in_cents, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	doctor.ID = uuid.New()
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.ClinicID,
		doctor.Name,
		doctor.AvatarImageURL,
		doctor.Specialty,
		doctor.AvailableFromWeekday,
		doctor.AvailableToWeekday,
		doctor.AvailableFromTime,
		doctor.AvailableToTime,
		doctor.AppointmentPriceCents,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create doctor: %w", translateError("doctor", err))
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT id, clinic_id, name, avatar_image_url, specialty,
			   available_from_weekday, available_to_weekday,
			   available_from_time, available_to_time,
			   appointment_price_in_cents, created_at, updated_at
		FROM doctors
		WHERE id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if err != nil {
		return nil, translateError("doctor", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET name = $1, avatar_image_url = $2, specialty = $3,
			available_from_weekday = $4, available_to_weekday = $5,
			available_from_time = $6, available_to_time = $7,
			appointment_price_in_cents = $8, updated_at = $9
		WHERE id = $10
	`
	doctor.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		doctor.Name,
		doctor.AvatarImageURL,
		doctor.Specialty,
		doctor.AvailableFromWeekday,
		doctor.AvailableToWeekday,
		doctor.AvailableFromTime,
		doctor.AvailableToTime,
		doctor.AppointmentPriceCents,
		doctor.UpdatedAt,
		doctor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", translateError("doctor", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return translateError("doctor", errNoRows)
	}

	return nil
}

func (r *doctorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM doctors
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", translateError("doctor", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return translateError("doctor", errNoRows)
	}

	return nil
}

func (r *doctorRepository) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	query := `
		SELECT id, clinic_id, name, avatar_image_url, specialty,
			   available_from_weekday, available_to_weekday,
			   available_from_time, available_to_time,
			   appointment_price_in_cents, created_at, updated_at
		FROM doctors
		WHERE clinic_id = $1
		ORDER BY name ASC
	`
	var doctors []*model.Doctor
	err := r.db.SelectContext(ctx, &doctors, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", translateError("doctor", err))
	}
	return doctors, nil
}

func (r *doctorRepository) CountAppointments(ctx context.Context, doctorID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND status != 'cancelled'
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, doctorID)
	if err != nil {
		return 0, fmt.Errorf("failed to count doctor appointments: %w", translateError("appointment", err))
	}
	return count, nil
}
