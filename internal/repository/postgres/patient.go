package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/model"
)

// All patient repository methods here

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, clinic_id, name, email, phone_number, sex,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	patient.ID = uuid.New()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.ClinicID,
		patient.Name,
		patient.Email,
		patient.PhoneNumber,
		patient.Sex,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", translateError("patient", err))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT id, clinic_id, name, email, phone_number, sex,
			   created_at, updated_at
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if err != nil {
		return nil, translateError("patient", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, email = $2, phone_number = $3, sex = $4, updated_at = $5
		WHERE id = $6
	`
	patient.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		patient.Name,
		patient.Email,
		patient.PhoneNumber,
		patient.Sex,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", translateError("patient", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return translateError("patient", errNoRows)
	}

	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM patients
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", translateError("patient", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return translateError("patient", errNoRows)
	}

	return nil
}

func (r *patientRepository) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Patient, error) {
	query := `
		SELECT id, clinic_id, name, email, phone_number, sex,
			   created_at, updated_at
		FROM patients
		WHERE clinic_id = $1
		ORDER BY name ASC
	`
	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", translateError("patient", err))
	}
	return patients, nil
}

// FindByEmail looks a patient up across all clinics; email uniqueness is
// global, not per tenant.
func (r *patientRepository) FindByEmail(ctx context.Context, email string) (*model.Patient, error) {
	query := `
		SELECT id, clinic_id, name, email, phone_number, sex,
			   created_at, updated_at
		FROM patients
		WHERE email = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, email)
	if err != nil {
		return nil, translateError("patient", err)
	}
	return &patient, nil
}

func (r *patientRepository) CountAppointments(ctx context.Context, patientID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE patient_id = $1 AND status != 'cancelled'
	`
	var count int
	err := r.db.GetContext(ctx, &count, query, patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count patient appointments: %w", translateError("appointment", err))
	}
	return count, nil
}
