package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medlane/clinic-scheduler/internal/model"
)

// All clinic repository methods here

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (
			id, name, created_at, updated_at
		) VALUES ($1, $2, $3, $4)
	`
	clinic.ID = uuid.New()
	clinic.CreatedAt = time.Now()
	clinic.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		clinic.ID,
		clinic.Name,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinic: %w", translateError("clinic", err))
	}
	return nil
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM clinics
		WHERE id = $1
	`
	var clinic model.Clinic
	err := r.db.GetContext(ctx, &clinic, query, id)
	if err != nil {
		return nil, translateError("clinic", err)
	}
	return &clinic, nil
}

func (r *clinicRepository) Update(ctx context.Context, clinic *model.Clinic) error {
	query := `
		UPDATE clinics
		SET name = $1, updated_at = $2
		WHERE id = $3
	`
	clinic.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		clinic.Name,
		clinic.UpdatedAt,
		clinic.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update clinic: %w", translateError("clinic", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return translateError("clinic", errNoRows)
	}

	return nil
}

// Delete cascades to every dependent of the clinic inside one transaction,
// so a half-deleted tenant is never observable.
func (r *clinicRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		statements := []string{
			`DELETE FROM appointments WHERE clinic_id = $1`,
			`DELETE FROM doctors WHERE clinic_id = $1`,
			`DELETE FROM patients WHERE clinic_id = $1`,
			`DELETE FROM users_to_clinics WHERE clinic_id = $1`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("failed to cascade clinic delete: %w", translateError("clinic", err))
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM clinics WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete clinic: %w", translateError("clinic", err))
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return translateError("clinic", errNoRows)
		}
		return nil
	})
}

func (r *clinicRepository) List(ctx context.Context) ([]*model.Clinic, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM clinics
		ORDER BY created_at DESC
	`
	var clinics []*model.Clinic
	err := r.db.SelectContext(ctx, &clinics, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinics: %w", translateError("clinic", err))
	}
	return clinics, nil
}
