package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/model"
)

// All user and membership repository methods here

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, created_at) VALUES ($1, $2)`
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query, user.ID, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translateError("user", err))
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT id, created_at FROM users WHERE id = $1`
	var user model.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		return nil, translateError("user", err)
	}
	return &user, nil
}

func (r *userRepository) IsMember(ctx context.Context, userID, clinicID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users_to_clinics
			WHERE user_id = $1 AND clinic_id = $2
		)
	`
	var isMember bool
	err := r.db.GetContext(ctx, &isMember, query, userID, clinicID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", translateError("membership", err))
	}
	return isMember, nil
}

func (r *userRepository) AddMembership(ctx context.Context, userID, clinicID uuid.UUID) error {
	query := `
		INSERT INTO users_to_clinics (user_id, clinic_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, clinic_id) DO NOTHING
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query, userID, clinicID, now, now)
	if err != nil {
		return fmt.Errorf("failed to add membership: %w", translateError("membership", err))
	}
	return nil
}

func (r *userRepository) RemoveMembership(ctx context.Context, userID, clinicID uuid.UUID) error {
	query := `DELETE FROM users_to_clinics WHERE user_id = $1 AND clinic_id = $2`
	_, err := r.db.ExecContext(ctx, query, userID, clinicID)
	if err != nil {
		return fmt.Errorf("failed to remove membership: %w", translateError("membership", err))
	}
	return nil
}

func (r *userRepository) ListClinics(ctx context.Context, userID uuid.UUID) ([]*model.Clinic, error) {
	query := `
		SELECT c.id, c.name, c.created_at, c.updated_at
		FROM clinics c
		JOIN users_to_clinics uc ON uc.clinic_id = c.id
		WHERE uc.user_id = $1
		ORDER BY c.name ASC
	`
	var clinics []*model.Clinic
	err := r.db.SelectContext(ctx, &clinics, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user clinics: %w", translateError("clinic", err))
	}
	return clinics, nil
}
