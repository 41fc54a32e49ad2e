package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/medlane/clinic-scheduler/pkg/errors"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// errNoRows marks zero-rows-affected updates and deletes as not-found.
var errNoRows = sql.ErrNoRows

const (
	pqUniqueViolation    = "23505"
	pqForeignKeyViolated = "23503"
	pqExclusionViolation = "23P01"
)

// translateError maps driver errors onto the application taxonomy so the
// services above never see raw pq errors.
func translateError(resource string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(resource, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Timeout(err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation, pqExclusionViolation:
			return apperrors.ConstraintViolation(resource+" violates a uniqueness constraint", err)
		case pqForeignKeyViolated:
			return apperrors.ConstraintViolation(resource+" references a missing record", err)
		}
	}
	return err
}
