package model

import (
	"time"

	"github.com/google/uuid"
)

// User identity is managed by an external identity service; the scheduler
// only knows user IDs and their clinic memberships.
type User struct {
	ID        uuid.UUID `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Membership grants a user access to a clinic's resources.
type Membership struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	ClinicID  uuid.UUID `db:"clinic_id" json:"clinic_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
