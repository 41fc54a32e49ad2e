package model

import (
	"fmt"

	"github.com/google/uuid"
)

// ISO weekday numbering: 1=Monday .. 7=Sunday.
const (
	WeekdayMin = 1
	WeekdayMax = 7
)

// Doctor belongs to exactly one clinic. The availability window is a
// recurring weekly range: weekdays [AvailableFromWeekday, AvailableToWeekday]
// (wrapping past Sunday when from > to) combined with a daily time-of-day
// range [AvailableFromTime, AvailableToTime].
type Doctor struct {
	Base
	ClinicID              uuid.UUID `db:"clinic_id" json:"clinic_id"`
	Name                  string    `db:"name" json:"name"`
	AvatarImageURL        string    `db:"avatar_image_url" json:"avatar_image_url"`
	Specialty             string    `db:"specialty" json:"specialty"`
	AvailableFromWeekday  int       `db:"available_from_weekday" json:"available_from_weekday"`
	AvailableToWeekday    int       `db:"available_to_weekday" json:"available_to_weekday"`
	AvailableFromTime     string    `db:"available_from_time" json:"available_from_time"`
	AvailableToTime       string    `db:"available_to_time" json:"available_to_time"`
	AppointmentPriceCents int       `db:"appointment_price_in_cents" json:"appointment_price_in_cents"`
}

// ParseClockTime converts a "15:04" or "15:04:05" clock string to minutes
// since midnight. Seconds are accepted for schema compatibility but ignored.
func ParseClockTime(s string) (int, error) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return h*60 + m, nil
}

type CreateDoctorRequest struct {
	ClinicID              uuid.UUID `json:"clinic_id" binding:"required"`
	Name                  string    `json:"name" binding:"required,max=255"`
	AvatarImageURL        string    `json:"avatar_image_url" binding:"omitempty,url"`
	Specialty             string    `json:"specialty" binding:"required,max=255"`
	AvailableFromWeekday  int       `json:"available_from_weekday" binding:"required,min=1,max=7"`
	AvailableToWeekday    int       `json:"available_to_weekday" binding:"required,min=1,max=7"`
	AvailableFromTime     string    `json:"available_from_time" binding:"required"`
	AvailableToTime       string    `json:"available_to_time" binding:"required"`
	AppointmentPriceCents int       `json:"appointment_price_in_cents" binding:"min=0"`
}

type UpdateDoctorRequest struct {
	Name                  *string `json:"name" binding:"omitempty,max=255"`
	AvatarImageURL        *string `json:"avatar_image_url" binding:"omitempty,url"`
	Specialty             *string `json:"specialty" binding:"omitempty,max=255"`
	AvailableFromWeekday  *int    `json:"available_from_weekday" binding:"omitempty,min=1,max=7"`
	AvailableToWeekday    *int    `json:"available_to_weekday" binding:"omitempty,min=1,max=7"`
	AvailableFromTime     *string `json:"available_from_time"`
	AvailableToTime       *string `json:"available_to_time"`
	AppointmentPriceCents *int    `json:"appointment_price_in_cents" binding:"omitempty,min=0"`
}
