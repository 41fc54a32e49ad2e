package model

import (
	"github.com/google/uuid"
)

type PatientSex string

const (
	PatientSexMale   PatientSex = "male"
	PatientSexFemale PatientSex = "female"
)

// Patient belongs to exactly one clinic. Email is unique across all
// clinics, not just within one.
type Patient struct {
	Base
	ClinicID    uuid.UUID  `db:"clinic_id" json:"clinic_id"`
	Name        string     `db:"name" json:"name"`
	Email       string     `db:"email" json:"email"`
	PhoneNumber string     `db:"phone_number" json:"phone_number"`
	Sex         PatientSex `db:"sex" json:"sex"`
}

type CreatePatientRequest struct {
	ClinicID    uuid.UUID  `json:"clinic_id" binding:"required"`
	Name        string     `json:"name" binding:"required,max=255"`
	Email       string     `json:"email" binding:"required,email"`
	PhoneNumber string     `json:"phone_number" binding:"required,max=32"`
	Sex         PatientSex `json:"sex" binding:"required,oneof=male female"`
}

type UpdatePatientRequest struct {
	Name        *string     `json:"name" binding:"omitempty,max=255"`
	Email       *string     `json:"email" binding:"omitempty,email"`
	PhoneNumber *string     `json:"phone_number" binding:"omitempty,max=32"`
	Sex         *PatientSex `json:"sex" binding:"omitempty,oneof=male female"`
}
