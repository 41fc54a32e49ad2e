package model

// Clinic is the tenant root. Doctors, patients, appointments and
// memberships all hang off a clinic, and deleting one cascades to its
// dependents.
type Clinic struct {
	Base
	Name string `db:"name" json:"name"`
}

type CreateClinicRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

type UpdateClinicRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1,max=255"`
}
