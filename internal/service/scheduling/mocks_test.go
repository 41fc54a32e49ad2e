package scheduling

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/model"
	apperrors "github.com/medlane/clinic-scheduler/pkg/errors"
	"github.com/medlane/clinic-scheduler/pkg/locker"
	"github.com/medlane/clinic-scheduler/pkg/logger"
)

// In-memory fakes mirroring the postgres repository semantics, including
// optimistic concurrency on updated_at.

type fakeAppointmentRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Appointment

	// createErrs and updateErrs are consumed one per call, letting tests
	// inject commit-time failures.
	createErrs []error
	updateErrs []error
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{byID: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.createErrs) > 0 {
		err := r.createErrs[0]
		r.createErrs = r.createErrs[1:]
		if err != nil {
			return err
		}
	}

	apt.ID = uuid.New()
	apt.CreatedAt = time.Now()
	apt.UpdatedAt = apt.CreatedAt
	stored := *apt
	r.byID[apt.ID] = &stored
	return nil
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeAppointmentRepo) Update(ctx context.Context, apt *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.updateErrs) > 0 {
		err := r.updateErrs[0]
		r.updateErrs = r.updateErrs[1:]
		if err != nil {
			return err
		}
	}

	stored, ok := r.byID[apt.ID]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	if !stored.UpdatedAt.Equal(apt.UpdatedAt) {
		return apperrors.Conflict("appointment was modified concurrently", nil)
	}

	apt.UpdatedAt = time.Now().Add(time.Millisecond)
	updated := *apt
	r.byID[apt.ID] = &updated
	return nil
}

func (r *fakeAppointmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return apperrors.NotFound("appointment", nil)
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Appointment
	for _, apt := range r.byID {
		if apt.ClinicID != filters.ClinicID {
			continue
		}
		if filters.DoctorID != uuid.Nil && apt.DoctorID != filters.DoctorID {
			continue
		}
		if filters.Status != "" && apt.Status != filters.Status {
			continue
		}
		copied := *apt
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *fakeAppointmentRepo) ListForDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Appointment
	for _, apt := range r.byID {
		if apt.DoctorID != doctorID || apt.Status != model.AppointmentStatusConfirmed {
			continue
		}
		if apt.StartTime.Before(from) || apt.StartTime.After(to) {
			continue
		}
		copied := *apt
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *fakeAppointmentRepo) CheckConflicts(ctx context.Context, doctorID uuid.UUID, startTime, endTime time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, apt := range r.byID {
		if apt.DoctorID != doctorID || apt.Status != model.AppointmentStatusConfirmed {
			continue
		}
		if excludeID != nil && apt.ID == *excludeID {
			continue
		}
		if apt.StartTime.Before(endTime) && startTime.Before(apt.EndTime) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAppointmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type fakeDoctorRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Doctor
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{byID: make(map[uuid.UUID]*model.Doctor)}
}

func (r *fakeDoctorRepo) Create(ctx context.Context, doctor *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	stored := *doctor
	r.byID[doctor.ID] = &stored
	return nil
}

func (r *fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	copied := *stored
	return &copied, nil
}

func (r *fakeDoctorRepo) Update(ctx context.Context, doctor *model.Doctor) error {
	return r.Create(ctx, doctor)
}

func (r *fakeDoctorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakeDoctorRepo) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Doctor, error) {
	return nil, nil
}

func (r *fakeDoctorRepo) CountAppointments(ctx context.Context, doctorID uuid.UUID) (int, error) {
	return 0, nil
}

type fakePatientRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{byID: make(map[uuid.UUID]*model.Patient)}
}

func (r *fakePatientRepo) Create(ctx context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	stored := *patient
	r.byID[patient.ID] = &stored
	return nil
}

func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	copied := *stored
	return &copied, nil
}

func (r *fakePatientRepo) Update(ctx context.Context, patient *model.Patient) error {
	return r.Create(ctx, patient)
}

func (r *fakePatientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakePatientRepo) List(ctx context.Context, clinicID uuid.UUID) ([]*model.Patient, error) {
	return nil, nil
}

func (r *fakePatientRepo) FindByEmail(ctx context.Context, email string) (*model.Patient, error) {
	return nil, apperrors.NotFound("patient", nil)
}

func (r *fakePatientRepo) CountAppointments(ctx context.Context, patientID uuid.UUID) (int, error) {
	return 0, nil
}

type fakeGate struct {
	mu      sync.Mutex
	members map[uuid.UUID]map[uuid.UUID]bool
}

func newFakeGate() *fakeGate {
	return &fakeGate{members: make(map[uuid.UUID]map[uuid.UUID]bool)}
}

func (g *fakeGate) allow(userID, clinicID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.members[userID] == nil {
		g.members[userID] = make(map[uuid.UUID]bool)
	}
	g.members[userID][clinicID] = true
}

func (g *fakeGate) Authorize(ctx context.Context, userID, clinicID uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.members[userID][clinicID] {
		return apperrors.Unauthorized(nil)
	}
	return nil
}

// fixture wires a service against the fakes with a pinned clock.
// testNow is a Monday.
var testNow = time.Date(2026, time.January, 5, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc          *Service
	appointments *fakeAppointmentRepo
	doctors      *fakeDoctorRepo
	patients     *fakePatientRepo
	gate         *fakeGate

	clinicID uuid.UUID
	userID   uuid.UUID
	doctor   *model.Doctor
	patient  *model.Patient
}

func newFixture() *fixture {
	f := &fixture{
		appointments: newFakeAppointmentRepo(),
		doctors:      newFakeDoctorRepo(),
		patients:     newFakePatientRepo(),
		gate:         newFakeGate(),
		clinicID:     uuid.New(),
		userID:       uuid.New(),
	}

	f.doctor = &model.Doctor{
		Base:                 model.Base{ID: uuid.New()},
		ClinicID:             f.clinicID,
		Name:                 "Dr. Greene",
		Specialty:            "General",
		AvailableFromWeekday: 1,
		AvailableToWeekday:   5,
		AvailableFromTime:    "09:00",
		AvailableToTime:      "17:00",
	}
	f.patient = &model.Patient{
		Base:     model.Base{ID: uuid.New()},
		ClinicID: f.clinicID,
		Name:     "Alice",
		Email:    "alice@example.com",
	}
	_ = f.doctors.Create(context.Background(), f.doctor)
	_ = f.patients.Create(context.Background(), f.patient)
	f.gate.allow(f.userID, f.clinicID)

	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(
		f.appointments,
		f.doctors,
		f.patients,
		f.gate,
		locker.NewMemoryLocker(),
		Config{
			DefaultDuration: 30 * time.Minute,
			Timezone:        time.UTC,
			StoreTimeout:    5 * time.Second,
			IdempotencyTTL:  time.Hour,
		},
		log,
		nil,
	)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) bookRequest(start, end time.Time) *model.BookAppointmentRequest {
	return &model.BookAppointmentRequest{
		ClinicID:  f.clinicID,
		DoctorID:  f.doctor.ID,
		PatientID: f.patient.ID,
		StartTime: start,
		EndTime:   &end,
	}
}

// at builds an instant on the fixture's Monday at the given clock time.
func at(hour, minute int) time.Time {
	return time.Date(2026, time.January, 5, hour, minute, 0, 0, time.UTC)
}
