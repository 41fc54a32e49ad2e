package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/model"
	"github.com/medlane/clinic-scheduler/internal/repository"
	"github.com/medlane/clinic-scheduler/internal/service/access"
	apperrors "github.com/medlane/clinic-scheduler/pkg/errors"
	"github.com/medlane/clinic-scheduler/pkg/locker"
	"github.com/medlane/clinic-scheduler/pkg/logger"
	"github.com/medlane/clinic-scheduler/pkg/metrics"
)

// Business rules for appointment intervals
const (
	MinAppointmentDuration = 5 * time.Minute
	MaxAppointmentDuration = 4 * time.Hour
)

// Config carries the injected scheduling parameters. The schema stores
// only a start instant, so the appointment duration is supplied by
// configuration rather than by the caller's data.
type Config struct {
	// DefaultDuration is applied when a booking request omits an end time.
	DefaultDuration time.Duration
	// Timezone is the clinic-local zone availability windows are declared in.
	Timezone *time.Location
	// StoreTimeout bounds every store call made by the engine.
	StoreTimeout time.Duration
	// IdempotencyTTL is how long a booking idempotency key is remembered.
	IdempotencyTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultDuration: 30 * time.Minute,
		Timezone:        time.UTC,
		StoreTimeout:    5 * time.Second,
		IdempotencyTTL:  24 * time.Hour,
	}
}

// Service orchestrates the access gate, availability evaluator, conflict
// detector and entity store into the validated booking path. The
// check-then-write sequence for a doctor runs under that doctor's lock, so
// two racing requests for the same slot resolve to one winner.
type Service struct {
	appointments repository.AppointmentRepository
	doctors      repository.DoctorRepository
	patients     repository.PatientRepository
	gate         access.Gate
	evaluator    *Evaluator
	detector     *Detector
	locks        locker.Locker
	idempotency  *idempotencyStore
	cfg          Config
	logger       *logger.Logger
	metrics      *metrics.Metrics

	// now is injectable so tests can pin the clock.
	now func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	gate access.Gate,
	locks locker.Locker,
	cfg Config,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 30 * time.Minute
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	return &Service{
		appointments: appointments,
		doctors:      doctors,
		patients:     patients,
		gate:         gate,
		evaluator:    NewEvaluator(),
		detector:     NewDetector(appointments, m),
		locks:        locks,
		idempotency:  newIdempotencyStore(cfg.IdempotencyTTL),
		cfg:          cfg,
		logger:       log,
		metrics:      m,
		now:          time.Now,
	}
}

// BookAppointment validates and commits a new booking. Any failed check
// aborts the whole operation with nothing written.
func (s *Service) BookAppointment(ctx context.Context, actingUserID uuid.UUID, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	started := time.Now()
	apt, err := s.book(ctx, actingUserID, req)
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		s.metrics.BookingLatency.Observe(time.Since(started).Seconds())
	}
	return apt, err
}

func (s *Service) book(ctx context.Context, actingUserID uuid.UUID, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	interval, err := s.resolveInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, actingUserID, req.ClinicID); err != nil {
		return nil, err
	}

	doctor, err := s.getDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	patient, err := s.getPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if doctor.ClinicID != req.ClinicID {
		return nil, apperrors.TenantMismatch("doctor does not belong to this clinic")
	}
	if patient.ClinicID != req.ClinicID {
		return nil, apperrors.TenantMismatch("patient does not belong to this clinic")
	}

	// Replaying an identical successful request returns the original
	// appointment rather than creating a duplicate. The replay runs only
	// after the gate and tenant checks, so a known key grants nothing to a
	// caller who could not have booked in the first place.
	if id, ok := s.idempotency.Get(req.ClinicID, req.IdempotencyKey); ok {
		return s.getAppointment(ctx, id)
	}

	unlock, err := s.lockDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	apt := &model.Appointment{
		ClinicID:  req.ClinicID,
		DoctorID:  doctor.ID,
		PatientID: patient.ID,
		StartTime: interval.Start,
		EndTime:   interval.End,
		Status:    model.AppointmentStatusConfirmed,
	}

	// A commit-time constraint violation means another instance won a race
	// our lock could not see; rerun the checks once before giving up.
	for attempt := 0; ; attempt++ {
		if err := s.validateSlot(ctx, doctor, interval, nil); err != nil {
			return nil, err
		}

		err := s.createAppointment(ctx, apt)
		if err == nil {
			break
		}
		if apperrors.IsCode(err, apperrors.ErrConstraintViolation) && attempt == 0 {
			s.logger.Warn("booking lost a commit-time race, revalidating",
				"doctor_id", doctor.ID.String())
			continue
		}
		return nil, err
	}

	s.idempotency.Put(req.ClinicID, req.IdempotencyKey, apt.ID)
	s.logger.Info("appointment booked",
		"appointment_id", apt.ID.String(),
		"doctor_id", doctor.ID.String(),
		"patient_id", patient.ID.String())
	return apt, nil
}

// RescheduleAppointment moves an appointment to a new interval, running the
// same validation as booking with the moved appointment excluded from its
// own conflict check.
func (s *Service) RescheduleAppointment(ctx context.Context, actingUserID, appointmentID uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.reschedule(ctx, actingUserID, appointmentID, req)
	if s.metrics != nil {
		s.metrics.ReschedulesTotal.WithLabelValues(outcomeLabel(err)).Inc()
	}
	return apt, err
}

func (s *Service) reschedule(ctx context.Context, actingUserID, appointmentID uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Status != model.AppointmentStatusConfirmed {
		return nil, apperrors.BadRequest("only confirmed appointments can be rescheduled", nil)
	}

	if err := s.authorize(ctx, actingUserID, apt.ClinicID); err != nil {
		return nil, err
	}

	doctor, err := s.getDoctor(ctx, apt.DoctorID)
	if err != nil {
		return nil, err
	}

	end := req.EndTime
	if end == nil {
		// Preserve the booked duration when the caller moves only the start.
		moved := req.StartTime.Add(apt.Interval().Duration())
		end = &moved
	}
	interval, err := s.resolveInterval(req.StartTime, end)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lockDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		if err := s.validateSlot(ctx, doctor, interval, &apt.ID); err != nil {
			return nil, err
		}

		apt.StartTime = interval.Start
		apt.EndTime = interval.End
		err := s.updateAppointment(ctx, apt)
		if err == nil {
			break
		}
		if apperrors.IsCode(err, apperrors.ErrConflict) && attempt == 0 {
			if apt, err = s.getAppointment(ctx, appointmentID); err != nil {
				return nil, err
			}
			if apt.Status != model.AppointmentStatusConfirmed {
				return nil, apperrors.BadRequest("only confirmed appointments can be rescheduled", nil)
			}
			continue
		}
		return nil, err
	}

	s.logger.Info("appointment rescheduled", "appointment_id", apt.ID.String())
	return apt, nil
}

// CancelAppointment marks an appointment cancelled. Cancelling an already
// cancelled appointment succeeds without error.
func (s *Service) CancelAppointment(ctx context.Context, actingUserID, appointmentID uuid.UUID) error {
	apt, err := s.getAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if apt.Status == model.AppointmentStatusCancelled {
		return nil
	}

	if err := s.authorize(ctx, actingUserID, apt.ClinicID); err != nil {
		return err
	}

	apt.Status = model.AppointmentStatusCancelled
	if err := s.updateAppointment(ctx, apt); err != nil {
		if apperrors.IsCode(err, apperrors.ErrConflict) {
			// Lost an update race; if the other writer cancelled it too,
			// the outcome the caller asked for already holds.
			current, getErr := s.getAppointment(ctx, appointmentID)
			if getErr != nil {
				return getErr
			}
			if current.Status == model.AppointmentStatusCancelled {
				return nil
			}
			current.Status = model.AppointmentStatusCancelled
			return s.updateAppointment(ctx, current)
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.CancellationsTotal.Inc()
	}
	s.logger.Info("appointment cancelled", "appointment_id", appointmentID.String())
	return nil
}

// ListAppointmentsForDoctor returns the doctor's confirmed appointments in
// [from, to], ascending by start time.
func (s *Service) ListAppointmentsForDoctor(ctx context.Context, actingUserID, doctorID uuid.UUID, from, to time.Time) ([]*model.Appointment, error) {
	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actingUserID, doctor.ClinicID); err != nil {
		return nil, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	started := time.Now()
	appointments, err := s.appointments.ListForDoctor(storeCtx, doctorID, from, to)
	s.observeStore("appointment_list", started, err)
	return appointments, s.mapTimeout(err)
}

// GetAvailableSlots enumerates the free slots of the configured duration
// inside the doctor's window on the given local date.
func (s *Service) GetAvailableSlots(ctx context.Context, actingUserID, doctorID uuid.UUID, date time.Time) ([]model.TimeRange, error) {
	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actingUserID, doctor.ClinicID); err != nil {
		return nil, err
	}

	// The date names a clinic-local calendar day. Callers hand it over as
	// midnight in whatever zone they parsed it in, so only its year, month
	// and day are meaningful here.
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.cfg.Timezone)
	if !weekdayInRange(isoWeekday(midnight), doctor.AvailableFromWeekday, doctor.AvailableToWeekday) {
		return nil, nil
	}

	fromMinutes, err := model.ParseClockTime(doctor.AvailableFromTime)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	toMinutes, err := model.ParseClockTime(doctor.AvailableToTime)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	windowStart := midnight.Add(time.Duration(fromMinutes) * time.Minute)
	windowEnd := midnight.Add(time.Duration(toMinutes) * time.Minute)

	storeCtx, cancel := s.storeContext(ctx)
	started := time.Now()
	booked, err := s.appointments.ListForDoctor(storeCtx, doctorID, windowStart, windowEnd)
	s.observeStore("appointment_list", started, err)
	cancel()
	if err != nil {
		return nil, s.mapTimeout(err)
	}

	var free []model.TimeRange
	for t := windowStart; !t.Add(s.cfg.DefaultDuration).After(windowEnd); t = t.Add(s.cfg.DefaultDuration) {
		slot := model.TimeRange{Start: t, End: t.Add(s.cfg.DefaultDuration)}
		conflict := false
		for _, apt := range booked {
			if apt.Status == model.AppointmentStatusConfirmed && slot.Overlaps(apt.Interval()) {
				conflict = true
				break
			}
		}
		if !conflict {
			free = append(free, slot)
		}
	}
	return free, nil
}

// validateSlot runs the availability and conflict checks for an interval.
func (s *Service) validateSlot(ctx context.Context, doctor *model.Doctor, interval model.TimeRange, excludeID *uuid.UUID) error {
	within, err := s.evaluator.IsWithinAvailability(doctor, interval, s.cfg.Timezone)
	if err != nil {
		return err
	}
	if !within {
		return apperrors.OutsideAvailability("requested time is outside the doctor's availability window")
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	conflict, err := s.detector.HasConflict(storeCtx, doctor.ID, interval, excludeID)
	if err != nil {
		return s.mapTimeout(err)
	}
	if conflict {
		return apperrors.SlotConflict("the doctor already has an appointment in this time slot")
	}

	// The store's overlap query is the commit-time guard: it sees rows the
	// detector's padded fetch window misses, such as appointments spanning
	// more than a day.
	guardCtx, cancelGuard := s.storeContext(ctx)
	defer cancelGuard()
	started := time.Now()
	conflict, err = s.appointments.CheckConflicts(guardCtx, doctor.ID, interval.Start, interval.End, excludeID)
	s.observeStore("appointment_check_conflicts", started, err)
	if err != nil {
		return s.mapTimeout(err)
	}
	if conflict {
		return apperrors.SlotConflict("the doctor already has an appointment in this time slot")
	}
	return nil
}

func (s *Service) resolveInterval(start time.Time, end *time.Time) (model.TimeRange, error) {
	interval := model.TimeRange{Start: start}
	if end != nil {
		interval.End = *end
	} else {
		interval.End = start.Add(s.cfg.DefaultDuration)
	}

	if !interval.Valid() {
		return model.TimeRange{}, apperrors.BadRequest("appointment end must be after its start", nil)
	}
	if d := interval.Duration(); d < MinAppointmentDuration || d > MaxAppointmentDuration {
		return model.TimeRange{}, apperrors.BadRequest("appointment duration is out of bounds", nil)
	}
	if interval.Start.Before(s.now()) {
		return model.TimeRange{}, apperrors.BadRequest("appointment cannot be scheduled in the past", nil)
	}
	return interval, nil
}

func (s *Service) lockDoctor(ctx context.Context, doctorID uuid.UUID) (locker.UnlockFunc, error) {
	unlock, err := s.locks.Lock(ctx, doctorID.String())
	if err != nil {
		return nil, s.mapTimeout(err)
	}
	return unlock, nil
}

func (s *Service) authorize(ctx context.Context, userID, clinicID uuid.UUID) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.mapTimeout(s.gate.Authorize(storeCtx, userID, clinicID))
}

func (s *Service) getAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	started := time.Now()
	apt, err := s.appointments.Get(storeCtx, id)
	s.observeStore("appointment_get", started, err)
	return apt, s.mapTimeout(err)
}

func (s *Service) getDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	started := time.Now()
	doctor, err := s.doctors.Get(storeCtx, id)
	s.observeStore("doctor_get", started, err)
	return doctor, s.mapTimeout(err)
}

func (s *Service) getPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	started := time.Now()
	patient, err := s.patients.Get(storeCtx, id)
	s.observeStore("patient_get", started, err)
	return patient, s.mapTimeout(err)
}

func (s *Service) createAppointment(ctx context.Context, apt *model.Appointment) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	started := time.Now()
	err := s.appointments.Create(storeCtx, apt)
	s.observeStore("appointment_create", started, err)
	return s.mapTimeout(err)
}

func (s *Service) updateAppointment(ctx context.Context, apt *model.Appointment) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	started := time.Now()
	err := s.appointments.Update(storeCtx, apt)
	s.observeStore("appointment_update", started, err)
	return s.mapTimeout(err)
}

// observeStore records one store round trip on the database collectors.
func (s *Service) observeStore(operation string, started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.DatabaseOperations.WithLabelValues(operation, status).Inc()
	s.metrics.DatabaseLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *Service) mapTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && !apperrors.IsCode(err, apperrors.ErrTimeout) {
		return apperrors.Timeout(err)
	}
	return err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "confirmed"
	}
	switch apperrors.CodeOf(err) {
	case apperrors.ErrUnauthorized, apperrors.ErrForbidden:
		return "unauthorized"
	case apperrors.ErrTenantMismatch:
		return "tenant_mismatch"
	case apperrors.ErrOutsideAvailability:
		return "outside_availability"
	case apperrors.ErrSlotConflict:
		return "slot_conflict"
	case apperrors.ErrNotFound:
		return "not_found"
	case apperrors.ErrTimeout:
		return "timeout"
	default:
		return "error"
	}
}
