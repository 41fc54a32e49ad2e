package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlane/clinic-scheduler/internal/model"
	apperrors "github.com/medlane/clinic-scheduler/pkg/errors"
)

func TestBookAppointment(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, apt.ID)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)
	assert.Equal(t, f.clinicID, apt.ClinicID)
	assert.Equal(t, f.doctor.ID, apt.DoctorID)
	assert.Equal(t, f.patient.ID, apt.PatientID)

	stored, err := f.appointments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartTime.Equal(at(10, 0)))
	assert.True(t, stored.EndTime.Equal(at(10, 30)))
}

func TestBookAppointmentDefaultDuration(t *testing.T) {
	f := newFixture()

	req := f.bookRequest(at(10, 0), at(10, 30))
	req.EndTime = nil

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, req)
	require.NoError(t, err)
	assert.True(t, apt.EndTime.Equal(at(10, 30)), "omitted end time gets the configured default duration")
}

func TestBookAppointmentOutsideAvailability(t *testing.T) {
	f := newFixture()

	// Saturday is outside the doctor's Monday-Friday range.
	saturday := time.Date(2026, time.January, 10, 10, 0, 0, 0, time.UTC)
	_, err := f.svc.BookAppointment(context.Background(), f.userID,
		f.bookRequest(saturday, saturday.Add(30*time.Minute)))

	assert.True(t, apperrors.IsCode(err, apperrors.ErrOutsideAvailability))
	assert.Zero(t, f.appointments.count(), "a failed booking writes nothing")
}

func TestBookAppointmentBeforeWindowOpens(t *testing.T) {
	f := newFixture()

	_, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(8, 30), at(9, 0)))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrOutsideAvailability))
}

func TestBookAppointmentSlotConflict(t *testing.T) {
	f := newFixture()

	_, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	_, err = f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 15), at(10, 45)))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrSlotConflict))
	assert.Equal(t, 1, f.appointments.count())
}

func TestBookAppointmentBackToBackSlots(t *testing.T) {
	f := newFixture()

	_, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	// [10:00,10:30) and [10:30,11:00) share only the boundary instant.
	_, err = f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 30), at(11, 0)))
	require.NoError(t, err)
	assert.Equal(t, 2, f.appointments.count())
}

func TestBookAppointmentUnauthorized(t *testing.T) {
	f := newFixture()

	stranger := uuid.New()
	_, err := f.svc.BookAppointment(context.Background(), stranger, f.bookRequest(at(10, 0), at(10, 30)))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}

func TestBookAppointmentTenantMismatch(t *testing.T) {
	f := newFixture()

	otherClinic := uuid.New()
	foreignDoctor := &model.Doctor{
		Base:                 model.Base{ID: uuid.New()},
		ClinicID:             otherClinic,
		AvailableFromWeekday: 1,
		AvailableToWeekday:   5,
		AvailableFromTime:    "09:00",
		AvailableToTime:      "17:00",
	}
	require.NoError(t, f.doctors.Create(context.Background(), foreignDoctor))

	req := f.bookRequest(at(10, 0), at(10, 30))
	req.DoctorID = foreignDoctor.ID

	_, err := f.svc.BookAppointment(context.Background(), f.userID, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrTenantMismatch))
}

func TestBookAppointmentDoctorNotFound(t *testing.T) {
	f := newFixture()

	req := f.bookRequest(at(10, 0), at(10, 30))
	req.DoctorID = uuid.New()

	_, err := f.svc.BookAppointment(context.Background(), f.userID, req)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestBookAppointmentInThePast(t *testing.T) {
	f := newFixture()

	// The pinned clock is 08:00; the previous Monday is in the past.
	lastMonday := at(10, 0).AddDate(0, 0, -7)
	_, err := f.svc.BookAppointment(context.Background(), f.userID,
		f.bookRequest(lastMonday, lastMonday.Add(30*time.Minute)))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestBookAppointmentInvalidInterval(t *testing.T) {
	f := newFixture()

	_, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 30), at(10, 0)))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestBookAppointmentIdempotentReplay(t *testing.T) {
	f := newFixture()

	req := f.bookRequest(at(10, 0), at(10, 30))
	req.IdempotencyKey = "req-42"

	first, err := f.svc.BookAppointment(context.Background(), f.userID, req)
	require.NoError(t, err)

	replay, err := f.svc.BookAppointment(context.Background(), f.userID, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, replay.ID)
	assert.Equal(t, 1, f.appointments.count(), "a replayed booking must not double-book")
}

func TestBookAppointmentReplayRequiresMembership(t *testing.T) {
	f := newFixture()

	req := f.bookRequest(at(10, 0), at(10, 30))
	req.IdempotencyKey = "req-42"

	_, err := f.svc.BookAppointment(context.Background(), f.userID, req)
	require.NoError(t, err)

	// A caller outside the clinic replays the same key; knowing the key
	// must not stand in for membership.
	outsider := uuid.New()
	_, err = f.svc.BookAppointment(context.Background(), outsider, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
	assert.Equal(t, 1, f.appointments.count())
}

func TestBookAppointmentConflictWithMultiDayAppointment(t *testing.T) {
	f := newFixture()

	// A confirmed appointment spanning several days starts outside the
	// detector's fetch window but still occupies Monday morning; the
	// store-level overlap check must catch it.
	longStay := &model.Appointment{
		ClinicID:  f.clinicID,
		DoctorID:  f.doctor.ID,
		PatientID: f.patient.ID,
		StartTime: time.Date(2026, time.January, 2, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, time.January, 5, 10, 15, 0, 0, time.UTC),
		Status:    model.AppointmentStatusConfirmed,
	}
	require.NoError(t, f.appointments.Create(context.Background(), longStay))

	_, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrSlotConflict))
}

func TestBookAppointmentRetriesLostCommitRace(t *testing.T) {
	f := newFixture()

	// A commit-time constraint violation simulates another instance winning
	// a race the in-process lock cannot see; the engine revalidates once.
	f.appointments.createErrs = []error{
		apperrors.ConstraintViolation("overlapping appointment", nil),
	}

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, apt.ID)
	assert.Equal(t, 1, f.appointments.count())
}

func TestBookAppointmentConcurrentRace(t *testing.T) {
	f := newFixture()

	const racers = 8
	var wg sync.WaitGroup
	errs := make([]error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.BookAppointment(context.Background(), f.userID,
				f.bookRequest(at(10, 0), at(10, 30)))
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case apperrors.IsCode(err, apperrors.ErrSlotConflict):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one racer gets the slot")
	assert.Equal(t, racers-1, lost)
	assert.Equal(t, 1, f.appointments.count())
}

func TestRescheduleAppointment(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	end := at(11, 30)
	moved, err := f.svc.RescheduleAppointment(context.Background(), f.userID, apt.ID,
		&model.RescheduleAppointmentRequest{StartTime: at(11, 0), EndTime: &end})
	require.NoError(t, err)

	assert.True(t, moved.StartTime.Equal(at(11, 0)))
	assert.True(t, moved.EndTime.Equal(at(11, 30)))

	// The vacated slot is immediately bookable again.
	_, err = f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)
}

func TestRescheduleAppointmentPreservesDuration(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(11, 0)))
	require.NoError(t, err)

	moved, err := f.svc.RescheduleAppointment(context.Background(), f.userID, apt.ID,
		&model.RescheduleAppointmentRequest{StartTime: at(13, 0)})
	require.NoError(t, err)

	assert.True(t, moved.EndTime.Equal(at(14, 0)), "the booked one-hour duration carries over")
}

func TestRescheduleAppointmentOntoOwnSlot(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	// Overlapping its own current slot is allowed.
	moved, err := f.svc.RescheduleAppointment(context.Background(), f.userID, apt.ID,
		&model.RescheduleAppointmentRequest{StartTime: at(10, 15)})
	require.NoError(t, err)
	assert.True(t, moved.StartTime.Equal(at(10, 15)))
}

func TestRescheduleAppointmentConflict(t *testing.T) {
	f := newFixture()

	_, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(11, 0), at(11, 30)))
	require.NoError(t, err)
	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	_, err = f.svc.RescheduleAppointment(context.Background(), f.userID, apt.ID,
		&model.RescheduleAppointmentRequest{StartTime: at(11, 15)})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrSlotConflict))
}

func TestRescheduleAppointmentOutsideAvailability(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	_, err = f.svc.RescheduleAppointment(context.Background(), f.userID, apt.ID,
		&model.RescheduleAppointmentRequest{StartTime: at(18, 0)})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrOutsideAvailability))
}

func TestRescheduleCancelledAppointment(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelAppointment(context.Background(), f.userID, apt.ID))

	_, err = f.svc.RescheduleAppointment(context.Background(), f.userID, apt.ID,
		&model.RescheduleAppointmentRequest{StartTime: at(11, 0)})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestRescheduleAppointmentRetriesConcurrentUpdate(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	f.appointments.updateErrs = []error{
		apperrors.Conflict("appointment was modified concurrently", nil),
	}

	moved, err := f.svc.RescheduleAppointment(context.Background(), f.userID, apt.ID,
		&model.RescheduleAppointmentRequest{StartTime: at(11, 0)})
	require.NoError(t, err)
	assert.True(t, moved.StartTime.Equal(at(11, 0)))
}

func TestCancelAppointment(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelAppointment(context.Background(), f.userID, apt.ID))

	stored, err := f.appointments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)

	// The freed slot is immediately bookable again.
	_, err = f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)
}

func TestCancelAppointmentIdempotent(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelAppointment(context.Background(), f.userID, apt.ID))
	require.NoError(t, f.svc.CancelAppointment(context.Background(), f.userID, apt.ID))
}

func TestCancelAppointmentRetriesConcurrentUpdate(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	f.appointments.updateErrs = []error{
		apperrors.Conflict("appointment was modified concurrently", nil),
	}

	require.NoError(t, f.svc.CancelAppointment(context.Background(), f.userID, apt.ID))

	stored, err := f.appointments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, stored.Status)
}

func TestCancelAppointmentUnauthorized(t *testing.T) {
	f := newFixture()

	apt, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	err = f.svc.CancelAppointment(context.Background(), uuid.New(), apt.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthorized))
}

func TestListAppointmentsForDoctor(t *testing.T) {
	f := newFixture()

	second, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(14, 0), at(14, 30)))
	require.NoError(t, err)
	first, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)
	cancelled, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(12, 0), at(12, 30)))
	require.NoError(t, err)
	require.NoError(t, f.svc.CancelAppointment(context.Background(), f.userID, cancelled.ID))

	listed, err := f.svc.ListAppointmentsForDoctor(context.Background(), f.userID, f.doctor.ID,
		at(0, 0), at(23, 59))
	require.NoError(t, err)

	require.Len(t, listed, 2, "cancelled appointments stay out of the schedule")
	assert.Equal(t, first.ID, listed[0].ID, "ascending by start time")
	assert.Equal(t, second.ID, listed[1].ID)
}

func TestGetAvailableSlots(t *testing.T) {
	f := newFixture()

	_, err := f.svc.BookAppointment(context.Background(), f.userID, f.bookRequest(at(10, 0), at(10, 30)))
	require.NoError(t, err)

	slots, err := f.svc.GetAvailableSlots(context.Background(), f.userID, f.doctor.ID, at(0, 0))
	require.NoError(t, err)

	// 09:00-17:00 holds sixteen 30-minute slots; one is taken.
	assert.Len(t, slots, 15)
	assert.True(t, slots[0].Start.Equal(at(9, 0)))
	for _, slot := range slots {
		assert.False(t, slot.Overlaps(model.TimeRange{Start: at(10, 0), End: at(10, 30)}))
	}
}

func TestGetAvailableSlotsOffDay(t *testing.T) {
	f := newFixture()

	saturday := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.GetAvailableSlots(context.Background(), f.userID, f.doctor.ID, saturday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailableSlotsWesternTimezone(t *testing.T) {
	f := newFixture()

	// Handlers parse the date query as midnight UTC. For a clinic west of
	// UTC that instant falls on the previous local day, so the calendar
	// date, not the instant, decides which weekday is evaluated.
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	f.svc.cfg.Timezone = ny

	monday := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	slots, err := f.svc.GetAvailableSlots(context.Background(), f.userID, f.doctor.ID, monday)
	require.NoError(t, err)

	require.Len(t, slots, 16)
	assert.True(t, slots[0].Start.Equal(time.Date(2026, time.January, 5, 9, 0, 0, 0, ny)))
}
