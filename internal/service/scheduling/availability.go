package scheduling

import (
	"time"

	"github.com/medlane/clinic-scheduler/internal/model"
	apperrors "github.com/medlane/clinic-scheduler/pkg/errors"
)

// Evaluator decides whether a candidate interval lies inside a doctor's
// recurring weekly availability window. It is a pure predicate over the
// doctor's declared schedule; the caller supplies the clinic's timezone.
type Evaluator struct{}

func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// isoWeekday maps Go's Sunday-based weekday to ISO numbering (1=Monday..7=Sunday).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// weekdayInRange handles both plain ranges (Mon..Fri) and ranges that wrap
// past Sunday (Fri..Mon means Fri, Sat, Sun, Mon).
func weekdayInRange(day, from, to int) bool {
	if from <= to {
		return day >= from && day <= to
	}
	return day >= from || day <= to
}

// IsWithinAvailability reports whether the whole interval fits inside the
// doctor's weekly window, evaluated in clinic-local time. Being outside the
// window is a business answer, not a fault; errors are reserved for
// malformed schedule data.
func (e *Evaluator) IsWithinAvailability(doctor *model.Doctor, interval model.TimeRange, loc *time.Location) (bool, error) {
	if !interval.Valid() {
		return false, apperrors.BadRequest("appointment interval must have a positive duration", nil)
	}

	fromMinutes, err := model.ParseClockTime(doctor.AvailableFromTime)
	if err != nil {
		return false, apperrors.Internal(err)
	}
	toMinutes, err := model.ParseClockTime(doctor.AvailableToTime)
	if err != nil {
		return false, apperrors.Internal(err)
	}

	start := interval.Start.In(loc)
	end := interval.End.In(loc)

	// The appointment may not cross a day boundary: the daily window ends
	// at toTime the same local day it started.
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		return false, nil
	}

	if !weekdayInRange(isoWeekday(start), doctor.AvailableFromWeekday, doctor.AvailableToWeekday) {
		return false, nil
	}

	startMinutes := start.Hour()*60 + start.Minute()
	endMinutes := end.Hour()*60 + end.Minute()
	if end.Second() > 0 || end.Nanosecond() > 0 {
		endMinutes++
	}

	return startMinutes >= fromMinutes && endMinutes <= toMinutes, nil
}
