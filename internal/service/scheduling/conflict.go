package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medlane/clinic-scheduler/internal/model"
	"github.com/medlane/clinic-scheduler/internal/repository"
	"github.com/medlane/clinic-scheduler/pkg/metrics"
)

// conflictFetchPadding widens the fetch window around the candidate so
// ordinary appointments that could overlap are loaded. Spans longer than
// the padding are left to the store's overlap query.
const conflictFetchPadding = 24 * time.Hour

// Detector decides whether a candidate interval overlaps any existing
// confirmed appointment for a doctor.
type Detector struct {
	repo    repository.AppointmentRepository
	metrics *metrics.Metrics
}

func NewDetector(repo repository.AppointmentRepository, m *metrics.Metrics) *Detector {
	return &Detector{repo: repo, metrics: m}
}

// HasConflict fetches the doctor's appointments in a padded window around
// the candidate and tests half-open overlap: [s1,e1) and [s2,e2) conflict
// iff s1 < e2 && s2 < e1. excludeID lets a reschedule ignore the
// appointment being moved.
func (d *Detector) HasConflict(ctx context.Context, doctorID uuid.UUID, interval model.TimeRange, excludeID *uuid.UUID) (bool, error) {
	if d.metrics != nil {
		d.metrics.ConflictChecks.Inc()
	}

	existing, err := d.repo.ListForDoctor(ctx, doctorID,
		interval.Start.Add(-conflictFetchPadding),
		interval.End.Add(conflictFetchPadding),
	)
	if err != nil {
		return false, err
	}

	for _, apt := range existing {
		if excludeID != nil && apt.ID == *excludeID {
			continue
		}
		if apt.Status != model.AppointmentStatusConfirmed {
			continue
		}
		if interval.Overlaps(apt.Interval()) {
			if d.metrics != nil {
				d.metrics.ConflictsDetected.Inc()
			}
			return true, nil
		}
	}
	return false, nil
}
