package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// idempotencyStore remembers which appointment a booking request produced,
// keyed by the caller-supplied idempotency key scoped to its clinic.
// Replaying an identical successful request returns the original
// appointment instead of double-booking.
type idempotencyStore struct {
	c *gocache.Cache
}

func newIdempotencyStore(ttl time.Duration) *idempotencyStore {
	return &idempotencyStore{
		c: gocache.New(ttl, ttl),
	}
}

func idempotencyCacheKey(clinicID uuid.UUID, key string) string {
	return fmt.Sprintf("%s:%s", clinicID, key)
}

func (s *idempotencyStore) Get(clinicID uuid.UUID, key string) (uuid.UUID, bool) {
	if key == "" {
		return uuid.Nil, false
	}
	v, ok := s.c.Get(idempotencyCacheKey(clinicID, key))
	if !ok {
		return uuid.Nil, false
	}
	return v.(uuid.UUID), true
}

func (s *idempotencyStore) Put(clinicID uuid.UUID, key string, appointmentID uuid.UUID) {
	if key == "" {
		return
	}
	s.c.SetDefault(idempotencyCacheKey(clinicID, key), appointmentID)
}
