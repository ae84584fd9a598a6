package advisory

import "time"

// HealthCache remembers whether the advisory endpoint answered, until
// ExpiresAt. The caller owns it; the zero value is expired.
type HealthCache struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checkedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the cached answer may still be used at now.
func (h *HealthCache) Valid(now time.Time) bool {
	return h != nil && !h.ExpiresAt.IsZero() && now.Before(h.ExpiresAt)
}

// Record stores a fresh answer valid for ttl.
func (h *HealthCache) Record(healthy bool, now time.Time, ttl time.Duration) {
	h.Healthy = healthy
	h.CheckedAt = now
	h.ExpiresAt = now.Add(ttl)
}

// Invalidate forces the next availability check to contact the endpoint.
func (h *HealthCache) Invalidate() {
	h.ExpiresAt = time.Time{}
}
