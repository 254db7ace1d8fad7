package override

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DatesView is the cached day-level calendar view for one doctor.
type DatesView struct {
	BlockedDates        []string `json:"blockedDates"`
	AdHocAvailableDates []string `json:"adHocAvailableDates"`
}

// SlotsView is the cached per-date slot-block view.
type SlotsView struct {
	BlockedTimes []string `json:"blockedTimes"`
}

// ViewCache keeps derived calendar views in redis so the public booking
// surfaces don't hit Postgres on every paint. Mutations invalidate every view
// of the affected doctor; the TTL bounds staleness if an invalidation is lost.
type ViewCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewViewCache creates a view cache. A zero ttl disables expiry.
func NewViewCache(redisClient *redis.Client, ttl time.Duration) *ViewCache {
	return &ViewCache{redis: redisClient, ttl: ttl}
}

func (c *ViewCache) datesKey(clinicID, doctorID uuid.UUID) string {
	return fmt.Sprintf("agenda:dates:%s:%s", clinicID, doctorID)
}

func (c *ViewCache) slotsKey(clinicID, doctorID uuid.UUID, date string) string {
	return fmt.Sprintf("agenda:slots:%s:%s:%s", clinicID, doctorID, date)
}

// GetDates returns the cached day-level view, or nil on a miss.
func (c *ViewCache) GetDates(ctx context.Context, clinicID, doctorID uuid.UUID) (*DatesView, error) {
	data, err := c.redis.Get(ctx, c.datesKey(clinicID, doctorID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("override: cache get dates: %w", err)
	}
	var view DatesView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("override: cache unmarshal dates: %w", err)
	}
	return &view, nil
}

// SetDates stores the day-level view.
func (c *ViewCache) SetDates(ctx context.Context, clinicID, doctorID uuid.UUID, view *DatesView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("override: cache marshal dates: %w", err)
	}
	if err := c.redis.Set(ctx, c.datesKey(clinicID, doctorID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("override: cache set dates: %w", err)
	}
	return nil
}

// GetSlots returns the cached slot-block view for a date, or nil on a miss.
func (c *ViewCache) GetSlots(ctx context.Context, clinicID, doctorID uuid.UUID, date string) (*SlotsView, error) {
	data, err := c.redis.Get(ctx, c.slotsKey(clinicID, doctorID, date)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("override: cache get slots: %w", err)
	}
	var view SlotsView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("override: cache unmarshal slots: %w", err)
	}
	return &view, nil
}

// SetSlots stores the slot-block view for a date.
func (c *ViewCache) SetSlots(ctx context.Context, clinicID, doctorID uuid.UUID, date string, view *SlotsView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("override: cache marshal slots: %w", err)
	}
	if err := c.redis.Set(ctx, c.slotsKey(clinicID, doctorID, date), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("override: cache set slots: %w", err)
	}
	return nil
}

// Invalidate drops every cached view for the doctor: the dates view and all
// per-date slot views. Called after any override mutation, regardless of
// which class was mutated.
func (c *ViewCache) Invalidate(ctx context.Context, clinicID, doctorID uuid.UUID) error {
	keys := []string{c.datesKey(clinicID, doctorID)}

	pattern := fmt.Sprintf("agenda:slots:%s:%s:*", clinicID, doctorID)
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("override: cache scan: %w", err)
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("override: cache invalidate: %w", err)
	}
	return nil
}
