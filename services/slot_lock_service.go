package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Nisha-Mashhood/connectsphere_backend/models"
)

const lockedSlotsCacheTTL = 30 * time.Second

// SlotLockService computes a mentor's occupied time windows. The result is
// derived from active collaborations and accepted-but-unpaid requests and is
// never persisted.
type SlotLockService struct {
	DB    *mongo.Database
	Redis *redis.Client // optional; nil disables caching
}

// NewSlotLockService creates a new slot lock service
func NewSlotLockService(db *mongo.Database, rdb *redis.Client) *SlotLockService {
	return &SlotLockService{DB: db, Redis: rdb}
}

// GetLockedSlots returns one entry per distinct day across every source that
// currently occupies the mentor's calendar, with time slots deduplicated
// within each day.
func (s *SlotLockService) GetLockedSlots(ctx context.Context, mentorID primitive.ObjectID) ([]models.LockedSlot, error) {
	count, err := s.DB.Collection("mentors").CountDocuments(ctx, bson.M{"_id": mentorID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up mentor: %w", err)
	}
	if count == 0 {
		return nil, fmt.Errorf("mentor %s: %w", mentorID.Hex(), ErrNotFound)
	}

	if cached, ok := s.cacheGet(ctx, mentorID); ok {
		return cached, nil
	}

	var sources []models.SlotList

	// Active collaborations: not cancelled, not past their end date
	now := time.Now()
	cursor, err := s.DB.Collection("collaborations").Find(ctx, bson.M{
		"mentorId":    mentorID,
		"isCancelled": false,
		"$or": []bson.M{
			{"endDate": nil},
			{"endDate": bson.M{"$gt": now}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collaborations: %w", err)
	}
	var collabs []models.Collaboration
	if err = cursor.All(ctx, &collabs); err != nil {
		return nil, fmt.Errorf("failed to decode collaborations: %w", err)
	}
	for _, c := range collabs {
		sources = append(sources, c.SelectedSlot)
	}

	// Accepted requests that have not yet been paid and converted
	cursor, err = s.DB.Collection("mentorRequests").Find(ctx, bson.M{
		"mentorId": mentorID,
		"status":   models.RequestStatusAccepted,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query mentor requests: %w", err)
	}
	var requests []models.MentorRequest
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode mentor requests: %w", err)
	}
	for _, r := range requests {
		sources = append(sources, r.SelectedSlot)
	}

	locked := MergeSlots(sources)
	s.cacheSet(ctx, mentorID, locked)
	return locked, nil
}

// MergeSlots merges slot lists from multiple sources into one entry per day,
// unioning and deduplicating the time slots of days that appear more than
// once. Days are ordered by first appearance; time slots within a day keep
// insertion order.
func MergeSlots(sources []models.SlotList) []models.LockedSlot {
	byDay := make(map[string]map[string]struct{})
	var dayOrder []string
	slotOrder := make(map[string][]string)

	for _, list := range sources {
		for _, slot := range list {
			if slot.Day == "" {
				continue
			}
			if _, ok := byDay[slot.Day]; !ok {
				byDay[slot.Day] = make(map[string]struct{})
				dayOrder = append(dayOrder, slot.Day)
			}
			for _, ts := range slot.TimeSlots {
				if ts == "" {
					continue
				}
				if _, dup := byDay[slot.Day][ts]; !dup {
					byDay[slot.Day][ts] = struct{}{}
					slotOrder[slot.Day] = append(slotOrder[slot.Day], ts)
				}
			}
		}
	}

	locked := make([]models.LockedSlot, 0, len(dayOrder))
	for _, day := range dayOrder {
		locked = append(locked, models.LockedSlot{Day: day, TimeSlots: slotOrder[day]})
	}
	return locked
}

// Overlaps reports whether any requested slot collides with a locked one
func Overlaps(requested models.SlotList, locked []models.LockedSlot) bool {
	taken := make(map[string]map[string]struct{}, len(locked))
	for _, l := range locked {
		set := make(map[string]struct{}, len(l.TimeSlots))
		for _, ts := range l.TimeSlots {
			set[ts] = struct{}{}
		}
		taken[l.Day] = set
	}
	for _, slot := range requested {
		set, ok := taken[slot.Day]
		if !ok {
			continue
		}
		for _, ts := range slot.TimeSlots {
			if _, hit := set[ts]; hit {
				return true
			}
		}
	}
	return false
}

// InvalidateCache drops the cached locked-slot view for a mentor. Called by
// every write path that changes what GetLockedSlots would return.
func (s *SlotLockService) InvalidateCache(ctx context.Context, mentorID primitive.ObjectID) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, lockedSlotsCacheKey(mentorID)).Err(); err != nil && err != redis.Nil {
		log.Printf("Failed to invalidate locked-slots cache for mentor %s: %v", mentorID.Hex(), err)
	}
}

func (s *SlotLockService) cacheGet(ctx context.Context, mentorID primitive.ObjectID) ([]models.LockedSlot, bool) {
	if s.Redis == nil {
		return nil, false
	}
	data, err := s.Redis.Get(ctx, lockedSlotsCacheKey(mentorID)).Bytes()
	if err != nil {
		return nil, false
	}
	var locked []models.LockedSlot
	if err := json.Unmarshal(data, &locked); err != nil {
		return nil, false
	}
	return locked, true
}

func (s *SlotLockService) cacheSet(ctx context.Context, mentorID primitive.ObjectID, locked []models.LockedSlot) {
	if s.Redis == nil {
		return
	}
	data, err := json.Marshal(locked)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, lockedSlotsCacheKey(mentorID), data, lockedSlotsCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache locked slots for mentor %s: %v", mentorID.Hex(), err)
	}
}

func lockedSlotsCacheKey(mentorID primitive.ObjectID) string {
	return "lockedSlots:" + mentorID.Hex()
}
