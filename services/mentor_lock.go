package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	mentorLockTTL   = 10 * time.Second
	mentorLockRetry = 50 * time.Millisecond
)

// unlockScript deletes the lock key only while our token still holds it. The
// compare and the delete must be one server-side step: after a TTL expiry
// another caller may own the key, and a plain GET-then-DEL would remove the
// new holder's lock.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// MentorLocker serializes booking transitions per mentor so two concurrent
// accepts against overlapping slots cannot both pass the availability check.
// Backed by redis SETNX when available; falls back to process-local mutexes
// on single-instance deployments without redis.
type MentorLocker struct {
	Redis *redis.Client
	mu    sync.Mutex
	local map[string]*sync.Mutex
}

// NewMentorLocker creates a new mentor locker
func NewMentorLocker(rdb *redis.Client) *MentorLocker {
	return &MentorLocker{Redis: rdb, local: make(map[string]*sync.Mutex)}
}

// Lock acquires the mentor's advisory lock, blocking until it is held or the
// context expires. The returned function releases it.
func (l *MentorLocker) Lock(ctx context.Context, mentorID primitive.ObjectID) (func(), error) {
	if l.Redis == nil {
		return l.lockLocal(mentorID), nil
	}

	key := "mentorLock:" + mentorID.Hex()
	token := uuid.NewString()

	for {
		ok, err := l.Redis.SetNX(ctx, key, token, mentorLockTTL).Result()
		if err != nil {
			// Redis unavailable mid-flight; degrade to the local lock rather
			// than failing the booking outright.
			return l.lockLocal(mentorID), nil
		}
		if ok {
			release := func() {
				if err := unlockScript.Run(context.Background(), l.Redis, []string{key}, token).Err(); err != nil && err != redis.Nil {
					// The TTL reclaims the lock if the release is lost.
					log.Printf("Failed to release mentor lock %s: %v", key, err)
				}
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for mentor lock: %w", ctx.Err())
		case <-time.After(mentorLockRetry):
		}
	}
}

func (l *MentorLocker) lockLocal(mentorID primitive.ObjectID) func() {
	key := mentorID.Hex()
	l.mu.Lock()
	m, ok := l.local[key]
	if !ok {
		m = &sync.Mutex{}
		l.local[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
