package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mindmate/models"

	"github.com/go-redis/redis/v8"
)

const draftKeyPrefix = "draft:"

// DraftTTL bounds how long an untouched draft survives. Every save
// refreshes it; no draft persists across a session boundary.
const DraftTTL = 30 * time.Minute

// DraftStore persists transient booking drafts.
type DraftStore interface {
	Save(ctx context.Context, draft *models.BookingDraft) error
	Get(ctx context.Context, draftID string) (*models.BookingDraft, error)
	Delete(ctx context.Context, draftID string) error
}

// RedisDraftStore implements DraftStore on Redis with a TTL.
type RedisDraftStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisDraftStore(client *redis.Client) *RedisDraftStore {
	return &RedisDraftStore{Client: client, TTL: DraftTTL}
}

func (s *RedisDraftStore) Save(ctx context.Context, draft *models.BookingDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal booking draft: %w", err)
	}
	if err := s.Client.Set(ctx, draftKeyPrefix+draft.ID, data, s.TTL).Err(); err != nil {
		return fmt.Errorf("failed to store booking draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Get(ctx context.Context, draftID string) (*models.BookingDraft, error) {
	data, err := s.Client.Get(ctx, draftKeyPrefix+draftID).Result()
	if err == redis.Nil {
		return nil, NewNotFoundError("booking draft not found or expired")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking draft: %w", err)
	}
	var draft models.BookingDraft
	if err := json.Unmarshal([]byte(data), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse booking draft: %w", err)
	}
	return &draft, nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, draftID string) error {
	if err := s.Client.Del(ctx, draftKeyPrefix+draftID).Err(); err != nil {
		return fmt.Errorf("failed to delete booking draft: %w", err)
	}
	return nil
}
