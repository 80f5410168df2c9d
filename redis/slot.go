package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/prior-it/clientbook/core"
	"github.com/prior-it/clientbook/store"
)

const slotKeyPrefix = "clientbook:slot:"

// Slot stores the customer list as a single string key.
type Slot struct {
	client *Client
	key    string
}

var _ store.Slot = &Slot{}

func NewSlot(client *Client, name string) *Slot {
	return &Slot{client: client, key: slotKeyPrefix + name}
}

// Load implements store.Slot.Load
func (s *Slot) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errors.Join(core.ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot load %q: %w", s.key, err)
	}
	return data, nil
}

// Save implements store.Slot.Save
func (s *Slot) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("cannot save %q: %w", s.key, err)
	}
	return nil
}

// Clear removes the slot, the next Load will return core.ErrNotFound.
func (s *Slot) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
