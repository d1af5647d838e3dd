package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists carts in Redis with a sliding TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}

// Get loads the cart for the session. A missing key yields an empty cart.
func (s *Store) Get(ctx context.Context, sessionID string) (Cart, error) {
	payload, err := s.client.Get(ctx, cartKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{SessionID: sessionID}, nil
		}
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal(payload, &c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// Save writes the cart back and refreshes the TTL.
func (s *Store) Save(ctx context.Context, c Cart) error {
	c.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cartKey(c.SessionID), data, s.ttl).Err()
}

// Delete drops the cart.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx, cartKey(sessionID)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
