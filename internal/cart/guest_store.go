package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// guestCartTTL bounds how long an untouched guest cart survives.
const guestCartTTL = 14 * 24 * time.Hour

// GuestItem is one line of a guest cart, keyed by game.
type GuestItem struct {
	GameID   uint64  `json:"game_id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// GuestStore holds pre-login carts. Carts are addressed by a client-generated
// opaque token and disappear on merge or TTL expiry.
type GuestStore interface {
	Get(ctx context.Context, token string) ([]GuestItem, error)
	Save(ctx context.Context, token string, items []GuestItem) error
	Delete(ctx context.Context, token string) error
}

// RedisGuestStore is the redis-backed GuestStore.
type RedisGuestStore struct {
	client *redis.Client
}

// NewRedisGuestStore constructs a RedisGuestStore, or nil when addr is empty.
func NewRedisGuestStore(addr, password string, db int) *RedisGuestStore {
	if strings.TrimSpace(addr) == "" {
		return nil
	}
	return &RedisGuestStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// guestKey builds the redis key for a guest token.
func guestKey(token string) string {
	return "guest_cart:" + token
}

// Get returns the guest cart for a token, or an empty slice when absent.
func (s *RedisGuestStore) Get(ctx context.Context, token string) ([]GuestItem, error) {
	raw, errGet := s.client.Get(ctx, guestKey(token)).Result()
	if errGet != nil {
		if errors.Is(errGet, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("guest cart: get: %w", errGet)
	}
	var items []GuestItem
	if errUnmarshal := json.Unmarshal([]byte(raw), &items); errUnmarshal != nil {
		return nil, fmt.Errorf("guest cart: decode: %w", errUnmarshal)
	}
	return items, nil
}

// Save stores the guest cart and refreshes its TTL.
func (s *RedisGuestStore) Save(ctx context.Context, token string, items []GuestItem) error {
	raw, errMarshal := json.Marshal(items)
	if errMarshal != nil {
		return fmt.Errorf("guest cart: encode: %w", errMarshal)
	}
	if errSet := s.client.Set(ctx, guestKey(token), raw, guestCartTTL).Err(); errSet != nil {
		return fmt.Errorf("guest cart: save: %w", errSet)
	}
	return nil
}

// Delete removes the guest cart for a token.
func (s *RedisGuestStore) Delete(ctx context.Context, token string) error {
	if errDel := s.client.Del(ctx, guestKey(token)).Err(); errDel != nil {
		return fmt.Errorf("guest cart: delete: %w", errDel)
	}
	return nil
}
