package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"cart-gateway/config"
	"cart-gateway/models"
)

// SessionStore keeps one cart per session token.
type SessionStore interface {
	Load(ctx context.Context, token string) (*models.Cart, bool, error)
	Save(ctx context.Context, token string, cart *models.Cart) error
}

// NewSessionStore returns a Redis-backed store when Redis is reachable
// and falls back to process memory otherwise, so local development
// works without any infrastructure.
func NewSessionStore(ttl time.Duration) SessionStore {
	var opt *redis.Options
	if config.AppConfig.RedisURL != "" {
		parsedOpt, err := redis.ParseURL(config.AppConfig.RedisURL)
		if err != nil {
			log.Println("Failed to parse Redis URL:", err)
			log.Println("Using in-memory session store")
			return NewMemoryStore()
		}
		opt = parsedOpt
	} else {
		opt = &redis.Options{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       0,
		}
	}

	client := redis.NewClient(opt)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Println("Redis connection failed:", err)
		log.Println("Using in-memory session store")
		return NewMemoryStore()
	}

	log.Println("Redis session store connected")
	return &redisStore{client: client, ttl: ttl}
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func sessionKey(token string) string {
	return "cart:session:" + token
}

func (s *redisStore) Load(ctx context.Context, token string) (*models.Cart, bool, error) {
	raw, err := s.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cart models.Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		return nil, false, err
	}
	return &cart, true, nil
}

func (s *redisStore) Save(ctx context.Context, token string, cart *models.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(token), raw, s.ttl).Err()
}

// MemoryStore is the in-process fallback, also used by tests.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]models.Cart
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]models.Cart)}
}

func (s *MemoryStore) Load(ctx context.Context, token string) (*models.Cart, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[token]
	if !ok {
		return nil, false, nil
	}
	copied := cart
	copied.Items = make([]models.CartLineItem, len(cart.Items))
	copy(copied.Items, cart.Items)
	return &copied, true, nil
}

func (s *MemoryStore) Save(ctx context.Context, token string, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *cart
	copied.Items = make([]models.CartLineItem, len(cart.Items))
	copy(copied.Items, cart.Items)
	s.carts[token] = copied
	return nil
}
