package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therenotomorrow/ex"
)

const (
	ErrNotFound ex.Error = "paste not found"
	ErrExists   ex.Error = "paste id already taken"
)

// Paste is what the API stores and returns on reads.
type Paste struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Syntax    string    `json:"syntax"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store keeps pastes until they expire. Save must not overwrite an existing
// id; it returns ErrExists instead.
type Store interface {
	Save(ctx context.Context, p *Paste) error
	Get(ctx context.Context, id string) (*Paste, error)
	Close() error
}

type MemoryStore struct {
	mut    sync.RWMutex
	pastes map[string]*Paste
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pastes: make(map[string]*Paste), now: time.Now}
}

func (m *MemoryStore) Save(_ context.Context, p *Paste) error {
	m.mut.Lock()
	defer m.mut.Unlock()
	if old, ok := m.pastes[p.ID]; ok && m.now().Before(old.ExpiresAt) {
		return ErrExists
	}
	m.pastes[p.ID] = p
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Paste, error) {
	m.mut.RLock()
	defer m.mut.RUnlock()
	p, ok := m.pastes[id]
	if !ok || !m.now().Before(p.ExpiresAt) {
		return nil, ErrNotFound
	}
	return p, nil
}

// DeleteExpired drops every paste past its expiry and returns how many went.
func (m *MemoryStore) DeleteExpired() int {
	m.mut.Lock()
	defer m.mut.Unlock()
	now := m.now()
	deleted := 0
	for id, p := range m.pastes {
		if !now.Before(p.ExpiresAt) {
			delete(m.pastes, id)
			deleted++
		}
	}
	return deleted
}

func (m *MemoryStore) Close() error {
	return nil
}

// RedisStore keeps each paste as a JSON value under its id; redis expires
// the key, so there is nothing to clean up.
type RedisStore struct {
	rdb *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(ctx context.Context, addr string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func key(id string) string {
	return "paste:" + id
}

func (r *RedisStore) Save(ctx context.Context, p *Paste) error {
	value, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding paste %s: %w", p.ID, err)
	}
	ok, err := r.rdb.SetNX(ctx, key(p.ID), value, time.Until(p.ExpiresAt)).Result()
	if err != nil {
		return fmt.Errorf("saving paste %s: %w", p.ID, err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Paste, error) {
	value, err := r.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting paste %s: %w", id, err)
	}
	var p Paste
	if err := json.Unmarshal(value, &p); err != nil {
		return nil, fmt.Errorf("decoding paste %s: %w", id, err)
	}
	return &p, nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
