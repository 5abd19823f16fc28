// Package redisstore keeps serial number lookups in Redis, for deployments
// that prefer not to hit PostgreSQL on every scan.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/storage/model"
)

const keyPrefix = "wms:serial:"

var _ model.LookupStore = (*LookupStore)(nil)

type LookupStore struct {
	client *redis.Client
}

func New(addr string, password string, db int) *LookupStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &LookupStore{client: rdb}
}

func (s *LookupStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *LookupStore) Close() error {
	return s.client.Close()
}

func key(serial string) string {
	return keyPrefix + serial
}

func (s *LookupStore) Get(ctx context.Context, serial string) (*models.SerialLookup, error) {
	b, err := s.client.Get(ctx, key(serial)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Persistence(fmt.Errorf("redis get %s: %w", serial, err))
	}
	var e models.SerialLookup
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, apperr.Persistence(fmt.Errorf("invalid cached lookup for %s: %w", serial, err))
	}
	return &e, nil
}

// Upsert stores the entry without expiry. Freshness is decided by the
// caller from LastUpdated.
func (s *LookupStore) Upsert(ctx context.Context, e *models.SerialLookup) error {
	if e.CreatedAt.IsZero() {
		prev, err := s.Get(ctx, e.SerialNumber)
		if err != nil {
			return err
		}
		if prev != nil {
			e.CreatedAt = prev.CreatedAt
		} else {
			e.CreatedAt = e.LastUpdated
		}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return apperr.Persistence(err)
	}
	if err := s.client.Set(ctx, key(e.SerialNumber), b, 0).Err(); err != nil {
		return apperr.Persistence(fmt.Errorf("redis set %s: %w", e.SerialNumber, err))
	}
	return nil
}
