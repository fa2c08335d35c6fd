package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "acct"
	redisCASRetries    = 4
)

// RedisStore defines a public type used by authkit APIs.
//
// RedisStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore describes the newredisstore operation and its observable behavior.
//
// NewRedisStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock overrides the store's time source. Intended for tests.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *RedisStore) recordKey(id string) string {
	return s.prefix + ":id:" + id
}

func (s *RedisStore) emailKey(email string) string {
	return s.prefix + ":email:" + NormalizeEmail(email)
}

// Create describes the create operation and its observable behavior.
//
// Create may return an error when input validation, dependency calls, or security checks fail.
// Create does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) Create(ctx context.Context, acct Account) error {
	acct.Email = NormalizeEmail(acct.Email)

	// The email index is the uniqueness guard: SETNX either claims the email
	// or reports it taken.
	claimed, err := s.redis.SetNX(ctx, s.emailKey(acct.Email), acct.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if !claimed {
		return ErrDuplicateEmail
	}

	encoded, err := json.Marshal(&acct)
	if err != nil {
		_, _ = s.redis.Del(ctx, s.emailKey(acct.Email)).Result()
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	if err := s.redis.Set(ctx, s.recordKey(acct.ID), encoded, 0).Err(); err != nil {
		// Release the claimed email so a retry is not spuriously a duplicate.
		_, _ = s.redis.Del(ctx, s.emailKey(acct.Email)).Result()
		return fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return nil
}

// GetByEmail describes the getbyemail operation and its observable behavior.
//
// GetByEmail may return an error when input validation, dependency calls, or security checks fail.
// GetByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) GetByEmail(ctx context.Context, email string) (Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return s.GetByID(ctx, id)
}

// GetByID describes the getbyid operation and its observable behavior.
//
// GetByID may return an error when input validation, dependency calls, or security checks fail.
// GetByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) GetByID(ctx context.Context, id string) (Account, error) {
	data, err := s.redis.Get(ctx, s.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return Account{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return acct, nil
}

// UpdatePasswordHash describes the updatepasswordhash operation and its observable behavior.
//
// UpdatePasswordHash may return an error when input validation, dependency calls, or security checks fail.
// UpdatePasswordHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) UpdatePasswordHash(ctx context.Context, id, newHash string) error {
	return s.mutate(ctx, id, func(acct *Account) {
		acct.PasswordHash = newHash
	})
}

// SetActive describes the setactive operation and its observable behavior.
//
// SetActive may return an error when input validation, dependency calls, or security checks fail.
// SetActive does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.mutate(ctx, id, func(acct *Account) {
		acct.Active = active
	})
}

// mutate applies apply to the account record under WATCH so concurrent field
// updates never lose writes.
func (s *RedisStore) mutate(ctx context.Context, id string, apply func(*Account)) error {
	key := s.recordKey(id)

	for i := 0; i < redisCASRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			var acct Account
			if err := json.Unmarshal(data, &acct); err != nil {
				return err
			}

			apply(&acct)
			acct.UpdatedAt = s.now().UTC()

			encoded, err := json.Marshal(&acct)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return fmt.Errorf("%w: %v", ErrBackend, err)
		}
		return nil
	}

	return fmt.Errorf("%w: update contention not resolved", ErrBackend)
}
