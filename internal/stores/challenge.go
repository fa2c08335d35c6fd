package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeRecordVersion1 = 1

// Kind tags which flow a challenge record belongs to.
type Kind uint8

const (
	KindLoginOTP Kind = iota + 1
	KindResetOTP
	KindResetToken
)

func (k Kind) keyToken() string {
	switch k {
	case KindLoginOTP:
		return "lo"
	case KindResetOTP:
		return "ro"
	case KindResetToken:
		return "rt"
	default:
		return "xx"
	}
}

var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrChallengeExceeded = errors.New("challenge attempts exceeded")
	ErrChallengeBackend  = errors.New("challenge backend unavailable")
)

// ChallengeRecord is one pending secret: the argon2 digest of the code or
// token, its deadline, the attempt count so far, and when it was issued
// (for resend cooldown). Target keeps the delivery address for masked
// display; the plaintext secret is never stored. ChallengeID is set only
// for bearer-token records, where the presented token must name the exact
// record it was minted from.
type ChallengeRecord struct {
	Kind        Kind
	AccountID   string
	Target      string
	Digest      string
	ChallengeID string
	ExpiresAt   int64
	RequestedAt int64
	Attempts    uint16
}

// ChallengeStore persists challenge records in Redis with a TTL mirroring
// the record's expiry.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "ach"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock overrides the store's time source. Intended for tests.
func (s *ChallengeStore) WithClock(now func() time.Time) *ChallengeStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *ChallengeStore) key(kind Kind, accountID string) string {
	return s.prefix + ":" + kind.keyToken() + ":" + accountID
}

// Save writes the record, replacing any previous challenge of the same kind
// for the account. Re-issuing therefore always overwrites, never accumulates.
func (s *ChallengeStore) Save(ctx context.Context, record *ChallengeRecord, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: non-positive ttl", ErrChallengeBackend)
	}
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(record.Kind, record.AccountID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

// Get loads the pending record. A record past its deadline is purged and
// reported as ErrChallengeExpired — expiry is detected lazily, there is no
// background sweep.
func (s *ChallengeStore) Get(ctx context.Context, kind Kind, accountID string) (*ChallengeRecord, error) {
	data, err := s.redis.Get(ctx, s.key(kind, accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	record, err := decodeChallengeRecord(data)
	if err != nil {
		return nil, err
	}
	if s.now().Unix() >= record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(kind, accountID)).Result()
		return nil, ErrChallengeExpired
	}
	return record, nil
}

// Delete purges the record and reports whether one was present. Callers use
// the boolean to detect a concurrent consume of the same challenge.
func (s *ChallengeStore) Delete(ctx context.Context, kind Kind, accountID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(kind, accountID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return n > 0, nil
}

// RecordFailure increments the attempt counter under WATCH. When the counter
// reaches maxAttempts the record is purged and exceeded=true is returned; a
// later submission of even the correct secret then finds nothing pending.
func (s *ChallengeStore) RecordFailure(ctx context.Context, kind Kind, accountID string, maxAttempts int) (bool, error) {
	const maxRetries = 4
	key := s.key(kind, accountID)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeChallengeRecord(data)
			if err != nil {
				return err
			}
			if s.now().Unix() >= record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return nil
			}

			ttl := time.Unix(record.ExpiresAt, 0).Sub(s.now())
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			updated, err := encodeChallengeRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, ErrChallengeNotFound
			}
			if errors.Is(err, ErrChallengeExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return exceeded, nil
	}

	return false, ErrChallengeNotFound
}

func encodeChallengeRecord(record *ChallengeRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)
	buf.WriteByte(byte(record.Kind))

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.RequestedAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.AccountID, record.Target, record.Digest, record.ChallengeID} {
		if len(field) > 65535 {
			return nil, errors.New("challenge field length exceeded")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (*ChallengeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion1 {
		return nil, errors.New("invalid challenge record version")
	}

	kind, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &ChallengeRecord{Kind: Kind(kind)}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.RequestedAt); err != nil {
		return nil, err
	}

	for _, field := range []*string{&record.AccountID, &record.Target, &record.Digest, &record.ChallengeID} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	return record, nil
}
