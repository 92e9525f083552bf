package authgate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/authgate-io/authgate/cache"
)

// verificationRecord is the cached proof-of-ownership state for one phone
// number. At most one record is live per phone; the extra field binds the
// record to the national or company code it was requested for.
type verificationRecord struct {
	Code  string `json:"code"`
	Extra string `json:"extra"`
}

// verificationStore keeps verification records in the shared cache under a
// phone-number key. Lifecycle is entirely TTL-driven: created on send, read
// on verify, deleted on consume, expired by the cache when untouched.
type verificationStore struct {
	cache  cache.Cache
	prefix string
}

func newVerificationStore(c cache.Cache, prefix string) *verificationStore {
	return &verificationStore{
		cache:  c,
		prefix: prefix,
	}
}

func (s *verificationStore) key(phone string) string {
	return s.prefix + ":" + phone
}

// Get returns the live record for phone, or nil when none exists.
func (s *verificationStore) Get(ctx context.Context, phone string) (*verificationRecord, error) {
	data, err := s.cache.Get(ctx, s.key(phone))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	record := &verificationRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("%w: corrupt record: %v", ErrVerificationUnavailable, err)
	}
	return record, nil
}

// Save writes the record for phone, replacing any live one. The last
// successful save wins.
func (s *verificationStore) Save(ctx context.Context, phone string, record *verificationRecord, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	if err := s.cache.Set(ctx, s.key(phone), data, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return nil
}

// Delete consumes the record for phone.
func (s *verificationStore) Delete(ctx context.Context, phone string) error {
	if err := s.cache.Delete(ctx, s.key(phone)); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return nil
}
