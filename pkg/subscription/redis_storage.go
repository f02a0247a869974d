package subscription

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix     = "relay:sub:"
	redisOwnerPrefix   = "relay:owner:"
	redisGlobalIndex   = "relay:subs"
	redisTimeLayout    = time.RFC3339Nano
	fieldOwnerID       = "owner_id"
	fieldSubID         = "subscription_id"
	fieldKind          = "kind"
	fieldEndpoint      = "endpoint"
	fieldP256dh        = "p256dh"
	fieldAuth          = "auth"
	fieldHandle        = "endpoint_handle"
	fieldDeviceToken   = "device_token"
	fieldBundleID      = "bundle_id"
	fieldPlatform      = "platform"
	fieldStatus        = "status"
	fieldFailureCount  = "failure_count"
	fieldCreatedAt     = "created_at"
	fieldUpdatedAt     = "updated_at"
	fieldLastSentAt    = "last_notification_sent"
)

// RedisStorage persists each subscription as a hash, with a per-owner index
// set and a global index set for owner queries and broadcast scans. The
// failure counter uses HINCRBY so increments stay atomic under concurrent
// dispatches.
type RedisStorage struct {
	client redis.UniversalClient
}

// NewRedisStorage creates a Redis-backed subscription storage.
// Panics if client is nil to fail fast during initialization.
func NewRedisStorage(client redis.UniversalClient) *RedisStorage {
	if client == nil {
		panic("subscription: redis client is required")
	}
	return &RedisStorage{client: client}
}

func (s *RedisStorage) Get(ctx context.Context, ownerID, subID string) (*Subscription, error) {
	fields, err := s.client.HGetAll(ctx, redisRecordKey(ownerID, subID)).Result()
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, ErrSubscriptionNotFound
	}
	return decodeRedisRecord(fields)
}

func (s *RedisStorage) Put(ctx context.Context, sub Subscription) error {
	key := redisRecordKey(sub.OwnerID, sub.ID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// Delete first so overwrite semantics clear fields absent in the new record
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, encodeRedisRecord(sub))
		pipe.SAdd(ctx, redisOwnerKey(sub.OwnerID), key)
		pipe.SAdd(ctx, redisGlobalIndex, key)
		return nil
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) QueryByOwner(ctx context.Context, ownerID string) ([]Subscription, error) {
	keys, err := s.client.SMembers(ctx, redisOwnerKey(ownerID)).Result()
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return s.collect(ctx, keys)
}

func (s *RedisStorage) ScanAll(ctx context.Context) ([]Subscription, error) {
	keys, err := s.client.SMembers(ctx, redisGlobalIndex).Result()
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return s.collect(ctx, keys)
}

func (s *RedisStorage) Delete(ctx context.Context, ownerID, subID string) error {
	key := redisRecordKey(ownerID, subID)
	if err := s.exists(ctx, key); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, redisOwnerKey(ownerID), key)
		pipe.SRem(ctx, redisGlobalIndex, key)
		return nil
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) RecordSuccess(ctx context.Context, ownerID, subID string, at time.Time) error {
	key := redisRecordKey(ownerID, subID)
	if err := s.exists(ctx, key); err != nil {
		return err
	}

	if err := s.client.HSet(ctx, key,
		fieldFailureCount, "0",
		fieldLastSentAt, at.Format(redisTimeLayout),
		fieldUpdatedAt, at.Format(redisTimeLayout),
	).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) RecordFailure(ctx context.Context, ownerID, subID string, terminal bool, at time.Time) error {
	key := redisRecordKey(ownerID, subID)
	if err := s.exists(ctx, key); err != nil {
		return err
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, fieldFailureCount, 1)
		pipe.HSet(ctx, key, fieldUpdatedAt, at.Format(redisTimeLayout))
		if terminal {
			pipe.HSet(ctx, key, fieldStatus, string(StatusInactive))
		}
		return nil
	})
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) exists(ctx context.Context, key string) error {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// collect resolves index members to full records, skipping hashes that no
// longer exist (index drift after concurrent deletes).
func (s *RedisStorage) collect(ctx context.Context, keys []string) ([]Subscription, error) {
	subs := make([]Subscription, 0, len(keys))
	for _, key := range keys {
		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, errors.Join(ErrStoreUnavailable, err)
		}
		if len(fields) == 0 {
			continue
		}
		sub, err := decodeRedisRecord(fields)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, nil
}

func redisRecordKey(ownerID, subID string) string {
	return redisKeyPrefix + ownerID + ":" + subID
}

func redisOwnerKey(ownerID string) string {
	return redisOwnerPrefix + ownerID
}

func encodeRedisRecord(sub Subscription) map[string]string {
	fields := map[string]string{
		fieldOwnerID:      sub.OwnerID,
		fieldSubID:        sub.ID,
		fieldKind:         string(sub.Target.Kind),
		fieldStatus:       string(sub.Status),
		fieldFailureCount: strconv.Itoa(sub.FailureCount),
		fieldCreatedAt:    sub.CreatedAt.Format(redisTimeLayout),
		fieldUpdatedAt:    sub.UpdatedAt.Format(redisTimeLayout),
	}
	if sub.Target.Endpoint != "" {
		fields[fieldEndpoint] = sub.Target.Endpoint
	}
	if sub.Target.P256dh != "" {
		fields[fieldP256dh] = sub.Target.P256dh
	}
	if sub.Target.Auth != "" {
		fields[fieldAuth] = sub.Target.Auth
	}
	if sub.Target.EndpointHandle != "" {
		fields[fieldHandle] = sub.Target.EndpointHandle
	}
	if sub.Target.DeviceToken != "" {
		fields[fieldDeviceToken] = sub.Target.DeviceToken
	}
	if sub.Target.BundleID != "" {
		fields[fieldBundleID] = sub.Target.BundleID
	}
	if sub.Target.Platform != "" {
		fields[fieldPlatform] = sub.Target.Platform
	}
	if sub.LastSentAt != nil {
		fields[fieldLastSentAt] = sub.LastSentAt.Format(redisTimeLayout)
	}
	return fields
}

func decodeRedisRecord(fields map[string]string) (*Subscription, error) {
	failureCount, err := strconv.Atoi(fields[fieldFailureCount])
	if err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	createdAt, err := time.Parse(redisTimeLayout, fields[fieldCreatedAt])
	if err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	updatedAt, err := time.Parse(redisTimeLayout, fields[fieldUpdatedAt])
	if err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}

	sub := &Subscription{
		OwnerID: fields[fieldOwnerID],
		ID:      fields[fieldSubID],
		Target: Target{
			Kind:           TargetKind(fields[fieldKind]),
			Endpoint:       fields[fieldEndpoint],
			P256dh:         fields[fieldP256dh],
			Auth:           fields[fieldAuth],
			EndpointHandle: fields[fieldHandle],
			DeviceToken:    fields[fieldDeviceToken],
			BundleID:       fields[fieldBundleID],
			Platform:       fields[fieldPlatform],
		},
		Status:       Status(fields[fieldStatus]),
		FailureCount: failureCount,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}

	if raw, ok := fields[fieldLastSentAt]; ok && raw != "" {
		lastSent, err := time.Parse(redisTimeLayout, raw)
		if err != nil {
			return nil, errors.Join(ErrCorruptRecord, err)
		}
		sub.LastSentAt = &lastSent
	}

	return sub, nil
}
