package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/errors"
	"github.com/authforge/oauth2/models"
)

// maxTxRetries bounds optimistic-lock retries before giving up.
const maxTxRetries = 3

// NewRedisTokenStore creates a Redis-backed token store.
// addr example: "127.0.0.1:6379"; prefix helps namespace keys.
func NewRedisTokenStore(addr string, prefix string) *RedisTokenStore {
	cli := redis.NewClient(&redis.Options{Addr: addr})
	if prefix == "" {
		prefix = "oauth2:"
	}
	return &RedisTokenStore{cli: cli, prefix: prefix}
}

// RedisTokenStore token storage on Redis. Records live under id:<uuid> with
// code:/access:/refresh: keys mapping a credential to its record id and a
// family:<fid> set indexing records for bulk revocation. Single-use
// guarantees use WATCH/MULTI optimistic locking on the record key.
type RedisTokenStore struct {
	cli    *redis.Client
	prefix string
}

func (rs *RedisTokenStore) key(k string) string { return rs.prefix + k }

// Close the underlying connection pool.
func (rs *RedisTokenStore) Close() error {
	return rs.cli.Close()
}

// Ping checks if Redis is reachable.
func (rs *RedisTokenStore) Ping(ctx context.Context) error {
	return rs.cli.Ping(ctx).Err()
}

// createPipe queues the record and its lookup keys on pipe.
func (rs *RedisTokenStore) createPipe(ctx context.Context, pipe redis.Pipeliner, info oauth2.TokenInfo) error {
	jv, err := json.Marshal(info)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	now := time.Now()
	recTTL := keyTTL(recordDeadline(info), now)

	pipe.Set(ctx, rs.key("id:"+id), string(jv), recTTL)
	if code := info.GetCode(); code != "" {
		ttl := keyTTL(info.GetCodeCreateAt().Add(info.GetCodeExpiresIn()), now)
		pipe.Set(ctx, rs.key("code:"+code), id, ttl)
	}
	if access := info.GetAccess(); access != "" {
		ttl := keyTTL(info.GetAccessCreateAt().Add(info.GetAccessExpiresIn()), now)
		pipe.Set(ctx, rs.key("access:"+access), id, ttl)
	}
	if refresh := info.GetRefresh(); refresh != "" {
		ttl := keyTTL(info.GetRefreshCreateAt().Add(info.GetRefreshExpiresIn()), now)
		pipe.Set(ctx, rs.key("refresh:"+refresh), id, ttl)
	}
	if fid := info.GetFamilyID(); fid != "" {
		fkey := rs.key("family:" + fid)
		pipe.SAdd(ctx, fkey, id)
		pipe.Expire(ctx, fkey, recTTL)
	}
	return nil
}

func keyTTL(deadline time.Time, now time.Time) time.Duration {
	ttl := deadline.Sub(now)
	if ttl <= 0 {
		ttl = time.Second
	}
	return ttl
}

// Create create and store the new token information
func (rs *RedisTokenStore) Create(ctx context.Context, info oauth2.TokenInfo) error {
	_, err := rs.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return rs.createPipe(ctx, pipe, info)
	})
	return err
}

func (rs *RedisTokenStore) getBy(ctx context.Context, key string) (string, *models.Token, error) {
	id, err := rs.cli.Get(ctx, rs.key(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil, errors.ErrTokenNotFound
		}
		return "", nil, err
	}
	jv, err := rs.cli.Get(ctx, rs.key("id:"+id)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil, errors.ErrTokenNotFound
		}
		return "", nil, err
	}
	var tm models.Token
	if err := json.Unmarshal([]byte(jv), &tm); err != nil {
		return "", nil, err
	}
	return id, &tm, nil
}

// GetByCode use the authorization code for token information data
func (rs *RedisTokenStore) GetByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	_, tm, err := rs.getBy(ctx, "code:"+code)
	if err != nil {
		return nil, err
	}
	return tm, nil
}

// GetByAccess use the access token for token information data
func (rs *RedisTokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	_, tm, err := rs.getBy(ctx, "access:"+access)
	if err != nil {
		return nil, err
	}
	return tm, nil
}

// GetByRefresh use the refresh token for token information data
func (rs *RedisTokenStore) GetByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	_, tm, err := rs.getBy(ctx, "refresh:"+refresh)
	if err != nil {
		return nil, err
	}
	return tm, nil
}

// ConsumeAuthorizationCode marks the code consumed under WATCH; a concurrent
// writer aborts the MULTI and the retry observes the consumed flag.
func (rs *RedisTokenStore) ConsumeAuthorizationCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	codeKey := rs.key("code:" + code)
	var out *models.Token

	txf := func(tx *redis.Tx) error {
		id, err := tx.Get(ctx, codeKey).Result()
		if err != nil {
			if err == redis.Nil {
				return errors.ErrTokenNotFound
			}
			return err
		}
		idKey := rs.key("id:" + id)
		if err := tx.Watch(ctx, idKey).Err(); err != nil {
			return err
		}
		jv, err := tx.Get(ctx, idKey).Result()
		if err != nil {
			if err == redis.Nil {
				return errors.ErrTokenNotFound
			}
			return err
		}
		var tm models.Token
		if err := json.Unmarshal([]byte(jv), &tm); err != nil {
			return err
		}
		if tm.CodeConsumed {
			return errors.ErrCodeConsumed
		}
		tm.CodeConsumed = true
		b, err := json.Marshal(&tm)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, idKey, string(b), redis.KeepTTL)
			return nil
		})
		if err == nil {
			out = &tm
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := rs.cli.Watch(ctx, txf, codeKey)
		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	// repeatedly preempted; whoever won has consumed the code
	return nil, errors.ErrCodeConsumed
}

// RotateRefreshToken revokes old and creates replacement inside one MULTI,
// conditional on old still being live at its generation.
func (rs *RedisTokenStore) RotateRefreshToken(ctx context.Context, old oauth2.TokenInfo, replacement oauth2.TokenInfo) error {
	refreshKey := rs.key("refresh:" + old.GetRefresh())

	txf := func(tx *redis.Tx) error {
		id, err := tx.Get(ctx, refreshKey).Result()
		if err != nil {
			if err == redis.Nil {
				return errors.ErrRefreshSuperseded
			}
			return err
		}
		idKey := rs.key("id:" + id)
		if err := tx.Watch(ctx, idKey).Err(); err != nil {
			return err
		}
		jv, err := tx.Get(ctx, idKey).Result()
		if err != nil {
			if err == redis.Nil {
				return errors.ErrRefreshSuperseded
			}
			return err
		}
		var tm models.Token
		if err := json.Unmarshal([]byte(jv), &tm); err != nil {
			return err
		}
		if tm.RefreshRevoked || tm.Generation != old.GetGeneration() {
			return errors.ErrRefreshSuperseded
		}
		tm.RefreshRevoked = true
		b, err := json.Marshal(&tm)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, idKey, string(b), redis.KeepTTL)
			return rs.createPipe(ctx, pipe, replacement)
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := rs.cli.Watch(ctx, txf, refreshKey)
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return errors.ErrRefreshSuperseded
}

// RevokeByAccess marks the access token revoked; unknown tokens are a no-op
func (rs *RedisTokenStore) RevokeByAccess(ctx context.Context, access string) error {
	return rs.revokeBy(ctx, "access:"+access, func(tm *models.Token) {
		tm.AccessRevoked = true
	})
}

// RevokeByRefresh marks the refresh token revoked; unknown tokens are a no-op
func (rs *RedisTokenStore) RevokeByRefresh(ctx context.Context, refresh string) error {
	return rs.revokeBy(ctx, "refresh:"+refresh, func(tm *models.Token) {
		tm.RefreshRevoked = true
	})
}

func (rs *RedisTokenStore) revokeBy(ctx context.Context, key string, mark func(*models.Token)) error {
	id, tm, err := rs.getBy(ctx, key)
	if err != nil {
		if errors.Is(err, errors.ErrTokenNotFound) {
			return nil
		}
		return err
	}
	mark(tm)
	b, err := json.Marshal(tm)
	if err != nil {
		return err
	}
	return rs.cli.Set(ctx, rs.key("id:"+id), string(b), redis.KeepTTL).Err()
}

// RevokeFamily revokes every record that shares the family id.
func (rs *RedisTokenStore) RevokeFamily(ctx context.Context, familyID string) error {
	ids, err := rs.cli.SMembers(ctx, rs.key("family:"+familyID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return err
	}
	for _, id := range ids {
		idKey := rs.key("id:" + id)
		jv, err := rs.cli.Get(ctx, idKey).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return err
		}
		var tm models.Token
		if err := json.Unmarshal([]byte(jv), &tm); err != nil {
			return err
		}
		tm.AccessRevoked = true
		tm.RefreshRevoked = true
		b, err := json.Marshal(&tm)
		if err != nil {
			return err
		}
		if err := rs.cli.Set(ctx, idKey, string(b), redis.KeepTTL).Err(); err != nil {
			return err
		}
	}
	return nil
}
