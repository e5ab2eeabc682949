package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/buntdb"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/errors"
	"github.com/authforge/oauth2/models"
)

// NewMemoryTokenStore create a store instance based on memory
func NewMemoryTokenStore() (oauth2.TokenStore, error) {
	return NewFileTokenStore(":memory:")
}

// NewFileTokenStore create a store instance based on file
func NewFileTokenStore(filename string) (oauth2.TokenStore, error) {
	db, err := buntdb.Open(filename)
	if err != nil {
		return nil, err
	}
	return &TokenStore{db: db}, nil
}

// TokenStore token storage based on buntdb(https://github.com/tidwall/buntdb).
// Records live under id:<uuid>; the code/access/refresh keys map a credential
// to its record id, and family:<fid>:<id> keys index records for bulk
// revocation. Every mutation runs inside a single writable transaction, which
// is what makes ConsumeAuthorizationCode and RotateRefreshToken admit exactly
// one winner.
type TokenStore struct {
	db *buntdb.DB
}

// Close the token store on service shutdown.
func (ts *TokenStore) Close() error {
	return ts.db.Close()
}

// Create create and store the new token information
func (ts *TokenStore) Create(ctx context.Context, info oauth2.TokenInfo) error {
	return ts.db.Update(func(tx *buntdb.Tx) error {
		_, err := createTx(tx, info)
		return err
	})
}

// createTx persists a record and its lookup keys inside tx.
func createTx(tx *buntdb.Tx, info oauth2.TokenInfo) (string, error) {
	jv, err := json.Marshal(info)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	now := time.Now()
	opts := expireOpts(recordDeadline(info), now)
	if _, _, err := tx.Set("id:"+id, string(jv), opts); err != nil {
		return "", err
	}

	if code := info.GetCode(); code != "" {
		deadline := info.GetCodeCreateAt().Add(info.GetCodeExpiresIn())
		if _, _, err := tx.Set("code:"+code, id, expireOpts(deadline, now)); err != nil {
			return "", err
		}
	}
	if access := info.GetAccess(); access != "" {
		deadline := info.GetAccessCreateAt().Add(info.GetAccessExpiresIn())
		if _, _, err := tx.Set("access:"+access, id, expireOpts(deadline, now)); err != nil {
			return "", err
		}
	}
	if refresh := info.GetRefresh(); refresh != "" {
		deadline := info.GetRefreshCreateAt().Add(info.GetRefreshExpiresIn())
		if _, _, err := tx.Set("refresh:"+refresh, id, expireOpts(deadline, now)); err != nil {
			return "", err
		}
	}
	if fid := info.GetFamilyID(); fid != "" {
		if _, _, err := tx.Set("family:"+fid+":"+id, id, opts); err != nil {
			return "", err
		}
	}
	return id, nil
}

// recordDeadline returns the latest expiry among the credentials a record
// carries; the primary key lives at least as long as any lookup key.
func recordDeadline(info oauth2.TokenInfo) time.Time {
	var deadline time.Time
	if info.GetCode() != "" {
		deadline = info.GetCodeCreateAt().Add(info.GetCodeExpiresIn())
	}
	if info.GetAccess() != "" {
		if d := info.GetAccessCreateAt().Add(info.GetAccessExpiresIn()); d.After(deadline) {
			deadline = d
		}
	}
	if info.GetRefresh() != "" {
		if d := info.GetRefreshCreateAt().Add(info.GetRefreshExpiresIn()); d.After(deadline) {
			deadline = d
		}
	}
	return deadline
}

func expireOpts(deadline time.Time, now time.Time) *buntdb.SetOptions {
	if deadline.IsZero() {
		return nil
	}
	ttl := deadline.Sub(now)
	if ttl <= 0 {
		// already expired records stay briefly visible; reads still
		// reject them on their own timestamps
		ttl = time.Second
	}
	return &buntdb.SetOptions{Expires: true, TTL: ttl}
}

// loadTx reads and decodes the record behind a lookup key.
func loadTx(tx *buntdb.Tx, key string) (string, *models.Token, error) {
	id, err := tx.Get(key)
	if err != nil {
		if err == buntdb.ErrNotFound {
			return "", nil, errors.ErrTokenNotFound
		}
		return "", nil, err
	}
	jv, err := tx.Get("id:" + id)
	if err != nil {
		if err == buntdb.ErrNotFound {
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

// saveTx writes a record back preserving its expiry.
func saveTx(tx *buntdb.Tx, id string, tm *models.Token) error {
	jv, err := json.Marshal(tm)
	if err != nil {
		return err
	}
	_, _, err = tx.Set("id:"+id, string(jv), expireOpts(recordDeadline(tm), time.Now()))
	return err
}

func (ts *TokenStore) getBy(key string) (oauth2.TokenInfo, error) {
	var tm *models.Token
	err := ts.db.View(func(tx *buntdb.Tx) error {
		var err error
		_, tm, err = loadTx(tx, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tm, nil
}

// GetByCode use the authorization code for token information data
func (ts *TokenStore) GetByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	return ts.getBy("code:" + code)
}

// GetByAccess use the access token for token information data
func (ts *TokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	return ts.getBy("access:" + access)
}

// GetByRefresh use the refresh token for token information data
func (ts *TokenStore) GetByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	return ts.getBy("refresh:" + refresh)
}

// ConsumeAuthorizationCode marks the code consumed; the writable transaction
// serializes racing callers so only the first one sees it unconsumed.
func (ts *TokenStore) ConsumeAuthorizationCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	var tm *models.Token
	err := ts.db.Update(func(tx *buntdb.Tx) error {
		id, rec, err := loadTx(tx, "code:"+code)
		if err != nil {
			return err
		}
		if rec.CodeConsumed {
			return errors.ErrCodeConsumed
		}
		rec.CodeConsumed = true
		if err := saveTx(tx, id, rec); err != nil {
			return err
		}
		tm = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tm, nil
}

// RotateRefreshToken revokes old and persists replacement in one transaction,
// provided old is still the live latest generation of its family.
func (ts *TokenStore) RotateRefreshToken(ctx context.Context, old oauth2.TokenInfo, replacement oauth2.TokenInfo) error {
	return ts.db.Update(func(tx *buntdb.Tx) error {
		id, rec, err := loadTx(tx, "refresh:"+old.GetRefresh())
		if err != nil {
			if errors.Is(err, errors.ErrTokenNotFound) {
				return errors.ErrRefreshSuperseded
			}
			return err
		}
		if rec.RefreshRevoked || rec.Generation != old.GetGeneration() {
			return errors.ErrRefreshSuperseded
		}
		rec.RefreshRevoked = true
		if err := saveTx(tx, id, rec); err != nil {
			return err
		}
		_, err = createTx(tx, replacement)
		return err
	})
}

// RevokeByAccess marks the access token revoked; unknown tokens are a no-op
func (ts *TokenStore) RevokeByAccess(ctx context.Context, access string) error {
	return ts.revokeBy("access:"+access, func(tm *models.Token) {
		tm.AccessRevoked = true
	})
}

// RevokeByRefresh marks the refresh token revoked; unknown tokens are a no-op
func (ts *TokenStore) RevokeByRefresh(ctx context.Context, refresh string) error {
	return ts.revokeBy("refresh:"+refresh, func(tm *models.Token) {
		tm.RefreshRevoked = true
	})
}

func (ts *TokenStore) revokeBy(key string, mark func(*models.Token)) error {
	return ts.db.Update(func(tx *buntdb.Tx) error {
		id, rec, err := loadTx(tx, key)
		if err != nil {
			if errors.Is(err, errors.ErrTokenNotFound) {
				return nil
			}
			return err
		}
		mark(rec)
		return saveTx(tx, id, rec)
	})
}

// RevokeFamily revokes every record that shares the family id.
func (ts *TokenStore) RevokeFamily(ctx context.Context, familyID string) error {
	return ts.db.Update(func(tx *buntdb.Tx) error {
		var ids []string
		err := tx.AscendKeys("family:"+familyID+":*", func(key, value string) bool {
			ids = append(ids, value)
			return true
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			jv, err := tx.Get("id:" + id)
			if err != nil {
				if err == buntdb.ErrNotFound {
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
			if err := saveTx(tx, id, &tm); err != nil {
				return err
			}
		}
		return nil
	})
}
