package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/errors"
	"github.com/authforge/oauth2/models"
)

// TokenRecord is the relational shape of one issuance event. Durations are
// stored as nanoseconds; expires_at is a denormalized horizon for the
// cleanup sweep.
type TokenRecord struct {
	ID          string `gorm:"primaryKey;size:64"`
	ClientID    string `gorm:"index;size:128"`
	UserID      string `gorm:"size:128"`
	RedirectURI string
	Scope       string
	Audience    string
	FamilyID    string `gorm:"index;size:64"`
	Generation  int64

	Code                string `gorm:"index;size:256"`
	CodeCreateAt        time.Time
	CodeExpiresIn       int64
	CodeChallenge       string `gorm:"size:128"`
	CodeChallengeMethod string `gorm:"size:16"`
	CodeConsumed        bool

	Access          string `gorm:"index;size:512"`
	AccessCreateAt  time.Time
	AccessExpiresIn int64
	AccessRevoked   bool

	Refresh          string `gorm:"index;size:512"`
	RefreshCreateAt  time.Time
	RefreshExpiresIn int64
	RefreshRevoked   bool

	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

// TableName the token table
func (TokenRecord) TableName() string {
	return "oauth2_tokens"
}

func recordFromInfo(info oauth2.TokenInfo) *TokenRecord {
	aud, _ := json.Marshal(info.GetAudience())
	return &TokenRecord{
		ID:          uuid.NewString(),
		ClientID:    info.GetClientID(),
		UserID:      info.GetUserID(),
		RedirectURI: info.GetRedirectURI(),
		Scope:       info.GetScope(),
		Audience:    string(aud),
		FamilyID:    info.GetFamilyID(),
		Generation:  info.GetGeneration(),

		Code:                info.GetCode(),
		CodeCreateAt:        info.GetCodeCreateAt(),
		CodeExpiresIn:       int64(info.GetCodeExpiresIn()),
		CodeChallenge:       info.GetCodeChallenge(),
		CodeChallengeMethod: string(info.GetCodeChallengeMethod()),
		CodeConsumed:        info.IsCodeConsumed(),

		Access:          info.GetAccess(),
		AccessCreateAt:  info.GetAccessCreateAt(),
		AccessExpiresIn: int64(info.GetAccessExpiresIn()),
		AccessRevoked:   info.IsAccessRevoked(),

		Refresh:          info.GetRefresh(),
		RefreshCreateAt:  info.GetRefreshCreateAt(),
		RefreshExpiresIn: int64(info.GetRefreshExpiresIn()),
		RefreshRevoked:   info.IsRefreshRevoked(),

		ExpiresAt: recordDeadline(info),
		CreatedAt: time.Now(),
	}
}

func (r *TokenRecord) toInfo() oauth2.TokenInfo {
	var aud []string
	if r.Audience != "" {
		_ = json.Unmarshal([]byte(r.Audience), &aud)
	}
	return &models.Token{
		ClientID:    r.ClientID,
		UserID:      r.UserID,
		RedirectURI: r.RedirectURI,
		Scope:       r.Scope,
		Audience:    aud,
		FamilyID:    r.FamilyID,
		Generation:  r.Generation,

		Code:                r.Code,
		CodeCreateAt:        r.CodeCreateAt,
		CodeExpiresIn:       time.Duration(r.CodeExpiresIn),
		CodeChallenge:       r.CodeChallenge,
		CodeChallengeMethod: oauth2.CodeChallengeMethod(r.CodeChallengeMethod),
		CodeConsumed:        r.CodeConsumed,

		Access:          r.Access,
		AccessCreateAt:  r.AccessCreateAt,
		AccessExpiresIn: time.Duration(r.AccessExpiresIn),
		AccessRevoked:   r.AccessRevoked,

		Refresh:          r.Refresh,
		RefreshCreateAt:  r.RefreshCreateAt,
		RefreshExpiresIn: time.Duration(r.RefreshExpiresIn),
		RefreshRevoked:   r.RefreshRevoked,
	}
}

// NewDBTokenStore creates a token store on a relational database. Single-use
// guarantees come from conditional UPDATEs: the row's rows-affected count
// decides the winner, no row locks held across application code.
func NewDBTokenStore(db *gorm.DB) *DBTokenStore {
	return &DBTokenStore{db: db}
}

// DBTokenStore token storage backed by gorm.
type DBTokenStore struct {
	db *gorm.DB
}

// Create create and store the new token information
func (s *DBTokenStore) Create(ctx context.Context, info oauth2.TokenInfo) error {
	return s.db.WithContext(ctx).Create(recordFromInfo(info)).Error
}

func (s *DBTokenStore) getBy(ctx context.Context, column, token string) (oauth2.TokenInfo, error) {
	if token == "" {
		return nil, errors.ErrTokenNotFound
	}
	var rec TokenRecord
	err := s.db.WithContext(ctx).Where(column+" = ?", token).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrTokenNotFound
		}
		return nil, err
	}
	return rec.toInfo(), nil
}

// GetByCode use the authorization code for token information data
func (s *DBTokenStore) GetByCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	return s.getBy(ctx, "code", code)
}

// GetByAccess use the access token for token information data
func (s *DBTokenStore) GetByAccess(ctx context.Context, access string) (oauth2.TokenInfo, error) {
	return s.getBy(ctx, "access", access)
}

// GetByRefresh use the refresh token for token information data
func (s *DBTokenStore) GetByRefresh(ctx context.Context, refresh string) (oauth2.TokenInfo, error) {
	return s.getBy(ctx, "refresh", refresh)
}

// ConsumeAuthorizationCode flips code_consumed with a conditional UPDATE;
// exactly one of any set of racing callers sees rows-affected = 1.
func (s *DBTokenStore) ConsumeAuthorizationCode(ctx context.Context, code string) (oauth2.TokenInfo, error) {
	if code == "" {
		return nil, errors.ErrTokenNotFound
	}
	res := s.db.WithContext(ctx).Model(&TokenRecord{}).
		Where("code = ? AND code_consumed = ?", code, false).
		Update("code_consumed", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// distinguish a lost race from an unknown code
		if _, err := s.getBy(ctx, "code", code); err != nil {
			return nil, err
		}
		return nil, errors.ErrCodeConsumed
	}
	return s.getBy(ctx, "code", code)
}

// RotateRefreshToken revokes old and inserts replacement in one database
// transaction, conditional on old still being live at its generation.
func (s *DBTokenStore) RotateRefreshToken(ctx context.Context, old oauth2.TokenInfo, replacement oauth2.TokenInfo) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&TokenRecord{}).
			Where("refresh = ? AND refresh_revoked = ? AND generation = ?",
				old.GetRefresh(), false, old.GetGeneration()).
			Update("refresh_revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.ErrRefreshSuperseded
		}
		return tx.Create(recordFromInfo(replacement)).Error
	})
}

// RevokeByAccess marks the access token revoked; unknown tokens are a no-op
func (s *DBTokenStore) RevokeByAccess(ctx context.Context, access string) error {
	if access == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&TokenRecord{}).
		Where("access = ?", access).
		Update("access_revoked", true).Error
}

// RevokeByRefresh marks the refresh token revoked; unknown tokens are a no-op
func (s *DBTokenStore) RevokeByRefresh(ctx context.Context, refresh string) error {
	if refresh == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&TokenRecord{}).
		Where("refresh = ?", refresh).
		Update("refresh_revoked", true).Error
}

// RevokeFamily revokes every record that shares the family id.
func (s *DBTokenStore) RevokeFamily(ctx context.Context, familyID string) error {
	if familyID == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&TokenRecord{}).
		Where("family_id = ?", familyID).
		Updates(map[string]interface{}{
			"access_revoked":  true,
			"refresh_revoked": true,
		}).Error
}

// PurgeExpired removes records whose every credential is past its deadline.
// Meant for a periodic sweep, not the request path.
func (s *DBTokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&TokenRecord{})
	return res.RowsAffected, res.Error
}
