package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/errors"
	"github.com/authforge/oauth2/models"
)

// NewClientStore create client store (memory)
func NewClientStore() *ClientStore {
	return &ClientStore{
		data: make(map[string]oauth2.ClientInfo),
	}
}

// ClientStore client information store (in-memory)
type ClientStore struct {
	sync.RWMutex
	data map[string]oauth2.ClientInfo
}

// GetByID according to the ID for the client information
func (cs *ClientStore) GetByID(ctx context.Context, id string) (oauth2.ClientInfo, error) {
	cs.RLock()
	defer cs.RUnlock()

	if c, ok := cs.data[id]; ok {
		return c, nil
	}
	return nil, errors.ErrClientNotFound
}

// Set set client information
func (cs *ClientStore) Set(id string, cli oauth2.ClientInfo) (err error) {
	cs.Lock()
	defer cs.Unlock()

	cs.data[id] = cli
	return
}

// --- Persistent client store ---

// ClientRecord is the relational shape of a registered client. List-valued
// fields are stored as JSON text so the schema stays portable across
// postgres and sqlite.
type ClientRecord struct {
	ID              string `gorm:"primaryKey;size:128"`
	Secret          string
	RedirectURIs    string
	GrantTypes      string
	Scopes          string
	TokenAuthMethod string `gorm:"size:32"`
	Public          bool
	Trusted         bool
	Revoked         bool
	PublicKeyPEM    string
	CertThumbprint  string `gorm:"size:64"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName the client table
func (ClientRecord) TableName() string {
	return "oauth2_clients"
}

// NewDBClientStore creates a client store backed by a relational database.
func NewDBClientStore(db *gorm.DB) *DBClientStore {
	return &DBClientStore{db: db}
}

// DBClientStore client information store backed by gorm.
type DBClientStore struct {
	db *gorm.DB
}

// Upsert creates or updates a client registration.
func (s *DBClientStore) Upsert(ctx context.Context, c *models.Client) error {
	uris, _ := json.Marshal(c.RedirectURIs)
	gts := make([]string, 0, len(c.GrantTypes))
	for _, gt := range c.GrantTypes {
		gts = append(gts, string(gt))
	}
	grants, _ := json.Marshal(gts)
	scopes, _ := json.Marshal(c.Scopes)

	rec := &ClientRecord{
		ID:              c.ID,
		Secret:          c.Secret,
		RedirectURIs:    string(uris),
		GrantTypes:      string(grants),
		Scopes:          string(scopes),
		TokenAuthMethod: string(c.TokenAuthMethod),
		Public:          c.Public,
		Trusted:         c.Trusted,
		Revoked:         c.Revoked,
		PublicKeyPEM:    string(c.PublicKeyPEM),
		CertThumbprint:  c.CertThumbprint,
	}
	return s.db.WithContext(ctx).Save(rec).Error
}

// GetByID implements oauth2.ClientStore backed by the database.
func (s *DBClientStore) GetByID(ctx context.Context, id string) (oauth2.ClientInfo, error) {
	var rec ClientRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrClientNotFound
		}
		return nil, err
	}

	var uris, gts, scopes []string
	_ = json.Unmarshal([]byte(rec.RedirectURIs), &uris)
	_ = json.Unmarshal([]byte(rec.GrantTypes), &gts)
	_ = json.Unmarshal([]byte(rec.Scopes), &scopes)
	grants := make([]oauth2.GrantType, 0, len(gts))
	for _, gt := range gts {
		grants = append(grants, oauth2.GrantType(gt))
	}

	return &models.Client{
		ID:              rec.ID,
		Secret:          rec.Secret,
		RedirectURIs:    uris,
		GrantTypes:      grants,
		Scopes:          scopes,
		TokenAuthMethod: oauth2.TokenAuthMethod(rec.TokenAuthMethod),
		Public:          rec.Public,
		Trusted:         rec.Trusted,
		Revoked:         rec.Revoked,
		PublicKeyPEM:    []byte(rec.PublicKeyPEM),
		CertThumbprint:  rec.CertThumbprint,
	}, nil
}

// SetRevoked flips the client kill switch.
func (s *DBClientStore) SetRevoked(ctx context.Context, id string, revoked bool) error {
	return s.db.WithContext(ctx).Model(&ClientRecord{}).
		Where("id = ?", id).
		Update("revoked", revoked).Error
}
