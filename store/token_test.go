package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authforge/oauth2"
	"github.com/authforge/oauth2/errors"
	"github.com/authforge/oauth2/models"
)

func newStore(t *testing.T) oauth2.TokenStore {
	t.Helper()
	ts, err := NewMemoryTokenStore()
	require.NoError(t, err)
	return ts
}

func codeToken(code, family string) *models.Token {
	return &models.Token{
		ClientID:      "c1",
		UserID:        "u1",
		RedirectURI:   "https://app.example.com/cb",
		Scope:         "read",
		FamilyID:      family,
		Code:          code,
		CodeCreateAt:  time.Now(),
		CodeExpiresIn: 10 * time.Minute,
	}
}

func pairToken(access, refresh, family string, generation int64) *models.Token {
	now := time.Now()
	return &models.Token{
		ClientID:         "c1",
		UserID:           "u1",
		Scope:            "read",
		FamilyID:         family,
		Generation:       generation,
		Access:           access,
		AccessCreateAt:   now,
		AccessExpiresIn:  time.Hour,
		Refresh:          refresh,
		RefreshCreateAt:  now,
		RefreshExpiresIn: 30 * 24 * time.Hour,
	}
}

func TestTokenStoreLookups(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()

	require.NoError(t, ts.Create(ctx, codeToken("code-1", "fam-1")))
	require.NoError(t, ts.Create(ctx, pairToken("acc-1", "ref-1", "fam-1", 1)))

	got, err := ts.GetByCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.GetClientID())
	assert.Equal(t, "fam-1", got.GetFamilyID())

	got, err = ts.GetByAccess(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, "ref-1", got.GetRefresh())

	got, err = ts.GetByRefresh(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.GetGeneration())

	_, err = ts.GetByCode(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrTokenNotFound)
	_, err = ts.GetByAccess(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrTokenNotFound)
	_, err = ts.GetByRefresh(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrTokenNotFound)
}

func TestConsumeAuthorizationCodeOnce(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()

	require.NoError(t, ts.Create(ctx, codeToken("code-1", "fam-1")))

	ti, err := ts.ConsumeAuthorizationCode(ctx, "code-1")
	require.NoError(t, err)
	assert.True(t, ti.IsCodeConsumed())

	_, err = ts.ConsumeAuthorizationCode(ctx, "code-1")
	assert.ErrorIs(t, err, errors.ErrCodeConsumed)

	_, err = ts.ConsumeAuthorizationCode(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrTokenNotFound)
}

func TestConsumeAuthorizationCodeConcurrent(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()

	require.NoError(t, ts.Create(ctx, codeToken("code-1", "fam-1")))

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ts.ConsumeAuthorizationCode(ctx, "code-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, errors.ErrCodeConsumed)
		}
	}
	assert.Equal(t, 1, winners, "exactly one redemption may win")
}

func TestRotateRefreshToken(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()

	old := pairToken("acc-1", "ref-1", "fam-1", 1)
	require.NoError(t, ts.Create(ctx, old))

	replacement := pairToken("acc-2", "ref-2", "fam-1", 2)
	require.NoError(t, ts.RotateRefreshToken(ctx, old, replacement))

	rotated, err := ts.GetByRefresh(ctx, "ref-1")
	require.NoError(t, err)
	assert.True(t, rotated.IsRefreshRevoked())

	successor, err := ts.GetByRefresh(ctx, "ref-2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), successor.GetGeneration())
	assert.False(t, successor.IsRefreshRevoked())

	// presenting the superseded token again loses
	err = ts.RotateRefreshToken(ctx, old, pairToken("acc-3", "ref-3", "fam-1", 2))
	assert.ErrorIs(t, err, errors.ErrRefreshSuperseded)
	_, err = ts.GetByRefresh(ctx, "ref-3")
	assert.ErrorIs(t, err, errors.ErrTokenNotFound, "a lost rotation writes nothing")
}

func TestRotateRefreshTokenConcurrent(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()

	old := pairToken("acc-1", "ref-1", "fam-1", 1)
	require.NoError(t, ts.Create(ctx, old))

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			repl := pairToken(
				fmt.Sprintf("acc-w%d", i),
				fmt.Sprintf("ref-w%d", i),
				"fam-1", 2,
			)
			results <- ts.RotateRefreshToken(ctx, old, repl)
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, errors.ErrRefreshSuperseded)
		}
	}
	assert.Equal(t, 1, winners, "exactly one rotation may win per generation")
}

func TestRevokeByAccessAndRefresh(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()

	require.NoError(t, ts.Create(ctx, pairToken("acc-1", "ref-1", "fam-1", 1)))

	require.NoError(t, ts.RevokeByAccess(ctx, "acc-1"))
	ti, err := ts.GetByAccess(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, ti.IsAccessRevoked())
	assert.False(t, ti.IsRefreshRevoked(), "sibling refresh untouched")

	require.NoError(t, ts.RevokeByRefresh(ctx, "ref-1"))
	ti, err = ts.GetByRefresh(ctx, "ref-1")
	require.NoError(t, err)
	assert.True(t, ti.IsRefreshRevoked())

	// unknown tokens are acknowledged silently
	assert.NoError(t, ts.RevokeByAccess(ctx, "missing"))
	assert.NoError(t, ts.RevokeByRefresh(ctx, "missing"))
}

func TestRevokeFamily(t *testing.T) {
	ts := newStore(t)
	ctx := context.Background()

	require.NoError(t, ts.Create(ctx, pairToken("acc-1", "ref-1", "fam-1", 1)))
	require.NoError(t, ts.Create(ctx, pairToken("acc-2", "ref-2", "fam-1", 2)))
	require.NoError(t, ts.Create(ctx, pairToken("acc-x", "ref-x", "fam-other", 1)))

	require.NoError(t, ts.RevokeFamily(ctx, "fam-1"))

	for _, access := range []string{"acc-1", "acc-2"} {
		ti, err := ts.GetByAccess(ctx, access)
		require.NoError(t, err)
		assert.True(t, ti.IsAccessRevoked())
		assert.True(t, ti.IsRefreshRevoked())
	}

	other, err := ts.GetByAccess(ctx, "acc-x")
	require.NoError(t, err)
	assert.False(t, other.IsAccessRevoked(), "other families stay live")
}

func TestClientStore(t *testing.T) {
	cs := NewClientStore()
	require.NoError(t, cs.Set("c1", &models.Client{ID: "c1", Secret: "s"}))

	cli, err := cs.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", cli.GetID())

	_, err = cs.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, errors.ErrClientNotFound)
}
