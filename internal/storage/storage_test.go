package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(owner string) *models.StakeRecord {
	id := uuid.New()
	return &models.StakeRecord{
		ID:        id,
		Owner:     owner,
		Amount:    100,
		StartTime: 0,
		Duration:  3600,
		Status:    models.StakeStatusActive,
		Vault:     "program/vault/" + id.String(),
	}
}

func TestMemoryStakeStore_CreateStakeRollsBackOnLockFailure(t *testing.T) {
	store := NewMemoryStakeStore()
	ctx := context.Background()
	rec := newRecord("alice")
	lockErr := errors.New("insufficient funds")

	err := store.CreateStake(ctx, rec, func(context.Context) error { return lockErr })
	assert.ErrorIs(t, err, lockErr)

	_, err = store.GetStake(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStakeStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStakeStore()
	ctx := context.Background()
	rec := newRecord("alice")

	require.NoError(t, store.CreateStake(ctx, rec, func(context.Context) error { return nil }))
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.GetStake(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, *rec, *got)
}

func TestMemoryStakeStore_UpdateStakeDiscardsFailedMutation(t *testing.T) {
	store := NewMemoryStakeStore()
	ctx := context.Background()
	rec := newRecord("alice")
	require.NoError(t, store.CreateStake(ctx, rec, func(context.Context) error { return nil }))

	applyErr := errors.New("rejected")
	_, err := store.UpdateStake(ctx, rec.ID, func(_ context.Context, r *models.StakeRecord) error {
		r.Claimed = true
		r.Status = models.StakeStatusClaimed
		return applyErr
	})
	assert.ErrorIs(t, err, applyErr)

	got, err := store.GetStake(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, got.Claimed)
	assert.Equal(t, models.StakeStatusActive, got.Status)
}

func TestMemoryStakeStore_UpdateStakePersistsMutation(t *testing.T) {
	store := NewMemoryStakeStore()
	ctx := context.Background()
	rec := newRecord("alice")
	require.NoError(t, store.CreateStake(ctx, rec, func(context.Context) error { return nil }))

	claimedAt := time.Unix(3600, 0)
	updated, err := store.UpdateStake(ctx, rec.ID, func(_ context.Context, r *models.StakeRecord) error {
		r.Claimed = true
		r.Status = models.StakeStatusClaimed
		r.ClaimedAt = &claimedAt
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.Claimed)

	got, err := store.GetStake(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.Claimed)
	require.NotNil(t, got.ClaimedAt)
	assert.True(t, claimedAt.Equal(*got.ClaimedAt))
}

func TestMemoryStakeStore_UpdateUnknownStake(t *testing.T) {
	store := NewMemoryStakeStore()
	_, err := store.UpdateStake(context.Background(), uuid.New(), func(context.Context, *models.StakeRecord) error {
		t.Fatal("apply must not run for unknown records")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStakeStore_ListStakesByOwner(t *testing.T) {
	store := NewMemoryStakeStore()
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	first := newRecord("alice")
	second := newRecord("alice")
	other := newRecord("bob")
	for _, rec := range []*models.StakeRecord{first, second, other} {
		require.NoError(t, store.CreateStake(ctx, rec, func(context.Context) error { return nil }))
	}

	records, err := store.ListStakesByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second.ID, records[0].ID, "newest first")
	assert.Equal(t, first.ID, records[1].ID)

	records, err = store.ListStakesByOwner(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteDB_Migrate(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	defer db.Close()

	migrations := filepath.Join("..", "..", "migrations", "ledger")
	require.NoError(t, db.Migrate(migrations))
	require.NoError(t, db.Migrate(migrations), "migrations must be idempotent")

	for _, table := range []string{"mints", "accounts", "ledger_entries", "artifacts"} {
		var name string
		err := db.Conn.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestSQLiteDB_MigrateMissingDirectory(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, db.Migrate(filepath.Join(t.TempDir(), "missing")))
}

func TestMemoryAccountStore_RejectsDuplicates(t *testing.T) {
	store := NewMemoryAccountStore()
	ctx := context.Background()

	first := &models.Account{ID: uuid.New(), Email: "alice@example.com", Wallet: "alice"}
	require.NoError(t, store.CreateAccount(ctx, first))
	assert.False(t, first.CreatedAt.IsZero())

	sameEmail := &models.Account{ID: uuid.New(), Email: "alice@example.com", Wallet: "other"}
	assert.ErrorIs(t, store.CreateAccount(ctx, sameEmail), ErrDuplicate)

	sameWallet := &models.Account{ID: uuid.New(), Email: "other@example.com", Wallet: "alice"}
	assert.ErrorIs(t, store.CreateAccount(ctx, sameWallet), ErrDuplicate)

	got, err := store.GetAccountByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = store.GetAccountByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Wallet)

	_, err = store.GetAccountByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
