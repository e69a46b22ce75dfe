package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stakeColumnNames = []string{
	"id", "owner", "amount", "start_time", "duration", "claimed",
	"status", "vault", "claimed_at", "closed_at", "created_at",
}

func newMockDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &DB{Pool: mock}, mock
}

func expectInsert(mock pgxmock.PgxPoolIface, rec *models.StakeRecord, createdAt time.Time) {
	mock.ExpectQuery("INSERT INTO stake_records").
		WithArgs(rec.ID, rec.Owner, rec.Amount, rec.StartTime, rec.Duration, rec.Claimed, string(rec.Status), rec.Vault).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))
}

func expectSelectForUpdate(mock pgxmock.PgxPoolIface, rec *models.StakeRecord) {
	mock.ExpectQuery(`FROM stake_records WHERE id = \$1 FOR UPDATE`).
		WithArgs(rec.ID).
		WillReturnRows(pgxmock.NewRows(stakeColumnNames).AddRow(
			rec.ID, rec.Owner, rec.Amount, rec.StartTime, rec.Duration, rec.Claimed,
			string(rec.Status), rec.Vault, nil, nil, rec.CreatedAt))
}

func TestDB_CreateStakeRollsBackOnLockFailure(t *testing.T) {
	db, mock := newMockDB(t)
	rec := newRecord("alice")
	errLock := errors.New("custody transfer rejected")

	mock.ExpectBegin()
	expectInsert(mock, rec, time.Now())
	mock.ExpectRollback()

	err := db.CreateStake(context.Background(), rec, func(context.Context) error { return errLock })
	assert.ErrorIs(t, err, errLock)
	assert.NoError(t, mock.ExpectationsWereMet(), "insert is rolled back, never committed")
}

func TestDB_CreateStakeCommitFailure(t *testing.T) {
	db, mock := newMockDB(t)
	rec := newRecord("alice")
	errCommit := errors.New("connection reset")
	locked := false

	mock.ExpectBegin()
	expectInsert(mock, rec, time.Now())
	mock.ExpectCommit().WillReturnError(errCommit)

	err := db.CreateStake(context.Background(), rec, func(context.Context) error {
		locked = true
		return nil
	})
	assert.ErrorIs(t, err, errCommit)
	assert.True(t, locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_CreateStake(t *testing.T) {
	db, mock := newMockDB(t)
	rec := newRecord("alice")
	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectInsert(mock, rec, createdAt)
	mock.ExpectCommit()

	require.NoError(t, db.CreateStake(context.Background(), rec, func(context.Context) error { return nil }))
	assert.Equal(t, createdAt, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_UpdateStakeDiscardsFailedMutation(t *testing.T) {
	db, mock := newMockDB(t)
	rec := newRecord("alice")
	rec.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	errApply := errors.New("not matured")

	mock.ExpectBegin()
	expectSelectForUpdate(mock, rec)
	mock.ExpectRollback()

	_, err := db.UpdateStake(context.Background(), rec.ID, func(_ context.Context, r *models.StakeRecord) error {
		r.Claimed = true
		return errApply
	})
	assert.ErrorIs(t, err, errApply)
	assert.NoError(t, mock.ExpectationsWereMet(), "no UPDATE is issued")
}

func TestDB_UpdateStakePersistsMutation(t *testing.T) {
	db, mock := newMockDB(t)
	rec := newRecord("alice")
	rec.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectSelectForUpdate(mock, rec)
	mock.ExpectExec("UPDATE stake_records").
		WithArgs(true, string(models.StakeStatusClaimed), pgxmock.AnyArg(), pgxmock.AnyArg(), rec.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	updated, err := db.UpdateStake(context.Background(), rec.ID, func(_ context.Context, r *models.StakeRecord) error {
		claimedAt := time.Unix(3600, 0).UTC()
		r.Claimed = true
		r.Status = models.StakeStatusClaimed
		r.ClaimedAt = &claimedAt
		return nil
	})
	require.NoError(t, err)
	assert.True(t, updated.Claimed)
	assert.Equal(t, rec.Owner, updated.Owner)
	assert.Equal(t, rec.Amount, updated.Amount)
	assert.Nil(t, updated.ClosedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_UpdateUnknownStake(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM stake_records WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := db.UpdateStake(context.Background(), id, func(context.Context, *models.StakeRecord) error {
		t.Fatal("apply must not run for a missing record")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
