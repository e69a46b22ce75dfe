package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("not found")

const stakeColumns = `id, owner, amount, start_time, duration, claimed, status, vault, claimed_at, closed_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStake(row rowScanner) (*models.StakeRecord, error) {
	var rec models.StakeRecord
	var status string
	err := row.Scan(
		&rec.ID, &rec.Owner, &rec.Amount, &rec.StartTime, &rec.Duration,
		&rec.Claimed, &status, &rec.Vault, &rec.ClaimedAt, &rec.ClosedAt, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.Status = models.StakeStatus(status)
	return &rec, nil
}

// CreateStake inserts a stake record and runs lock in the same transaction.
// If lock fails the insert is rolled back.
func (db *DB) CreateStake(ctx context.Context, rec *models.StakeRecord, lock func(ctx context.Context) error) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO stake_records (id, owner, amount, start_time, duration, claimed, status, vault)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`,
		rec.ID, rec.Owner, rec.Amount, rec.StartTime, rec.Duration,
		rec.Claimed, string(rec.Status), rec.Vault).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create stake record: %w", err)
	}

	if err := lock(ctx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit stake record: %w", err)
	}
	return nil
}

// UpdateStake locks the record row, lets apply mutate it and writes back the mutable fields.
// Nothing is written when apply returns an error.
func (db *DB) UpdateStake(ctx context.Context, id uuid.UUID, apply func(ctx context.Context, rec *models.StakeRecord) error) (*models.StakeRecord, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := scanStake(tx.QueryRow(ctx,
		`SELECT `+stakeColumns+` FROM stake_records WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stake record: %w", err)
	}

	if err := apply(ctx, rec); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE stake_records
		 SET claimed = $1, status = $2, claimed_at = $3, closed_at = $4
		 WHERE id = $5`,
		rec.Claimed, string(rec.Status), rec.ClaimedAt, rec.ClosedAt, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update stake record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stake record: %w", err)
	}
	return rec, nil
}

// GetStake retrieves a stake record by ID
func (db *DB) GetStake(ctx context.Context, id uuid.UUID) (*models.StakeRecord, error) {
	rec, err := scanStake(db.Pool.QueryRow(ctx,
		`SELECT `+stakeColumns+` FROM stake_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stake record: %w", err)
	}
	return rec, nil
}

// ListStakesByOwner retrieves all stake records of an owner, newest first
func (db *DB) ListStakesByOwner(ctx context.Context, owner string) ([]models.StakeRecord, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+stakeColumns+` FROM stake_records WHERE owner = $1 ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.StakeRecord
	for rows.Next() {
		rec, err := scanStake(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
