package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/metrics"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/gurwinder-gg/LootBazaar/internal/storage"
)

// compensationTimeout bounds the custody call that undoes a transfer whose stake record was not stored
const compensationTimeout = 30 * time.Second

// StakeStore persists stake records. CreateStake and UpdateStake run their callback
// with exclusive access to the record and discard all changes when it fails.
type StakeStore interface {
	CreateStake(ctx context.Context, rec *models.StakeRecord, lock func(ctx context.Context) error) error
	UpdateStake(ctx context.Context, id uuid.UUID, apply func(ctx context.Context, rec *models.StakeRecord) error) (*models.StakeRecord, error)
	GetStake(ctx context.Context, id uuid.UUID) (*models.StakeRecord, error)
	ListStakesByOwner(ctx context.Context, owner string) ([]models.StakeRecord, error)
}

// StakingConfig holds staking policy
type StakingConfig struct {
	// ProgramID owns every custody vault
	ProgramID   string
	MinAmount   uint64
	MinDuration uint64
}

// StakingService owns the stake record lifecycle: active -> claimed -> closed
type StakingService struct {
	store   StakeStore
	custody *CustodyAdapter
	clock   clock.Clock
	config  StakingConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewStakingService creates a new staking service
func NewStakingService(store StakeStore, custody *CustodyAdapter, clk clock.Clock, cfg StakingConfig, m *metrics.Metrics, logger *slog.Logger) *StakingService {
	if clk == nil {
		clk = clock.New()
	}
	return &StakingService{
		store:   store,
		custody: custody,
		clock:   clk,
		config:  cfg,
		metrics: m,
		logger:  loggerOrDiscard(logger).With("component", "staking"),
	}
}

// StakeRequest represents a stake request
type StakeRequest struct {
	Amount          uint64 `json:"amount"`
	DurationSeconds uint64 `json:"duration_seconds"`
}

// Stake locks amount of owner's tokens in a new vault for duration seconds.
// The record is only persisted if the custody transfer succeeds. When the transfer
// may have moved funds but the record is not stored, the vault is refunded.
func (s *StakingService) Stake(ctx context.Context, owner string, amount, duration uint64) (*models.StakeRecord, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}
	if amount == 0 || amount < s.config.MinAmount || amount > math.MaxInt64 {
		return nil, ErrInvalidAmount
	}

	now := s.clock.Now()
	if duration == 0 || duration < s.config.MinDuration || duration > uint64(math.MaxInt64-now.Unix()) {
		return nil, ErrInvalidDuration
	}

	id := uuid.New()
	rec := &models.StakeRecord{
		ID:        id,
		Owner:     owner,
		Amount:    amount,
		StartTime: now.Unix(),
		Duration:  duration,
		Claimed:   false,
		Status:    models.StakeStatusActive,
		Vault:     VaultAccount(s.config.ProgramID, id.String()),
	}

	var locked bool
	err := s.store.CreateStake(ctx, rec, func(ctx context.Context) error {
		err := s.custody.Transfer(ctx, owner, rec.Vault, amount, owner, s.config.ProgramID)
		locked = err == nil || !ledgerRejected(err)
		return err
	})
	if err != nil {
		if locked {
			s.refund(ctx, rec)
		}
		if errors.Is(err, ErrCustodyTransferFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create stake: %w", err)
	}

	s.metrics.StakeCreated(amount)
	s.logger.Info("stake created",
		"stake_id", rec.ID, "owner", owner, "amount", amount, "duration", duration)

	return rec, nil
}

// Claim marks a matured stake as claimed. Only the owner may claim, and only once.
// Claiming does not release the locked tokens.
func (s *StakingService) Claim(ctx context.Context, id uuid.UUID, caller string) (*models.StakeRecord, error) {
	rec, err := s.store.UpdateStake(ctx, id, func(_ context.Context, rec *models.StakeRecord) error {
		if rec.Owner != caller {
			return ErrUnauthorized
		}
		if rec.Claimed {
			return ErrAlreadyClaimed
		}

		now := s.clock.Now()
		if !Matured(rec, now) {
			return ErrStakePeriodNotCompleted
		}

		claimedAt := now.UTC()
		rec.Claimed = true
		rec.Status = models.StakeStatusClaimed
		rec.ClaimedAt = &claimedAt
		return nil
	})
	s.metrics.ClaimResult(resultLabel(err))
	if err != nil {
		return nil, s.storeError(err)
	}

	s.logger.Info("stake claimed", "stake_id", rec.ID, "owner", rec.Owner)
	return rec, nil
}

// Unstake returns the locked tokens of a claimed stake to its owner and closes the record.
// If the release succeeds but the record cannot be closed, the tokens are locked again.
func (s *StakingService) Unstake(ctx context.Context, id uuid.UUID, caller string) (*models.StakeRecord, error) {
	var released *models.StakeRecord
	rec, err := s.store.UpdateStake(ctx, id, func(ctx context.Context, rec *models.StakeRecord) error {
		if rec.Owner != caller {
			return ErrUnauthorized
		}
		if rec.Status == models.StakeStatusClosed {
			return ErrStakeClosed
		}
		if !rec.Claimed {
			return ErrStakeLocked
		}

		if err := s.custody.Release(ctx, rec.Vault, rec.Owner, rec.Amount, s.config.ProgramID); err != nil {
			return err
		}
		snapshot := *rec
		released = &snapshot

		closedAt := s.clock.Now().UTC()
		rec.Status = models.StakeStatusClosed
		rec.ClosedAt = &closedAt
		return nil
	})
	s.metrics.UnstakeResult(resultLabel(err))
	if err != nil {
		if released != nil {
			s.relock(ctx, released)
		}
		return nil, s.storeError(err)
	}

	s.logger.Info("stake closed", "stake_id", rec.ID, "owner", rec.Owner, "amount", rec.Amount)
	return rec, nil
}

// refund returns the tokens of a stake that was never stored from its vault to the owner.
// If the original transfer never landed, the ledger rejects the refund and nothing moves.
func (s *StakingService) refund(ctx context.Context, rec *models.StakeRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.custody.Release(ctx, rec.Vault, rec.Owner, rec.Amount, s.config.ProgramID); err != nil {
		s.logger.Error("stake not stored and vault refund failed",
			"stake_id", rec.ID, "owner", rec.Owner, "vault", rec.Vault, "amount", rec.Amount, "error", err)
		return
	}
	s.logger.Warn("stake not stored, vault refunded",
		"stake_id", rec.ID, "owner", rec.Owner, "amount", rec.Amount)
}

// relock moves released tokens back into the vault of a stake whose record still says claimed
func (s *StakingService) relock(ctx context.Context, rec *models.StakeRecord) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if err := s.custody.Transfer(ctx, rec.Owner, rec.Vault, rec.Amount, rec.Owner, s.config.ProgramID); err != nil {
		s.logger.Error("stake released but not closed, relock failed",
			"stake_id", rec.ID, "owner", rec.Owner, "vault", rec.Vault, "amount", rec.Amount, "error", err)
		return
	}
	s.logger.Warn("stake released but not closed, tokens locked again",
		"stake_id", rec.ID, "owner", rec.Owner, "amount", rec.Amount)
}

// GetStake retrieves a stake record visible to caller
func (s *StakingService) GetStake(ctx context.Context, id uuid.UUID, caller string) (*models.StakeRecord, error) {
	rec, err := s.store.GetStake(ctx, id)
	if err != nil {
		return nil, s.storeError(err)
	}
	if rec.Owner != caller {
		return nil, ErrUnauthorized
	}
	return rec, nil
}

// ListStakes retrieves all stake records of owner
func (s *StakingService) ListStakes(ctx context.Context, owner string) ([]models.StakeRecord, error) {
	records, err := s.store.ListStakesByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list stakes: %w", err)
	}
	return records, nil
}

// Matured reports whether now - start_time >= duration
func Matured(rec *models.StakeRecord, now time.Time) bool {
	elapsed := now.Unix() - rec.StartTime
	if elapsed < 0 {
		return false
	}
	return uint64(elapsed) >= rec.Duration
}

func (s *StakingService) storeError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrStakeNotFound
	}
	return err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrStakePeriodNotCompleted):
		return "not_matured"
	case errors.Is(err, ErrStakeLocked):
		return "locked"
	case errors.Is(err, ErrStakeClosed):
		return "closed"
	case errors.Is(err, ErrCustodyTransferFailed):
		return "custody_failed"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// ledgerRejected reports whether err carries a definitive refusal from the ledger.
// Any other failure, such as a timeout, leaves the outcome of the transfer unknown.
func ledgerRejected(err error) bool {
	var rejection interface{ Rejected() bool }
	return errors.As(err, &rejection) && rejection.Rejected()
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return logger
}
