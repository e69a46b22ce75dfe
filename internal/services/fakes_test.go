package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/gurwinder-gg/LootBazaar/internal/storage"
)

// ledgerRefusal is an answer from the ledger that moved nothing
type ledgerRefusal string

func (e ledgerRefusal) Error() string { return string(e) }

func (ledgerRefusal) Rejected() bool { return true }

var (
	errInsufficientFunds error = ledgerRefusal("insufficient funds")
	errAuthorityMismatch error = ledgerRefusal("authority mismatch")
	errCommitFailed            = errors.New("commit failed")
)

// fakeLedger is an in-memory token ledger. Accounts without a recorded owner
// are owned by their own address.
type fakeLedger struct {
	mu        sync.Mutex
	balances  map[string]uint64
	owners    map[string]string
	failWith  error
	transfers []models.TransferRequest
	mints     []models.MintToRequest

	// lostReplies makes that many transfers apply and then time out
	lostReplies int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		balances: make(map[string]uint64),
		owners:   make(map[string]string),
	}
}

func (l *fakeLedger) fund(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

func (l *fakeLedger) balance(account string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

func (l *fakeLedger) ownerOf(account string) string {
	if owner, ok := l.owners[account]; ok {
		return owner
	}
	return account
}

func (l *fakeLedger) Transfer(_ context.Context, req models.TransferRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failWith != nil {
		return l.failWith
	}
	if l.ownerOf(req.From) != req.Authority {
		return errAuthorityMismatch
	}
	if l.balances[req.From] < req.Amount {
		return errInsufficientFunds
	}
	if _, ok := l.owners[req.To]; !ok && req.ToAuthority != "" {
		l.owners[req.To] = req.ToAuthority
	}
	l.balances[req.From] -= req.Amount
	l.balances[req.To] += req.Amount
	l.transfers = append(l.transfers, req)
	if l.lostReplies > 0 {
		l.lostReplies--
		return context.DeadlineExceeded
	}
	return nil
}

func (l *fakeLedger) MintTo(_ context.Context, req models.MintToRequest) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failWith != nil {
		return l.failWith
	}
	if req.Authority != "mint-authority" {
		return errAuthorityMismatch
	}
	l.balances[req.To] += req.Amount
	l.mints = append(l.mints, req)
	return nil
}

// failingCommitStore runs the store callbacks and then fails as if the commit was lost
type failingCommitStore struct {
	*storage.MemoryStakeStore
	failCreate bool
	failUpdate bool
}

func (s *failingCommitStore) CreateStake(ctx context.Context, rec *models.StakeRecord, lock func(ctx context.Context) error) error {
	if !s.failCreate {
		return s.MemoryStakeStore.CreateStake(ctx, rec, lock)
	}
	if err := lock(ctx); err != nil {
		return err
	}
	return errCommitFailed
}

func (s *failingCommitStore) UpdateStake(ctx context.Context, id uuid.UUID, apply func(ctx context.Context, rec *models.StakeRecord) error) (*models.StakeRecord, error) {
	if !s.failUpdate {
		return s.MemoryStakeStore.UpdateStake(ctx, id, apply)
	}
	rec, err := s.MemoryStakeStore.GetStake(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := apply(ctx, rec); err != nil {
		return nil, err
	}
	return nil, errCommitFailed
}

type fakeMinter struct {
	mu       sync.Mutex
	failWith error
	requests []models.ArtifactRequest
}

func (m *fakeMinter) MintArtifact(_ context.Context, req models.ArtifactRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return "", m.failWith
	}
	m.requests = append(m.requests, req)
	return fmt.Sprintf("artifact-%d", len(m.requests)), nil
}
