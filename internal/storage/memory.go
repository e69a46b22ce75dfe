package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
)

// MemoryStakeStore keeps stake records in process memory. A single mutex serialises
// every mutation, including the callbacks run inside CreateStake and UpdateStake.
type MemoryStakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]models.StakeRecord
	now     func() time.Time
}

// NewMemoryStakeStore creates an empty in-memory stake store
func NewMemoryStakeStore() *MemoryStakeStore {
	return &MemoryStakeStore{
		records: make(map[uuid.UUID]models.StakeRecord),
		now:     time.Now,
	}
}

// CreateStake stores rec only if lock succeeds
func (s *MemoryStakeStore) CreateStake(ctx context.Context, rec *models.StakeRecord, lock func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := lock(ctx); err != nil {
		return err
	}
	rec.CreatedAt = s.now()
	s.records[rec.ID] = cloneStake(*rec)
	return nil
}

// UpdateStake applies a mutation to a copy of the record and stores it on success
func (s *MemoryStakeStore) UpdateStake(ctx context.Context, id uuid.UUID, apply func(ctx context.Context, rec *models.StakeRecord) error) (*models.StakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec := cloneStake(stored)
	if err := apply(ctx, &rec); err != nil {
		return nil, err
	}
	s.records[id] = cloneStake(rec)
	return &rec, nil
}

// GetStake retrieves a stake record by ID
func (s *MemoryStakeStore) GetStake(_ context.Context, id uuid.UUID) (*models.StakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec := cloneStake(stored)
	return &rec, nil
}

// ListStakesByOwner retrieves all stake records of an owner, newest first
func (s *MemoryStakeStore) ListStakesByOwner(_ context.Context, owner string) ([]models.StakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.StakeRecord
	for _, rec := range s.records {
		if rec.Owner == owner {
			records = append(records, cloneStake(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func cloneStake(rec models.StakeRecord) models.StakeRecord {
	if rec.ClaimedAt != nil {
		t := *rec.ClaimedAt
		rec.ClaimedAt = &t
	}
	if rec.ClosedAt != nil {
		t := *rec.ClosedAt
		rec.ClosedAt = &t
	}
	return rec
}
