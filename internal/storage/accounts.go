package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when a unique column already holds the value
var ErrDuplicate = errors.New("already exists")

const uniqueViolation = "23505"

// CreateAccount inserts a new account
func (db *DB) CreateAccount(ctx context.Context, account *models.Account) error {
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO accounts (id, email, wallet, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		account.ID, account.Email, account.Wallet, account.PasswordHash).
		Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccountByEmail retrieves an account by email
func (db *DB) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return db.getAccount(ctx, "email", email)
}

// GetAccountByID retrieves an account by ID
func (db *DB) GetAccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return db.getAccount(ctx, "id", id)
}

func (db *DB) getAccount(ctx context.Context, column string, value any) (*models.Account, error) {
	var account models.Account
	err := db.Pool.QueryRow(ctx,
		`SELECT id, email, wallet, password_hash, created_at, updated_at
		 FROM accounts WHERE `+column+` = $1`, value).Scan(
		&account.ID, &account.Email, &account.Wallet, &account.PasswordHash,
		&account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &account, nil
}

// MemoryAccountStore keeps accounts in process memory
type MemoryAccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]models.Account
}

// NewMemoryAccountStore creates an empty in-memory account store
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[uuid.UUID]models.Account)}
}

// CreateAccount stores account unless its email or wallet is taken
func (s *MemoryAccountStore) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == account.Email || existing.Wallet == account.Wallet {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.accounts[account.ID] = *account
	return nil
}

// GetAccountByEmail retrieves an account by email
func (s *MemoryAccountStore) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.Email == email {
			a := account
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

// GetAccountByID retrieves an account by ID
func (s *MemoryAccountStore) GetAccountByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &account, nil
}
