package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/gurwinder-gg/LootBazaar/internal/storage"
)

// Journal entry kinds
const (
	EntryMint     = "mint"
	EntryTransfer = "transfer"
	EntryArtifact = "artifact"
)

// Service is a single-node token ledger and artifact minter backed by SQLite
type Service struct {
	db                *storage.SQLiteDB
	artifactAuthority string
	logger            *slog.Logger
}

// NewService creates a new ledger service. When artifactAuthority is empty any
// mint authority may mint artifacts.
func NewService(db *storage.SQLiteDB, artifactAuthority string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:                db,
		artifactAuthority: artifactAuthority,
		logger:            logger.With("component", "ledger"),
	}
}

// CreateMint registers a new fungible mint controlled by authority
func (s *Service) CreateMint(ctx context.Context, id, authority string, decimals uint8) (*models.Mint, error) {
	if id == "" || authority == "" {
		return nil, fmt.Errorf("%w: mint id and authority are required", ErrInvalidRequest)
	}

	mint := &models.Mint{ID: id, Authority: authority, Decimals: decimals}
	err := s.db.Conn.QueryRowContext(ctx,
		`INSERT INTO mints (id, authority, decimals) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING
		 RETURNING created_at`,
		id, authority, decimals).Scan(&mint.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mint %s already exists", ErrInvalidRequest, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create mint: %w", err)
	}

	s.logger.Info("mint created", "mint", id, "authority", authority)
	return mint, nil
}

// MintTo creates new supply of a mint in the destination account
func (s *Service) MintTo(ctx context.Context, req models.MintToRequest) error {
	if req.Amount == 0 || req.Amount > math.MaxInt64 || req.To == "" {
		return fmt.Errorf("%w: mint amount and destination are required", ErrInvalidRequest)
	}

	tx, err := s.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var authority string
	var supply uint64
	err = tx.QueryRowContext(ctx,
		"SELECT authority, supply FROM mints WHERE id = ?", req.Mint).Scan(&authority, &supply)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrMintNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load mint: %w", err)
	}
	if authority != req.Authority {
		return ErrAuthorityMismatch
	}
	if supply > math.MaxInt64-req.Amount {
		return fmt.Errorf("%w: supply overflow", ErrInvalidRequest)
	}

	if err := credit(ctx, tx, req.To, req.Mint, req.To, req.Amount); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE mints SET supply = supply + ? WHERE id = ?", req.Amount, req.Mint); err != nil {
		return fmt.Errorf("failed to update supply: %w", err)
	}
	if err := journal(ctx, tx, EntryMint, req.Mint, req.Mint, req.To, req.Amount); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mint: %w", err)
	}
	s.logger.Info("minted", "mint", req.Mint, "to", req.To, "amount", req.Amount)
	return nil
}

// Transfer moves tokens of one mint between accounts. The source account's owner must sign.
// A missing destination is opened with ToAuthority as its owner, or itself if unset.
func (s *Service) Transfer(ctx context.Context, req models.TransferRequest) error {
	if req.Amount == 0 || req.Amount > math.MaxInt64 || req.From == "" || req.To == "" || req.From == req.To {
		return fmt.Errorf("%w: transfer needs distinct accounts and a positive amount", ErrInvalidRequest)
	}
	if req.Mint == "" {
		return fmt.Errorf("%w: transfer needs a mint", ErrInvalidRequest)
	}

	tx, err := s.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM mints WHERE id = ?", req.Mint).Scan(new(int)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMintNotFound
		}
		return fmt.Errorf("failed to load mint: %w", err)
	}

	owner, balance, err := loadAccount(ctx, tx, req.From, req.Mint)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return err
	}
	if owner != req.Authority {
		return ErrAuthorityMismatch
	}
	if balance < req.Amount {
		return ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE accounts SET balance = balance - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND mint = ?",
		req.Amount, req.From, req.Mint); err != nil {
		return fmt.Errorf("failed to debit account: %w", err)
	}

	toOwner := req.ToAuthority
	if toOwner == "" {
		toOwner = req.To
	}
	if err := credit(ctx, tx, req.To, req.Mint, toOwner, req.Amount); err != nil {
		return err
	}
	if err := journal(ctx, tx, EntryTransfer, req.Mint, req.From, req.To, req.Amount); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	s.logger.Debug("transferred", "mint", req.Mint, "from", req.From, "to", req.To, "amount", req.Amount)
	return nil
}

// MintArtifact creates one artifact owned by req.Owner and returns its ID.
// Only the payer may appear as a verified creator and creator shares must sum to 100.
func (s *Service) MintArtifact(ctx context.Context, req models.ArtifactRequest) (string, error) {
	if s.artifactAuthority != "" && req.MintAuthority != s.artifactAuthority {
		return "", ErrAuthorityMismatch
	}
	if req.Owner == "" || req.Payer == "" || strings.TrimSpace(req.Name) == "" {
		return "", fmt.Errorf("%w: artifact needs a name, owner and payer", ErrInvalidRequest)
	}
	if req.RoyaltyBps > 10000 {
		return "", fmt.Errorf("%w: royalty above 100%%", ErrInvalidRequest)
	}
	if len(req.Creators) == 0 {
		return "", fmt.Errorf("%w: artifact needs at least one creator", ErrInvalidRequest)
	}
	var shares int
	for _, c := range req.Creators {
		if c.Verified && c.Address != req.Payer {
			return "", fmt.Errorf("%w: creator %s cannot be verified by %s", ErrAuthorityMismatch, c.Address, req.Payer)
		}
		shares += int(c.Share)
	}
	if shares != 100 {
		return "", fmt.Errorf("%w: creator shares sum to %d", ErrInvalidRequest, shares)
	}

	tx, err := s.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO artifacts (id, owner, name, symbol, uri, royalty_bps, creator)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, req.Owner, req.Name, req.Symbol, req.URI, req.RoyaltyBps, req.Creators[0].Address); err != nil {
		return "", fmt.Errorf("failed to store artifact: %w", err)
	}
	if err := journal(ctx, tx, EntryArtifact, "", req.Payer, req.Owner, 1); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit artifact: %w", err)
	}
	s.logger.Info("artifact minted", "artifact_id", id, "owner", req.Owner, "name", req.Name)
	return id, nil
}

// Balance returns an account's balance of mint, zero if the account does not exist
func (s *Service) Balance(ctx context.Context, account, mint string) (uint64, error) {
	var balance uint64
	err := s.db.Conn.QueryRowContext(ctx,
		"SELECT balance FROM accounts WHERE id = ? AND mint = ?", account, mint).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load balance: %w", err)
	}
	return balance, nil
}

// ListAccounts lists account balances, optionally only those of one account
func (s *Service) ListAccounts(ctx context.Context, account string) ([]models.LedgerAccount, error) {
	query := "SELECT id, mint, owner, balance, created_at, updated_at FROM accounts"
	var args []any
	if account != "" {
		query += " WHERE id = ?"
		args = append(args, account)
	}
	query += " ORDER BY id, mint"

	rows, err := s.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.LedgerAccount
	for rows.Next() {
		var a models.LedgerAccount
		if err := rows.Scan(&a.ID, &a.Mint, &a.Owner, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListMints lists all mints
func (s *Service) ListMints(ctx context.Context) ([]models.Mint, error) {
	rows, err := s.db.Conn.QueryContext(ctx,
		"SELECT id, authority, decimals, supply, created_at FROM mints ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mints []models.Mint
	for rows.Next() {
		var m models.Mint
		if err := rows.Scan(&m.ID, &m.Authority, &m.Decimals, &m.Supply, &m.CreatedAt); err != nil {
			return nil, err
		}
		mints = append(mints, m)
	}
	return mints, rows.Err()
}

// ListArtifacts lists artifacts, optionally filtered by owner
func (s *Service) ListArtifacts(ctx context.Context, owner string) ([]models.ArtifactRecord, error) {
	query := "SELECT id, owner, name, symbol, uri, royalty_bps, creator, created_at FROM artifacts"
	var args []any
	if owner != "" {
		query += " WHERE owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []models.ArtifactRecord
	for rows.Next() {
		var a models.ArtifactRecord
		if err := rows.Scan(&a.ID, &a.Owner, &a.Name, &a.Symbol, &a.URI, &a.RoyaltyBps, &a.Creator, &a.CreatedAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// History returns the most recent journal entries, newest first
func (s *Service) History(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Conn.QueryContext(ctx,
		"SELECT id, kind, mint, source, target, amount, created_at FROM ledger_entries ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Mint, &e.Source, &e.Target, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func loadAccount(ctx context.Context, tx *sql.Tx, id, mint string) (string, uint64, error) {
	var owner string
	var balance uint64
	err := tx.QueryRowContext(ctx,
		"SELECT owner, balance FROM accounts WHERE id = ? AND mint = ?", id, mint).Scan(&owner, &balance)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", 0, fmt.Errorf("failed to load account: %w", err)
	}
	return owner, balance, err
}

// credit adds amount of mint to an account, opening it with owner if it does not exist
func credit(ctx context.Context, tx *sql.Tx, id, mint, owner string, amount uint64) error {
	_, balance, err := loadAccount(ctx, tx, id, mint)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if balance > math.MaxInt64-amount {
		return fmt.Errorf("%w: balance overflow", ErrInvalidRequest)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, mint, owner, balance) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id, mint) DO UPDATE SET balance = balance + excluded.balance, updated_at = CURRENT_TIMESTAMP`,
		id, mint, owner, amount); err != nil {
		return fmt.Errorf("failed to credit account: %w", err)
	}
	return nil
}

func journal(ctx context.Context, tx *sql.Tx, kind, mint, source, target string, amount uint64) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO ledger_entries (kind, mint, source, target, amount) VALUES (?, ?, ?, ?, ?)",
		kind, mint, source, target, amount); err != nil {
		return fmt.Errorf("failed to record %s entry: %w", kind, err)
	}
	return nil
}
