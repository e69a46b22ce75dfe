package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gurwinder-gg/LootBazaar/internal/metrics"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
)

// TokenLedger is the external fungible-token ledger
type TokenLedger interface {
	Transfer(ctx context.Context, req models.TransferRequest) error
	MintTo(ctx context.Context, req models.MintToRequest) error
}

// CustodyAdapter forwards custody requests for one mint to the token ledger. It holds no state;
// the ledger decides whether a request succeeds.
type CustodyAdapter struct {
	ledger  TokenLedger
	mint    string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewCustodyAdapter creates a custody adapter that moves tokens of mint
func NewCustodyAdapter(ledger TokenLedger, mint string, m *metrics.Metrics, logger *slog.Logger) *CustodyAdapter {
	return &CustodyAdapter{
		ledger:  ledger,
		mint:    mint,
		metrics: m,
		logger:  loggerOrDiscard(logger).With("component", "custody", "mint", mint),
	}
}

// VaultAccount returns the custody vault account for a stake record.
// Vaults are controlled by the program identity, not by the staker.
func VaultAccount(programID, stakeID string) string {
	return fmt.Sprintf("%s/vault/%s", programID, stakeID)
}

// Transfer moves amount from one account into a vault, authorized by authority.
// vaultAuthority controls the vault if the ledger has to open it.
func (a *CustodyAdapter) Transfer(ctx context.Context, from, toVault string, amount uint64, authority, vaultAuthority string) error {
	err := a.ledger.Transfer(ctx, models.TransferRequest{
		Mint:        a.mint,
		From:        from,
		To:          toVault,
		Amount:      amount,
		Authority:   authority,
		ToAuthority: vaultAuthority,
	})
	if err != nil {
		a.metrics.CustodyResult("transfer", "failure")
		a.logger.Warn("custody transfer rejected",
			"from", from, "to", toVault, "amount", amount, "error", err)
		return fmt.Errorf("%w: %w", ErrCustodyTransferFailed, err)
	}
	a.metrics.CustodyResult("transfer", "success")
	return nil
}

// Release moves amount out of a vault back to its owner under the vault authority
func (a *CustodyAdapter) Release(ctx context.Context, vault, to string, amount uint64, vaultAuthority string) error {
	err := a.ledger.Transfer(ctx, models.TransferRequest{
		Mint:      a.mint,
		From:      vault,
		To:        to,
		Amount:    amount,
		Authority: vaultAuthority,
	})
	if err != nil {
		a.metrics.CustodyResult("release", "failure")
		a.logger.Warn("custody release rejected",
			"vault", vault, "to", to, "amount", amount, "error", err)
		return fmt.Errorf("%w: %w", ErrCustodyTransferFailed, err)
	}
	a.metrics.CustodyResult("release", "success")
	return nil
}

// MintTo creates amount of new supply of mint directly in to, authorized by the mint authority
func (a *CustodyAdapter) MintTo(ctx context.Context, mint, to string, amount uint64, authority string) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	err := a.ledger.MintTo(ctx, models.MintToRequest{
		Mint:      mint,
		To:        to,
		Amount:    amount,
		Authority: authority,
	})
	if err != nil {
		a.metrics.CustodyResult("mint_to", "failure")
		a.logger.Warn("mint rejected", "mint", mint, "to", to, "amount", amount, "error", err)
		return fmt.Errorf("%w: %w", ErrCustodyTransferFailed, err)
	}
	a.metrics.CustodyResult("mint_to", "success")
	a.logger.Info("minted tokens", "mint", mint, "to", to, "amount", amount)
	return nil
}
