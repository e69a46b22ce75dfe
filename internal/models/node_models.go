package models

import (
	"time"
)

// LedgerAccount represents the balance of one mint held by an account on the ledger node
type LedgerAccount struct {
	ID        string    `db:"id" json:"id"`
	Mint      string    `db:"mint" json:"mint"`
	Owner     string    `db:"owner" json:"owner"`
	Balance   uint64    `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Mint represents a fungible token mint and its controlling authority
type Mint struct {
	ID        string    `db:"id" json:"id"`
	Authority string    `db:"authority" json:"authority"`
	Decimals  uint8     `db:"decimals" json:"decimals"`
	Supply    uint64    `db:"supply" json:"supply"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LedgerEntry represents a journal line for a balance change
type LedgerEntry struct {
	ID        int64     `db:"id" json:"id"`
	Kind      string    `db:"kind" json:"kind"`
	Mint      string    `db:"mint" json:"mint,omitempty"`
	Source    string    `db:"source" json:"source"`
	Target    string    `db:"target" json:"target"`
	Amount    uint64    `db:"amount" json:"amount"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ArtifactRecord represents an artifact minted by the ledger node
type ArtifactRecord struct {
	ID         string    `db:"id" json:"id"`
	Owner      string    `db:"owner" json:"owner"`
	Name       string    `db:"name" json:"name"`
	Symbol     string    `db:"symbol" json:"symbol"`
	URI        string    `db:"uri" json:"uri"`
	RoyaltyBps uint16    `db:"royalty_bps" json:"royalty_bps"`
	Creator    string    `db:"creator" json:"creator"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
