package models

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a registered user of the API
type Account struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Wallet       string    `db:"wallet" json:"wallet"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StakeStatus is the lifecycle state of a stake record
type StakeStatus string

const (
	StakeStatusActive  StakeStatus = "active"
	StakeStatusClaimed StakeStatus = "claimed"
	StakeStatusClosed  StakeStatus = "closed"
)

// StakeRecord represents one stake action and the vault entry holding its tokens.
// Owner, Amount, StartTime, Duration and Vault never change after creation.
type StakeRecord struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	Owner     string      `db:"owner" json:"owner"`
	Amount    uint64      `db:"amount" json:"amount"`
	StartTime int64       `db:"start_time" json:"start_time"`
	Duration  uint64      `db:"duration" json:"duration"`
	Claimed   bool        `db:"claimed" json:"claimed"`
	Status    StakeStatus `db:"status" json:"status"`
	Vault     string      `db:"vault" json:"vault"`
	ClaimedAt *time.Time  `db:"claimed_at" json:"claimed_at,omitempty"`
	ClosedAt  *time.Time  `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// MaturesAt returns the unix time at which the stake may be claimed
func (r *StakeRecord) MaturesAt() int64 {
	return r.StartTime + int64(r.Duration)
}

// Creator is a creator entry attached to a reward artifact
type Creator struct {
	Address  string `json:"address"`
	Verified bool   `json:"verified"`
	Share    uint8  `json:"share"`
}

// RewardArtifact represents a minted reward NFT
type RewardArtifact struct {
	ID         string    `json:"id"`
	Owner      string    `json:"owner"`
	Tier       uint8     `json:"tier"`
	Label      string    `json:"label"`
	Name       string    `json:"name"`
	Symbol     string    `json:"symbol"`
	URI        string    `json:"uri"`
	RoyaltyBps uint16    `json:"royalty_bps"`
	Creators   []Creator `json:"creators"`
	MintedAt   time.Time `json:"minted_at"`
}

// TransferRequest asks the token ledger to move tokens of one mint between accounts.
// ToAuthority, when set, controls the destination account if the ledger has to create it.
type TransferRequest struct {
	Mint        string `json:"mint"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      uint64 `json:"amount"`
	Authority   string `json:"authority"`
	ToAuthority string `json:"to_authority,omitempty"`
}

// MintToRequest asks the token ledger to create new supply in an account
type MintToRequest struct {
	Mint      string `json:"mint"`
	To        string `json:"to"`
	Amount    uint64 `json:"amount"`
	Authority string `json:"authority"`
}

// ArtifactRequest asks the NFT minter to create metadata and mint one artifact
type ArtifactRequest struct {
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	URI           string    `json:"uri"`
	RoyaltyBps    uint16    `json:"royalty_bps"`
	Creators      []Creator `json:"creators"`
	MintAuthority string    `json:"mint_authority"`
	Payer         string    `json:"payer"`
	Owner         string    `json:"owner"`
}
