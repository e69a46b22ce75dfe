package services

import "errors"

// Errors returned by the staking ledger, custody adapter and reward facade.
// They are terminal: nothing in this package retries.
var (
	ErrUnauthorized            = errors.New("caller is not the stake owner")
	ErrAlreadyClaimed          = errors.New("reward already claimed")
	ErrStakePeriodNotCompleted = errors.New("stake period not completed")
	ErrCustodyTransferFailed   = errors.New("custody transfer failed")
	ErrArtifactMintFailed      = errors.New("reward artifact mint failed")
	ErrInvalidAmount           = errors.New("invalid stake amount")
	ErrInvalidDuration         = errors.New("invalid stake duration")
	ErrStakeNotFound           = errors.New("stake not found")
	ErrStakeLocked             = errors.New("stake must be claimed before unstaking")
	ErrStakeClosed             = errors.New("stake already closed")
)
