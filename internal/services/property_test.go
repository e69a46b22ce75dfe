package services

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Tokens are never created or destroyed by staking: owner + vault stays constant.
func TestStakePreservesSupply(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("stake moves exactly amount into the vault or nothing at all", prop.ForAll(
		func(balance, amount, duration uint64) bool {
			f := newStakingFixture(t, StakingConfig{})
			f.ledger.fund("alice", balance)

			rec, err := f.service.Stake(context.Background(), "alice", amount, duration)
			if amount > balance {
				return err != nil && rec == nil && f.ledger.balance("alice") == balance
			}
			if err != nil {
				return false
			}
			return f.ledger.balance("alice") == balance-amount &&
				f.ledger.balance(rec.Vault) == amount
		},
		gen.UInt64Range(0, 1_000_000),
		gen.UInt64Range(1, 1_000_000),
		gen.UInt64Range(1, 1_000_000),
	))

	properties.TestingRun(t)
}

func TestClaimRespectsMaturity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("claim succeeds iff elapsed >= duration", prop.ForAll(
		func(duration, elapsed uint64) bool {
			f := newStakingFixture(t, StakingConfig{})
			ctx := context.Background()
			f.ledger.fund("alice", 10)

			rec, err := f.service.Stake(ctx, "alice", 10, duration)
			if err != nil {
				return false
			}
			f.clock.Add(time.Duration(elapsed) * time.Second)

			_, err = f.service.Claim(ctx, rec.ID, "alice")
			if elapsed >= duration {
				return err == nil
			}
			return err == ErrStakePeriodNotCompleted
		},
		gen.UInt64Range(1, 100_000),
		gen.UInt64Range(0, 200_000),
	))

	properties.TestingRun(t)
}
