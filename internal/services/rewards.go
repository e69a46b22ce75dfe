package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/gurwinder-gg/LootBazaar/internal/metrics"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
)

// Reward tiers with a dedicated label
const (
	TierStakerBadge uint8 = 1
	TierVIP         uint8 = 2
)

// ArtifactMinter is the external NFT minting collaborator. It returns the new artifact's ID.
type ArtifactMinter interface {
	MintArtifact(ctx context.Context, req models.ArtifactRequest) (string, error)
}

// RewardConfig holds the fixed metadata attached to every reward artifact
type RewardConfig struct {
	Collection    string
	Symbol        string
	URI           string
	RoyaltyBps    uint16
	MintAuthority string
}

// RewardService mints reward artifacts. It keeps no state of its own.
type RewardService struct {
	minter  ArtifactMinter
	config  RewardConfig
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRewardService creates a new reward service
func NewRewardService(minter ArtifactMinter, cfg RewardConfig, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *RewardService {
	if clk == nil {
		clk = clock.New()
	}
	return &RewardService{
		minter:  minter,
		config:  cfg,
		clock:   clk,
		metrics: m,
		logger:  loggerOrDiscard(logger).With("component", "rewards"),
	}
}

// MintRewardRequest represents a reward mint request
type MintRewardRequest struct {
	Tier uint8 `json:"tier"`
}

// TierLabel returns the display label of a reward tier
func TierLabel(tier uint8) string {
	switch tier {
	case TierStakerBadge:
		return "Staker Badge"
	case TierVIP:
		return "VIP"
	default:
		return "Reward"
	}
}

// MintRewardArtifact mints one new artifact of tier to owner, who also pays for it.
// Every call creates a distinct artifact.
func (s *RewardService) MintRewardArtifact(ctx context.Context, owner string, tier uint8) (*models.RewardArtifact, error) {
	if owner == "" {
		return nil, ErrUnauthorized
	}

	label := TierLabel(tier)
	creators := []models.Creator{{Address: owner, Verified: true, Share: 100}}
	req := models.ArtifactRequest{
		Name:          fmt.Sprintf("%s %s", s.config.Collection, label),
		Symbol:        s.config.Symbol,
		URI:           s.config.URI,
		RoyaltyBps:    s.config.RoyaltyBps,
		Creators:      creators,
		MintAuthority: s.config.MintAuthority,
		Payer:         owner,
		Owner:         owner,
	}

	id, err := s.minter.MintArtifact(ctx, req)
	if err != nil {
		s.metrics.ArtifactResult(tier, "failure")
		s.logger.Warn("artifact mint rejected", "owner", owner, "tier", tier, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrArtifactMintFailed, err)
	}
	s.metrics.ArtifactResult(tier, "success")
	s.logger.Info("artifact minted", "artifact_id", id, "owner", owner, "tier", tier)

	return &models.RewardArtifact{
		ID:         id,
		Owner:      owner,
		Tier:       tier,
		Label:      label,
		Name:       req.Name,
		Symbol:     req.Symbol,
		URI:        req.URI,
		RoyaltyBps: req.RoyaltyBps,
		Creators:   creators,
		MintedAt:   s.clock.Now().UTC(),
	}, nil
}
