package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gurwinder-gg/LootBazaar/internal/middleware"
	"github.com/gurwinder-gg/LootBazaar/internal/services"
)

// RewardHandler handles reward artifact requests
type RewardHandler struct {
	rewardService *services.RewardService
}

// NewRewardHandler creates a new reward handler
func NewRewardHandler(rewardService *services.RewardService) *RewardHandler {
	return &RewardHandler{rewardService: rewardService}
}

// MintReward handles POST /rewards/mint. The caller receives and pays for the artifact.
func (h *RewardHandler) MintReward(c *gin.Context) {
	var req services.MintRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	artifact, err := h.rewardService.MintRewardArtifact(c.Request.Context(), middleware.GetWallet(c), req.Tier)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, artifact)
}
