package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/middleware"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/gurwinder-gg/LootBazaar/internal/services"
)

// StakeHandler handles stake lifecycle requests. The caller is always the wallet
// bound to the authenticated account.
type StakeHandler struct {
	stakingService *services.StakingService
}

// NewStakeHandler creates a new stake handler
func NewStakeHandler(stakingService *services.StakingService) *StakeHandler {
	return &StakeHandler{stakingService: stakingService}
}

// StakeResponse is a stake record with its maturity time
type StakeResponse struct {
	models.StakeRecord
	MaturesAt int64 `json:"matures_at"`
}

func newStakeResponse(rec *models.StakeRecord) StakeResponse {
	return StakeResponse{StakeRecord: *rec, MaturesAt: rec.MaturesAt()}
}

// CreateStake handles POST /stakes
func (h *StakeHandler) CreateStake(c *gin.Context) {
	var req services.StakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rec, err := h.stakingService.Stake(c.Request.Context(), middleware.GetWallet(c), req.Amount, req.DurationSeconds)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newStakeResponse(rec))
}

// ListStakes handles GET /stakes
func (h *StakeHandler) ListStakes(c *gin.Context) {
	records, err := h.stakingService.ListStakes(c.Request.Context(), middleware.GetWallet(c))
	if err != nil {
		respondError(c, err)
		return
	}

	stakes := make([]StakeResponse, 0, len(records))
	for i := range records {
		stakes = append(stakes, newStakeResponse(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"stakes": stakes})
}

// GetStake handles GET /stakes/:id
func (h *StakeHandler) GetStake(c *gin.Context) {
	id, ok := stakeID(c)
	if !ok {
		return
	}

	rec, err := h.stakingService.GetStake(c.Request.Context(), id, middleware.GetWallet(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newStakeResponse(rec))
}

// Claim handles POST /stakes/:id/claim
func (h *StakeHandler) Claim(c *gin.Context) {
	id, ok := stakeID(c)
	if !ok {
		return
	}

	rec, err := h.stakingService.Claim(c.Request.Context(), id, middleware.GetWallet(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newStakeResponse(rec))
}

// Unstake handles POST /stakes/:id/unstake
func (h *StakeHandler) Unstake(c *gin.Context) {
	id, ok := stakeID(c)
	if !ok {
		return
	}

	rec, err := h.stakingService.Unstake(c.Request.Context(), id, middleware.GetWallet(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newStakeResponse(rec))
}

func stakeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stake id", "code": "invalid_request"})
		return uuid.Nil, false
	}
	return id, true
}
