package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gurwinder-gg/LootBazaar/internal/middleware"
	"github.com/gurwinder-gg/LootBazaar/internal/services"
)

// TokenHandler handles fungible token issuance
type TokenHandler struct {
	custody *services.CustodyAdapter
	mintID  string
}

// NewTokenHandler creates a new token handler for mintID
func NewTokenHandler(custody *services.CustodyAdapter, mintID string) *TokenHandler {
	return &TokenHandler{custody: custody, mintID: mintID}
}

// MintTokensRequest represents a token issuance request
type MintTokensRequest struct {
	To     string `json:"to" binding:"required"`
	Amount uint64 `json:"amount"`
}

// MintTokens handles POST /tokens/mint
func (h *TokenHandler) MintTokens(c *gin.Context) {
	var req MintTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	authority := c.GetString(middleware.ContextMintAuthority)
	if err := h.custody.MintTo(c.Request.Context(), h.mintID, req.To, req.Amount, authority); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mint":   h.mintID,
		"to":     req.To,
		"amount": req.Amount,
	})
}
