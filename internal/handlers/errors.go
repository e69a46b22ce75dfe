package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gurwinder-gg/LootBazaar/internal/services"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{services.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{services.ErrStakeNotFound, http.StatusNotFound, "stake_not_found"},
	{services.ErrAlreadyClaimed, http.StatusConflict, "already_claimed"},
	{services.ErrStakePeriodNotCompleted, http.StatusConflict, "stake_period_not_completed"},
	{services.ErrStakeLocked, http.StatusConflict, "stake_locked"},
	{services.ErrStakeClosed, http.StatusConflict, "stake_closed"},
	{services.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{services.ErrInvalidDuration, http.StatusBadRequest, "invalid_duration"},
	{services.ErrCustodyTransferFailed, http.StatusBadGateway, "custody_transfer_failed"},
	{services.ErrArtifactMintFailed, http.StatusBadGateway, "artifact_mint_failed"},
	{services.ErrAccountExists, http.StatusConflict, "account_exists"},
	{services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{services.ErrAccountNotFound, http.StatusNotFound, "account_not_found"},
	{services.ErrWalletRequired, http.StatusBadRequest, "invalid_request"},
	{services.ErrInvalidWallet, http.StatusBadRequest, "invalid_wallet"},
	{services.ErrInvalidWalletProof, http.StatusUnauthorized, "invalid_wallet_proof"},
}

// respondError writes the JSON error body for err. Unknown errors are reported as
// internal without leaking their text.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": err.Error(), "code": m.code})
			return
		}
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_request"})
}
