package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gurwinder-gg/LootBazaar/internal/middleware"
	"github.com/gurwinder-gg/LootBazaar/internal/models"
	"github.com/gurwinder-gg/LootBazaar/internal/services"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService *services.AuthService
	jwtConfig   middleware.JWTConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, jwtConfig middleware.JWTConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtConfig:   jwtConfig,
	}
}

// Challenge issues the challenge a wallet key signs to register
func (h *AuthHandler) Challenge(c *gin.Context) {
	var req services.ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	challenge, err := h.authService.IssueChallenge(req.Wallet)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, challenge)
}

// Register handles account registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, account)
}

// Login handles account login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, account)
}

// Profile handles getting the caller's account
func (h *AuthHandler) Profile(c *gin.Context) {
	accountID, err := uuid.Parse(middleware.GetAccountID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account id"})
		return
	}

	account, err := h.authService.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, account *models.Account) {
	token, err := middleware.GenerateToken(account.ID.String(), account.Email, account.Wallet, h.jwtConfig)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(status, services.AuthResponse{
		AccountID: account.ID.String(),
		Email:     account.Email,
		Wallet:    account.Wallet,
		Token:     token,
	})
}
