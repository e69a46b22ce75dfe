package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gurwinder-gg/LootBazaar/internal/metrics"
	"github.com/gurwinder-gg/LootBazaar/internal/middleware"
	"github.com/gurwinder-gg/LootBazaar/internal/services"
)

// RouterConfig holds everything the HTTP router serves
type RouterConfig struct {
	Auth           *services.AuthService
	Staking        *services.StakingService
	Rewards        *services.RewardService
	Custody        *services.CustodyAdapter
	JWT            middleware.JWTConfig
	MintID         string
	MintAuthority  string
	IssuanceAPIKey string
	RateLimiter    *middleware.RateLimiter
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// NewRouter builds the API router
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Logger != nil {
		router.Use(middleware.RequestLogger(cfg.Logger))
	}
	router.Use(middleware.Metrics(cfg.Metrics))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Mint-Authority, X-API-Key")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if registry := cfg.Metrics.Registry(); registry != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	authHandler := NewAuthHandler(cfg.Auth, cfg.JWT)
	stakeHandler := NewStakeHandler(cfg.Staking)
	rewardHandler := NewRewardHandler(cfg.Rewards)
	tokenHandler := NewTokenHandler(cfg.Custody, cfg.MintID)

	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimiter != nil {
		limit = cfg.RateLimiter.Handler()
	}
	jwtAuth := middleware.JWTMiddleware(cfg.JWT.Secret)

	api := router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/challenge", limit, authHandler.Challenge)
			auth.POST("/register", limit, authHandler.Register)
			auth.POST("/login", limit, authHandler.Login)
			auth.GET("/profile", jwtAuth, limit, authHandler.Profile)
		}

		stakes := api.Group("/stakes")
		stakes.Use(jwtAuth, limit)
		{
			stakes.POST("", stakeHandler.CreateStake)
			stakes.GET("", stakeHandler.ListStakes)
			stakes.GET("/:id", stakeHandler.GetStake)
			stakes.POST("/:id/claim", stakeHandler.Claim)
			stakes.POST("/:id/unstake", stakeHandler.Unstake)
		}

		rewards := api.Group("/rewards")
		rewards.Use(jwtAuth, limit)
		{
			rewards.POST("/mint", rewardHandler.MintReward)
		}

		tokens := api.Group("/tokens")
		tokens.Use(limit, middleware.MintAuthorityMiddleware(cfg.MintAuthority, cfg.IssuanceAPIKey))
		{
			tokens.POST("/mint", tokenHandler.MintTokens)
		}
	}

	return router
}
