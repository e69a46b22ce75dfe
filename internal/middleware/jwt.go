package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by JWTMiddleware
const (
	ContextAccountID = "account_id"
	ContextEmail     = "email"
	ContextWallet    = "wallet"
)

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

// Claims represents JWT claims. Wallet is the caller identity for stake operations.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Wallet    string `json:"wallet"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT token
func GenerateToken(accountID, email, wallet string, config JWTConfig) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		Wallet:    wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(config.Expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Secret))
}

// JWTMiddleware creates a Gin middleware for JWT authentication
func JWTMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid || claims.AccountID == "" || claims.Wallet == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			return
		}

		c.Set(ContextAccountID, claims.AccountID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextWallet, claims.Wallet)
		c.Next()
	}
}

// GetAccountID extracts the account ID from context
func GetAccountID(c *gin.Context) string {
	return c.GetString(ContextAccountID)
}

// GetWallet extracts the caller's wallet from context
func GetWallet(c *gin.Context) string {
	return c.GetString(ContextWallet)
}
