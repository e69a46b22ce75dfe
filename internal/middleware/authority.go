package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextMintAuthority is set once the mint authority has been verified
const ContextMintAuthority = "mint_authority"

// MintAuthorityMiddleware admits only requests signed for the configured mint authority.
// Callers present X-Mint-Authority and X-API-Key. An empty apiKey disables the route.
func MintAuthorityMiddleware(authority, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authority == "" || apiKey == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token issuance is disabled"})
			return
		}

		caller := c.GetHeader("X-Mint-Authority")
		key := c.GetHeader("X-API-Key")
		if caller == "" || key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if caller != authority {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "caller is not the mint authority"})
			return
		}

		c.Set(ContextMintAuthority, caller)
		c.Next()
	}
}
