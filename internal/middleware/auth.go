package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campusdelivery/internal/models"
	"campusdelivery/internal/repository"
	"campusdelivery/internal/security"
)

const (
	claimsKey  = "access_claims"
	accountKey = "current_account"
)

// Authenticate admits bearer tokens of the allowed types and stores the
// parsed claims and the owning account on the context.
func Authenticate(tokens *security.TokenIssuer, accounts repository.CredentialStore, allowed ...security.TokenType) gin.HandlerFunc {
	allowedSet := make(map[security.TokenType]struct{}, len(allowed))
	for _, typ := range allowed {
		allowedSet[typ] = struct{}{}
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			Abort(c, http.StatusUnauthorized, "MISSING_TOKEN", "Missing bearer token")
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		if _, ok := allowedSet[claims.Type]; !ok {
			Abort(c, http.StatusUnauthorized, "TOKEN_TYPE_NOT_ALLOWED", "This token cannot be used for this request")
			return
		}

		account, err := accounts.FindByID(c.Request.Context(), claims.Subject)
		if err != nil {
			Abort(c, http.StatusUnauthorized, "ACCOUNT_NOT_FOUND", "Account no longer exists")
			return
		}

		c.Set(claimsKey, *claims)
		c.Set(accountKey, account)

		c.Next()
	}
}

// RequireRoles must run after Authenticate.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	roleSet := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		account, ok := CurrentAccount(c)
		if !ok {
			Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		if _, ok := roleSet[account.Role]; !ok {
			Abort(c, http.StatusForbidden, "FORBIDDEN", "Your role cannot perform this request")
			return
		}
		c.Next()
	}
}

// Abort writes the error envelope shared with the handlers.
func Abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

func CurrentClaims(c *gin.Context) (security.Claims, bool) {
	val, exists := c.Get(claimsKey)
	if !exists {
		return security.Claims{}, false
	}
	claims, ok := val.(security.Claims)
	return claims, ok
}

func CurrentAccount(c *gin.Context) (models.Account, bool) {
	val, exists := c.Get(accountKey)
	if !exists {
		return models.Account{}, false
	}
	account, ok := val.(models.Account)
	return account, ok
}
