package middlewares

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/picvault/picvault-service/auth"
	"github.com/picvault/picvault-service/config"
	"github.com/picvault/picvault-service/utils"
)

// AdminAuthMiddleware supports dual authentication:
// 1. Bearer JWT authentication (interactive clients holding an issued token)
// 2. HMAC signature authentication (programmatic access with raw key pairs)
//
// Authentication is OR logic - either method is acceptable. Rejections are
// deliberately uniform: the response never reveals which check failed.
func AdminAuthMiddleware(authority *auth.Authority, cfg *config.EnvConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		if strings.HasPrefix(authHeader, "Bearer ") {
			handleJWTAuth(c, cfg, authHeader)
		} else if strings.HasPrefix(authHeader, "HMAC ") {
			handleHMACAuth(c, authority, authHeader)
		} else {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization type. Use 'Bearer' or 'HMAC'"})
			c.Abort()
			return
		}
	}
}

// handleJWTAuth processes Bearer JWT authentication
func handleJWTAuth(c *gin.Context, cfg *config.EnvConfig, authHeader string) {
	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Bearer token"})
		c.Abort()
		return
	}

	parsedToken, err := utils.ParseToken(tokenStr, cfg)
	if err != nil || !parsedToken.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		c.Abort()
		return
	}

	if claims, ok := parsedToken.Claims.(jwt.MapClaims); ok {
		if err := utils.InjectClaimsToContext(c, claims); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid claims"})
			c.Abort()
			return
		}
	} else {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
		c.Abort()
		return
	}

	c.Set("auth_method", "bearer")
	c.Next()
}

// handleHMACAuth processes HMAC signature authentication
// Header format: Authorization: HMAC <accessKey>:<signature>
// Required headers: X-Timestamp
func handleHMACAuth(c *gin.Context, authority *auth.Authority, authHeader string) {
	hmacValue := strings.TrimPrefix(authHeader, "HMAC ")
	parts := strings.SplitN(hmacValue, ":", 2)
	if len(parts) != 2 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid HMAC authorization format. Expected: HMAC <accessKey>:<signature>"})
		c.Abort()
		return
	}

	accessKey := parts[0]
	clientSignature := parts[1]

	timestampStr := c.GetHeader("X-Timestamp")
	if timestampStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Timestamp header is required"})
		c.Abort()
		return
	}

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid X-Timestamp format"})
		c.Abort()
		return
	}

	// Read request body for hashing, then restore it for the handler.
	var bodyBytes []byte
	if c.Request.Body != nil {
		bodyBytes, err = io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
	}

	identity, err := authority.Authenticate(c.Request.Context(), accessKey, clientSignature, utils.CanonicalRequest{
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		Timestamp: timestamp,
		BodyHash:  utils.HashBody(bodyBytes),
	})
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		c.Abort()
		return
	}

	c.Set("access_key", identity.AccessKey)
	c.Set("access_key_name", identity.Name)
	c.Set("auth_method", "hmac")

	c.Next()
}
