package utils

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/picvault/picvault-service/config"
)

// GenerateToken mints an HS256 token for a validated access key. The token
// carries the public access key only, never the secret.
func GenerateToken(accessKey, keyName string, cfg *config.EnvConfig) (string, error) {
	if cfg.JWT.SecretKey == "" {
		return "", errors.New("jwt secret key is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"access_key": accessKey,
		"name":       keyName,
		"iat":        now.Unix(),
		"exp":        now.Add(time.Duration(cfg.JWT.Expire) * time.Second).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWT.SecretKey))
}

func ParseToken(tokenString string, cfg *config.EnvConfig) (*jwt.Token, error) {
	secret := []byte(cfg.JWT.SecretKey)
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
}

func InjectClaimsToContext(c *gin.Context, claims jwt.MapClaims) error {
	accessKey, ok := claims["access_key"].(string)
	if !ok || accessKey == "" {
		return errors.New("invalid access_key claim")
	}
	c.Set("access_key", accessKey)

	if name, ok := claims["name"].(string); ok {
		c.Set("access_key_name", name)
	} else {
		c.Set("access_key_name", "")
	}
	return nil
}
