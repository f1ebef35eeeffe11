package middlewares

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/picvault/picvault-service/config"
)

func CORSMiddleware(cfg *config.EnvConfig) gin.HandlerFunc {
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Timestamp"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	// Image delivery is public; only production locks the admin surface down
	// at the network layer, not here.
	corsConfig.AllowAllOrigins = true
	if cfg.Environment.Mode == "production" {
		corsConfig.AllowCredentials = false
	}

	return cors.New(corsConfig)
}
