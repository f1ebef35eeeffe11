package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/picvault/picvault-service/http/controller"
	middlewares "github.com/picvault/picvault-service/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}

	r.Use(middles.CORSMiddleware)
	r.Use(middles.PrometheusMiddleware)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(ctrl.MetricsRegistry, promhttp.HandlerOpts{})))

	apiRoutes := r.Group("/api/v1")
	{
		authRoutes := apiRoutes.Group("/auth")
		{
			authRoutes.POST("/token", ctrl.IssueToken)
		}

		imageRoutes := apiRoutes.Group("/images")
		{
			// Delivery is public; the content address is the capability.
			imageRoutes.GET("/:key", ctrl.GetImage)

			adminRoutes := imageRoutes.Group("")
			{
				adminRoutes.Use(middles.AdminAuthMiddleware)

				adminRoutes.GET("", ctrl.ListImages)
				adminRoutes.POST("/upload", ctrl.UploadImage)
				adminRoutes.PATCH("/:key/enable", ctrl.EnableImage)
				adminRoutes.PATCH("/:key/disable", ctrl.DisableImage)
				adminRoutes.POST("/:key/pin", ctrl.PinImage)
			}
		}
	}
	return r
}
