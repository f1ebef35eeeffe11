package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/picvault/picvault-service/http/controller"
)

type Middlewares struct {
	CORSMiddleware       gin.HandlerFunc
	AdminAuthMiddleware  gin.HandlerFunc
	PrometheusMiddleware gin.HandlerFunc
}

func NewMiddlewares(ctrl *controller.Controller) (*Middlewares, error) {
	cors := CORSMiddleware(ctrl.Config.EnvConfig)
	adminAuth := AdminAuthMiddleware(ctrl.Authority, ctrl.Config.EnvConfig)
	prom, err := PrometheusMiddleware(ctrl.MetricsRegistry)
	if err != nil {
		return nil, err
	}

	return &Middlewares{
		CORSMiddleware:       cors,
		AdminAuthMiddleware:  adminAuth,
		PrometheusMiddleware: prom,
	}, nil
}
