package controller

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/picvault/picvault-service/auth"
	"github.com/picvault/picvault-service/config"
	"github.com/picvault/picvault-service/engine"
	"github.com/picvault/picvault-service/infra"
	"github.com/picvault/picvault-service/repository"
)

type Controller struct {
	Config          *config.Config
	Infra           *infra.Infra
	Repository      *repository.Repository
	Engine          *engine.Engine
	Authority       *auth.Authority
	MetricsRegistry *prometheus.Registry
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository, eng *engine.Engine, authority *auth.Authority, registry *prometheus.Registry) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}
	if eng == nil {
		panic("Failed to initialize Engine")
	}
	if authority == nil {
		panic("Failed to initialize Authority")
	}
	return &Controller{
		Config:          config,
		Infra:           infra,
		Repository:      repo,
		Engine:          eng,
		Authority:       authority,
		MetricsRegistry: registry,
	}
}
