package repository

import (
	"github.com/picvault/picvault-service/infra"
)

type Repository struct {
	ImageRepo     *ImageRepository
	AccessKeyRepo *AccessKeyRepository
}

func InitRepository(infra *infra.Infra) *Repository {
	return &Repository{
		ImageRepo:     NewImageRepository(infra.Postgres.DB),
		AccessKeyRepo: NewAccessKeyRepository(infra.Postgres.DB),
	}
}
