package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/picvault/picvault-service/entity"
)

// AccessKeyRepository handles all database operations for the AccessKey
// entity. The engine only reads and validates keys; creation and revocation
// belong to the administrative surface.
type AccessKeyRepository struct {
	db *gorm.DB
}

func NewAccessKeyRepository(db *gorm.DB) *AccessKeyRepository {
	return &AccessKeyRepository{db: db}
}

func (r *AccessKeyRepository) FindByAccessKey(ctx context.Context, accessKey string) (*entity.AccessKey, error) {
	var key entity.AccessKey
	err := r.db.WithContext(ctx).Where("access_key = ?", accessKey).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &key, nil
}

// UpdateLastUsed records a successful authentication. Written off the request
// path, so it only touches the one column.
func (r *AccessKeyRepository) UpdateLastUsed(ctx context.Context, accessKey string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.AccessKey{}).
		Where("access_key = ?", accessKey).
		UpdateColumn("last_used_at", at).Error
}
