package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/picvault/picvault-service/entity"
)

var (
	// ErrDuplicateKey signals that a row with the same content key already
	// exists. Callers treat it as a dedup signal and fall back to FindByKey.
	ErrDuplicateKey = errors.New("duplicate content key")
	// ErrNotFound signals the absence of a row.
	ErrNotFound = errors.New("record not found")
)

// ImageRepository handles all database operations for the Image entity.
type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Insert creates the metadata row. Concurrent inserts of the same key race on
// the unique index; exactly one wins and the rest observe ErrDuplicateKey.
func (r *ImageRepository) Insert(ctx context.Context, image *entity.Image) error {
	if image == nil {
		return errors.New("image cannot be nil")
	}
	err := r.db.WithContext(ctx).Create(image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

func (r *ImageRepository) FindByKey(ctx context.Context, key string) (*entity.Image, error) {
	var image entity.Image
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &image, nil
}

// IncrementViewCount bumps the counter with a single atomic UPDATE so that
// concurrent reads never lose increments. UpdateColumn deliberately leaves
// updated_at untouched; view traffic is not a metadata edit.
func (r *ImageRepository) IncrementViewCount(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Image{}).
		Where("key = ?", key).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// SetEnabled toggles the serving status. This is an explicit metadata edit and
// refreshes updated_at.
func (r *ImageRepository) SetEnabled(ctx context.Context, key string, enabled bool) error {
	res := r.db.WithContext(ctx).
		Model(&entity.Image{}).
		Where("key = ?", key).
		Update("enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the metadata row. Used by the write-path compensation when
// the cold tier rejected the bytes of a freshly inserted record.
func (r *ImageRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Delete(&entity.Image{}, "key = ?", key).Error
}

func (r *ImageRepository) List(ctx context.Context, offset, limit int) ([]entity.Image, error) {
	var images []entity.Image
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&images).Error
	if err != nil {
		return nil, err
	}
	return images, nil
}
