package entity

import (
	"time"

	"github.com/google/uuid"
)

// AccessKey is a per-client credential pair gating writes. The secret key is
// only handed out once at creation time; afterwards it exists solely for
// request signature verification.
type AccessKey struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string     `json:"name" gorm:"type:varchar(50);not null"`
	AccessKey   string     `json:"access_key" gorm:"type:varchar(100);uniqueIndex;not null"`
	SecretKey   string     `json:"-" gorm:"type:varchar(100);not null"`
	IsEnabled   bool       `json:"is_enabled" gorm:"not null;default:true"`
	Description string     `json:"description" gorm:"type:varchar(200)"`
	ExpiresAt   *time.Time `json:"expires_at"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"not null;autoUpdateTime"`
}

func (AccessKey) TableName() string {
	return "access_keys"
}
