package entity

import (
	"time"
)

// Image is the durable metadata record for a stored payload. Key is the
// SHA-256 content hash and the only external reference to an image; the
// storage path column is a cached derivation of the key kept for index-speed
// lookups, never an independent source of truth.
type Image struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Key          string    `json:"key" gorm:"type:varchar(64);uniqueIndex;not null"`
	OriginalName string    `json:"original_name" gorm:"type:varchar(255)"`
	Extension    string    `json:"extension" gorm:"type:varchar(10)"`
	Size         int64     `json:"size" gorm:"not null"` // bytes
	MimeType     string    `json:"mime_type" gorm:"type:varchar(128);not null"`
	StoragePath  string    `json:"storage_path" gorm:"type:varchar(255);not null"`
	ViewCount    int64     `json:"view_count" gorm:"not null;default:0"`
	Enabled      bool      `json:"enabled" gorm:"not null;default:true"`
	CreatedAt    time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"not null;autoUpdateTime"`
}

func (Image) TableName() string {
	return "images"
}
