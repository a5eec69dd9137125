package models

import (
	"gorm.io/gorm"
)

// LabelRecord is one entry in a labeler's append-only history. Rows are
// inserted in the same transaction as the reward credit and are never
// updated or deleted.
type LabelRecord struct {
	gorm.Model
	UserID      uint   `json:"user_id" gorm:"not null;index"`
	ImageID     uint   `json:"image_id" gorm:"not null"`
	Label       string `json:"label" gorm:"not null"`
	PayloadRef  string `json:"payload_ref"`
	RewardCents int64  `json:"reward_cents" gorm:"not null"`
}

// UploadRecord is one entry in an uploader's append-only history, one row
// per image admitted by a batch.
type UploadRecord struct {
	gorm.Model
	UserID    uint   `json:"user_id" gorm:"not null;index"`
	ImageID   uint   `json:"image_id" gorm:"not null"`
	ImageKey  string `json:"image_key" gorm:"not null"`
	Labels    string `json:"labels"` // JSON-encoded []string
	CostCents int64  `json:"cost_cents" gorm:"not null"`
}
