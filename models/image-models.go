package models

import (
	"gorm.io/gorm"
)

type Image struct {
	gorm.Model
	// Key is the client-supplied upload key (typically the file name).
	// Re-uploading with the same key merges into the existing record.
	Key          string `json:"key" gorm:"not null;uniqueIndex"`
	UploaderID   uint   `json:"uploader_id" gorm:"not null;index"`
	UploaderName string `json:"uploader_name"`
	// PayloadRef is an opaque reference to the encoded image bytes,
	// either an inline data URI or an object-storage URL.
	PayloadRef string `json:"payload_ref" gorm:"not null"`
	// PreviewRef holds a downscaled JPEG for the labeling feed, if one
	// could be generated.
	PreviewRef string `json:"preview_ref,omitempty"`

	// Relationships
	Uploader        User             `json:"-" gorm:"foreignKey:UploaderID"`
	CandidateLabels []CandidateLabel `json:"candidate_labels" gorm:"foreignKey:ImageID"`
	Annotations     []Annotation     `json:"annotations" gorm:"foreignKey:ImageID"`
}

// CandidateLabel is one label choice an uploader attached to an image.
// The composite unique index collapses duplicates, so merging a re-upload
// is a plain insert-or-ignore.
type CandidateLabel struct {
	ID      uint   `json:"-" gorm:"primarykey"`
	ImageID uint   `json:"-" gorm:"not null;uniqueIndex:idx_image_label"`
	Label   string `json:"label" gorm:"not null;uniqueIndex:idx_image_label"`
}

// Annotation records one user's completed labeling of one image. A single
// row is both the labeler-set membership and the chosen-label entry, so the
// two can never diverge, and the unique index on (image_id, user_id)
// enforces at-most-once per user per image at the database level.
type Annotation struct {
	gorm.Model
	ImageID uint   `json:"image_id" gorm:"not null;uniqueIndex:idx_image_user"`
	UserID  uint   `json:"user_id" gorm:"not null;uniqueIndex:idx_image_user"`
	Label   string `json:"label" gorm:"not null"`
}
