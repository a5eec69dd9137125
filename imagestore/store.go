package imagestore

import (
	"context"
	"errors"
	"strings"

	"github.com/krishkalaria12/label-ledger/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrImageNotFound  = errors.New("image not found")
	ErrInvalidLabel   = errors.New("label is not one of the image's candidate labels")
	ErrAlreadyLabeled = errors.New("user has already labeled this image")
)

// Store owns image records: their candidate-label sets and the annotations
// contributed by labelers. Every mutation is a single conditional statement
// so concurrent callers serialize at the database, not in application code.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a Store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// CreateOrMerge admits one uploaded image. If no record exists for key it
// creates one; otherwise it refreshes the payload and uploader and unions
// the new candidate labels into the existing set. Retrying the same upload
// is therefore idempotent.
func (s *Store) CreateOrMerge(ctx context.Context, key string, uploaderID uint, uploaderName, payloadRef, previewRef string, labels []string) (*models.Image, error) {
	img := models.Image{
		Key:          key,
		UploaderID:   uploaderID,
		UploaderName: uploaderName,
		PayloadRef:   payloadRef,
		PreviewRef:   previewRef,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"uploader_id", "uploader_name", "payload_ref", "preview_ref", "updated_at",
		}),
	}).Create(&img).Error
	if err != nil {
		return nil, err
	}

	// Re-read by key: on the merge path the upsert does not report the
	// existing record's ID.
	var stored models.Image
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&stored).Error; err != nil {
		return nil, err
	}

	candidates := dedupeLabels(stored.ID, labels)
	if len(candidates) > 0 {
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&candidates).Error
		if err != nil {
			return nil, err
		}
	}

	return &stored, nil
}

func dedupeLabels(imageID uint, labels []string) []models.CandidateLabel {
	seen := make(map[string]struct{}, len(labels))
	out := make([]models.CandidateLabel, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, models.CandidateLabel{ImageID: imageID, Label: label})
	}
	return out
}

// RecordCompletion stores one user's chosen label for one image. The
// annotation row doubles as the labeler-set membership, and the unique
// index on (image_id, user_id) turns a repeated completion into
// ErrAlreadyLabeled without any read-then-write window.
func (s *Store) RecordCompletion(ctx context.Context, imageID, userID uint, label string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CandidateLabel{}).
		Where("image_id = ? AND label = ?", imageID, label).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		var images int64
		err := s.db.WithContext(ctx).Model(&models.Image{}).
			Where("id = ?", imageID).
			Count(&images).Error
		if err != nil {
			return err
		}
		if images == 0 {
			return ErrImageNotFound
		}
		return ErrInvalidLabel
	}

	ann := models.Annotation{ImageID: imageID, UserID: userID, Label: label}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ann)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyLabeled
	}
	return nil
}

// ListOpenFor returns every image the user has not labeled yet, candidate
// labels included. Calling it again reflects the current state rather than
// a frozen snapshot.
func (s *Store) ListOpenFor(ctx context.Context, userID uint) ([]models.Image, error) {
	sub := s.db.WithContext(ctx).Model(&models.Annotation{}).
		Select("image_id").
		Where("user_id = ?", userID)

	var images []models.Image
	err := s.db.WithContext(ctx).
		Preload("CandidateLabels").
		Where("id NOT IN (?)", sub).
		Order("id asc").
		Find(&images).Error
	return images, err
}

// Get returns one image with its candidate labels and annotations.
func (s *Store) Get(ctx context.Context, imageID uint) (*models.Image, error) {
	var img models.Image
	err := s.db.WithContext(ctx).
		Preload("CandidateLabels").
		Preload("Annotations").
		First(&img, imageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &img, nil
}
