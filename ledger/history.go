package ledger

import (
	"context"

	"github.com/krishkalaria12/label-ledger/models"
)

// AppendLabelHistory adds one entry to a labeler's history. Entries are
// insert-only; nothing ever updates them.
func (l *Ledger) AppendLabelHistory(ctx context.Context, rec *models.LabelRecord) error {
	return l.db.WithContext(ctx).Create(rec).Error
}

// AppendUploadHistory adds one entry to an uploader's history.
func (l *Ledger) AppendUploadHistory(ctx context.Context, rec *models.UploadRecord) error {
	return l.db.WithContext(ctx).Create(rec).Error
}

// LabelHistory returns a labeler's entries in append order.
func (l *Ledger) LabelHistory(ctx context.Context, userID uint) ([]models.LabelRecord, error) {
	var recs []models.LabelRecord
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&recs).Error
	return recs, err
}

// UploadHistory returns an uploader's entries in append order.
func (l *Ledger) UploadHistory(ctx context.Context, userID uint) ([]models.UploadRecord, error) {
	var recs []models.UploadRecord
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&recs).Error
	return recs, err
}
