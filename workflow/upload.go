package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/krishkalaria12/label-ledger/config"
	"github.com/krishkalaria12/label-ledger/imagestore"
	"github.com/krishkalaria12/label-ledger/ledger"
	"github.com/krishkalaria12/label-ledger/models"
	"gorm.io/gorm"
)

var ErrEmptyBatch = errors.New("upload batch contains no images")

// UploadItem is one encoded image of a batch, already converted to an
// opaque payload reference by the storage encoder.
type UploadItem struct {
	Key        string
	PayloadRef string
	PreviewRef string
}

// UploadResult reports what a committed batch produced.
type UploadResult struct {
	ImageIDs        []uint   `json:"image_ids"`
	ImageKeys       []string `json:"image_keys"`
	CostCents       int64    `json:"cost_cents"`
	NewBalanceCents int64    `json:"new_balance_cents"`
}

// Uploader runs the upload workflow: admit a batch of images with their
// candidate labels, debit the fee, and append the uploader's history — all
// in one transaction, so a failure anywhere leaves nothing behind.
type Uploader struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	store  *imagestore.Store
	policy config.Policy
}

func NewUploader(db *gorm.DB, policy config.Policy) *Uploader {
	return &Uploader{
		db:     db,
		ledger: ledger.New(db),
		store:  imagestore.New(db),
		policy: policy,
	}
}

// Submit validates and commits one upload batch for uploaderID. The shared
// candidate labels apply to every image in the batch, duplicates and empty
// strings collapsed. Cost is imageCount*feePerImage plus a label fee for
// every (image, distinct label) attachment.
func (u *Uploader) Submit(ctx context.Context, uploaderID uint, items []UploadItem, labels []string) (*UploadResult, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	for _, it := range items {
		if strings.TrimSpace(it.Key) == "" || it.PayloadRef == "" {
			return nil, fmt.Errorf("upload item %q has no key or payload", it.Key)
		}
	}

	cleaned := cleanLabels(labels)
	cost := u.policy.UploadCostCents(len(items), len(cleaned))

	account, err := u.ledger.GetAccount(ctx, uploaderID)
	if err != nil {
		return nil, err
	}

	// Fast-path rejection before any store writes. The authoritative check
	// is the conditional debit inside the transaction below.
	if account.BalanceCents < cost {
		return nil, &ledger.InsufficientFundsError{
			RequiredCents:  cost,
			AvailableCents: account.BalanceCents,
		}
	}

	labelsJSON, err := json.Marshal(cleaned)
	if err != nil {
		return nil, err
	}

	result := &UploadResult{CostCents: cost}
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l := u.ledger.WithTx(tx)
		s := u.store.WithTx(tx)

		committed := make([]*models.Image, 0, len(items))
		for _, it := range items {
			img, err := s.CreateOrMerge(ctx, it.Key, uploaderID, account.Username, it.PayloadRef, it.PreviewRef, cleaned)
			if err != nil {
				return err
			}
			committed = append(committed, img)
		}

		newBalance, err := l.Debit(ctx, uploaderID, cost)
		if err != nil {
			return err
		}
		result.NewBalanceCents = newBalance

		for _, img := range committed {
			rec := &models.UploadRecord{
				UserID:    uploaderID,
				ImageID:   img.ID,
				ImageKey:  img.Key,
				Labels:    string(labelsJSON),
				CostCents: cost,
			}
			if err := l.AppendUploadHistory(ctx, rec); err != nil {
				return err
			}
			result.ImageIDs = append(result.ImageIDs, img.ID)
			result.ImageKeys = append(result.ImageKeys, img.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func cleanLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}
