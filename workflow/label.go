package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/krishkalaria12/label-ledger/config"
	"github.com/krishkalaria12/label-ledger/imagestore"
	"github.com/krishkalaria12/label-ledger/ledger"
	"github.com/krishkalaria12/label-ledger/models"
	"gorm.io/gorm"
)

var ErrEmptyLabel = errors.New("no label selected")

// LabelResult reports the outcome of one confirmed labeling.
type LabelResult struct {
	// AlreadyLabeled is set when the user had labeled the image before;
	// the call is then a no-op and the balance is unchanged.
	AlreadyLabeled  bool  `json:"already_labeled"`
	RewardCents     int64 `json:"reward_cents"`
	NewBalanceCents int64 `json:"new_balance_cents"`
}

// Labeler runs the labeling workflow: record one user's chosen label for
// one image, credit the reward, and append the labeler's history. The
// credit and history rows exist only if the annotation row does — all
// three commit or none do.
type Labeler struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	store  *imagestore.Store
	policy config.Policy
}

func NewLabeler(db *gorm.DB, policy config.Policy) *Labeler {
	return &Labeler{
		db:     db,
		ledger: ledger.New(db),
		store:  imagestore.New(db),
		policy: policy,
	}
}

// Submit confirms userID's chosen label for imageID. Confirming the same
// image twice is an idempotent no-op: the second call reports
// AlreadyLabeled without crediting again.
func (w *Labeler) Submit(ctx context.Context, userID, imageID uint, label string) (*LabelResult, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrEmptyLabel
	}

	result := &LabelResult{}
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l := w.ledger.WithTx(tx)
		s := w.store.WithTx(tx)

		img, err := s.Get(ctx, imageID)
		if err != nil {
			return err
		}

		err = s.RecordCompletion(ctx, imageID, userID, label)
		if errors.Is(err, imagestore.ErrAlreadyLabeled) {
			account, err := l.GetAccount(ctx, userID)
			if err != nil {
				return err
			}
			result.AlreadyLabeled = true
			result.NewBalanceCents = account.BalanceCents
			return nil
		}
		if err != nil {
			return err
		}

		// Reward and history only after the annotation row is in.
		newBalance, err := l.Credit(ctx, userID, w.policy.RewardPerLabelCents)
		if err != nil {
			return err
		}
		result.RewardCents = w.policy.RewardPerLabelCents
		result.NewBalanceCents = newBalance

		return l.AppendLabelHistory(ctx, &models.LabelRecord{
			UserID:      userID,
			ImageID:     imageID,
			Label:       label,
			PayloadRef:  img.PayloadRef,
			RewardCents: w.policy.RewardPerLabelCents,
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
