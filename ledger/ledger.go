package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/krishkalaria12/label-ledger/models"
	"gorm.io/gorm"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
)

// InsufficientFundsError carries the amounts needed to tell the caller how
// short the wallet is. It matches ErrInsufficientFunds under errors.Is.
type InsufficientFundsError struct {
	RequiredCents  int64
	AvailableCents int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %d cents, available %d cents",
		e.RequiredCents, e.AvailableCents)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// Ledger owns wallet balances and the two append-only history projections.
// Balances are mutated only through conditional single-statement updates,
// never through read-modify-write of a fetched record.
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// WithTx returns a Ledger bound to tx so that a workflow step can compose
// debit/credit and history appends into one transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx}
}

// Debit decreases the wallet by cents and returns the new balance. The
// balance check and the decrement are one conditional UPDATE evaluated
// against the committed balance, so concurrent debits can never drive the
// wallet negative.
func (l *Ledger) Debit(ctx context.Context, userID uint, cents int64) (int64, error) {
	if cents < 0 {
		return 0, fmt.Errorf("debit amount must not be negative: %d", cents)
	}

	res := l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND balance_cents >= ?", userID, cents).
		UpdateColumn("balance_cents", gorm.Expr("balance_cents - ?", cents))
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected == 0 {
		available, err := l.balance(ctx, userID)
		if err != nil {
			return 0, err
		}
		return 0, &InsufficientFundsError{RequiredCents: cents, AvailableCents: available}
	}

	return l.balance(ctx, userID)
}

// Credit increases the wallet by cents and returns the new balance. It can
// only fail when the account does not exist.
func (l *Ledger) Credit(ctx context.Context, userID uint, cents int64) (int64, error) {
	if cents < 0 {
		return 0, fmt.Errorf("credit amount must not be negative: %d", cents)
	}

	res := l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("balance_cents", gorm.Expr("balance_cents + ?", cents))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrAccountNotFound
	}

	return l.balance(ctx, userID)
}

func (l *Ledger) balance(ctx context.Context, userID uint) (int64, error) {
	var user models.User
	err := l.db.WithContext(ctx).Select("balance_cents").First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return user.BalanceCents, nil
}

// GetAccount returns a snapshot of the account, including its balance.
func (l *Ledger) GetAccount(ctx context.Context, userID uint) (models.User, error) {
	var user models.User
	err := l.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrAccountNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
