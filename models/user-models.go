package models

import (
	"gorm.io/gorm"
)

const (
	RoleUploader = "uploader"
	RoleViewer   = "viewer"
)

type User struct {
	gorm.Model
	Email    string `json:"email" gorm:"not null;uniqueIndex"`
	Username string `json:"username" gorm:"not null;uniqueIndex"`
	FullName string `json:"name"`
	Password string `json:"-" gorm:"not null"`

	// Role is fixed at registration and never updated afterwards.
	Role string `json:"role" gorm:"not null"`

	// BalanceCents is the wallet balance in integer cents. It is mutated
	// only through ledger.Debit and ledger.Credit, never via Save.
	BalanceCents int64 `json:"balance_cents" gorm:"not null;default:0"`
}

// ValidRole reports whether r is one of the two supported account roles.
func ValidRole(r string) bool {
	return r == RoleUploader || r == RoleViewer
}
