package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/label-ledger/ledger"
)

// Me returns the authenticated account snapshot: identity, role, balance.
func Me(c *fiber.Ctx) error {
	type AccountResponse struct {
		ID           uint   `json:"id"`
		Email        string `json:"email"`
		Username     string `json:"username"`
		FullName     string `json:"name"`
		Role         string `json:"role"`
		BalanceCents int64  `json:"balance_cents"`
	}

	userID, ok := requireUserID(c)
	if !ok {
		return nil
	}

	account, err := accounts.GetAccount(c.Context(), userID)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "No account found",
				"status":  "error",
				"data":    nil,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Database error",
			"status":  "error",
			"data":    nil,
		})
	}

	response := AccountResponse{
		ID:           account.ID,
		Email:        account.Email,
		Username:     account.Username,
		FullName:     account.FullName,
		Role:         account.Role,
		BalanceCents: account.BalanceCents,
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Account found",
		"data":    response,
	})
}

// LabelHistory returns the authenticated labeler's past label
// confirmations in append order.
func LabelHistory(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return nil
	}

	records, err := accounts.LabelHistory(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Database error",
			"status":  "error",
			"data":    nil,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Label history",
		"data":    records,
	})
}

// UploadHistory returns the authenticated uploader's past batches in
// append order.
func UploadHistory(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return nil
	}

	records, err := accounts.UploadHistory(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Database error",
			"status":  "error",
			"data":    nil,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Upload history",
		"data":    records,
	})
}
