package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-pkgz/auth/v2/token"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/krishkalaria12/label-ledger/auth"
	"github.com/krishkalaria12/label-ledger/models"
	"gorm.io/gorm"
)

// Register creates an account with the chosen role and the configured
// starting balance. The role is fixed for the lifetime of the account.
func Register(c *fiber.Ctx) error {
	type RegisterData struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		FullName string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}

	type UserResponse struct {
		ID           uint   `json:"id"`
		Email        string `json:"email"`
		Username     string `json:"username"`
		FullName     string `json:"name"`
		Role         string `json:"role"`
		BalanceCents int64  `json:"balance_cents"`
	}

	input := new(RegisterData)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"status":  "error",
			"data":    nil,
		})
	}

	if input.Email == "" || input.Username == "" || input.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Email, username and password are required",
			"status":  "error",
			"data":    nil,
		})
	}
	if !models.ValidRole(input.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Role must be uploader or viewer",
			"status":  "error",
			"data":    nil,
		})
	}

	// Check the identity up front so a transient store failure is never
	// reported as a conflict. The unique indexes still back this check.
	var taken int64
	if err := db.Model(&models.User{}).
		Where("email = ? OR username = ?", input.Email, input.Username).
		Count(&taken).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Database error",
			"status":  "error",
			"data":    nil,
		})
	}
	if taken > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Email or username already in use",
			"status":  "error",
			"data":    nil,
		})
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to hash password",
			"status":  "error",
			"data":    nil,
		})
	}

	user := models.User{
		Email:        input.Email,
		Username:     input.Username,
		FullName:     input.FullName,
		Password:     hash,
		Role:         input.Role,
		BalanceCents: policy.StartingBalanceCents,
	}

	if err := db.Create(&user).Error; err != nil {
		// A concurrent registration can still slip past the check and hit
		// the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Email or username already in use",
				"status":  "error",
				"data":    nil,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to create the account",
			"status":  "error",
			"data":    nil,
		})
	}

	response := UserResponse{
		ID:           user.ID,
		Email:        user.Email,
		Username:     user.Username,
		FullName:     user.FullName,
		Role:         user.Role,
		BalanceCents: user.BalanceCents,
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "User created successfully",
		"status":  "success",
		"data":    response,
	})
}

// Custom login handler that integrates with go-pkgz/auth
func Login(c *fiber.Ctx) error {
	type LoginData struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}

	type UserResponse struct {
		ID           uint   `json:"id"`
		Email        string `json:"email"`
		Username     string `json:"username"`
		FullName     string `json:"name"`
		Role         string `json:"role"`
		BalanceCents int64  `json:"balance_cents"`
		Token        string `json:"token"`
	}

	input := new(LoginData)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"status":  "error",
			"data":    nil,
		})
	}

	userModel, err := auth.LookupUser(db, input.Identity)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Database error",
			"status":  "error",
			"data":    nil,
		})
	}

	if userModel == nil || !auth.CheckPasswordHash(input.Password, userModel.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Invalid identity or password",
			"status":  "error",
			"data":    nil,
		})
	}

	// Create JWT token using go-pkgz/auth; the role travels with the token
	// so role gates never need a database round trip.
	user := token.User{
		ID:    strconv.FormatUint(uint64(userModel.ID), 10),
		Name:  userModel.FullName,
		Email: userModel.Email,
		Attributes: map[string]interface{}{
			"username": userModel.Username,
			"role":     userModel.Role,
		},
	}

	authService := auth.GetAuthService()
	claims := token.Claims{
		User: &user,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    authService.TokenService().Issuer,
			Audience:  []string{"label-ledger"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 24)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	tokenStr, err := authService.TokenService().Token(claims)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to generate token",
			"status":  "error",
			"data":    nil,
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     "JWT",
		Value:    tokenStr,
		Expires:  time.Now().Add(time.Hour * 24 * 7),
		HTTPOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: "Lax",
	})

	response := UserResponse{
		ID:           userModel.ID,
		Email:        userModel.Email,
		Username:     userModel.Username,
		FullName:     userModel.FullName,
		Role:         userModel.Role,
		BalanceCents: userModel.BalanceCents,
		Token:        tokenStr,
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Login successful",
		"status":  "success",
		"data":    response,
	})
}

func Logout(c *fiber.Ctx) error {
	// Clear JWT cookie
	c.Cookie(&fiber.Cookie{
		Name:     "JWT",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logout successful",
		"status":  "success",
		"data":    nil,
	})
}
