package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/label-ledger/cache"
	"github.com/krishkalaria12/label-ledger/config"
	"github.com/krishkalaria12/label-ledger/imagestore"
	"github.com/krishkalaria12/label-ledger/ledger"
	"github.com/krishkalaria12/label-ledger/middleware"
	"github.com/krishkalaria12/label-ledger/storage"
	"github.com/krishkalaria12/label-ledger/workflow"
	"gorm.io/gorm"
)

// Shared handler dependencies, wired once at startup.
var (
	db       *gorm.DB
	policy   config.Policy
	accounts *ledger.Ledger
	images   *imagestore.Store
	uploads  *workflow.Uploader
	labeling *workflow.Labeler
	encoder  storage.PayloadEncoder
	feed     *cache.Feed // nil when no redis is configured
)

// Setup wires the handler package. feedCache may be nil; the open-images
// listing then always hits the database.
func Setup(database *gorm.DB, p config.Policy, enc storage.PayloadEncoder, feedCache *cache.Feed) {
	db = database
	policy = p
	accounts = ledger.New(database)
	images = imagestore.New(database)
	uploads = workflow.NewUploader(database, p)
	labeling = workflow.NewLabeler(database, p)
	encoder = enc
	feed = feedCache
}

func Hello(c *fiber.Ctx) error {
	return c.SendString("Hello, World!")
}

// requireUserID resolves the authenticated account ID. On failure it writes
// the 401 response itself and reports ok=false.
func requireUserID(c *fiber.Ctx) (uint, bool) {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status":  "error",
			"message": "Unauthorized Request",
			"data":    nil,
		})
		return 0, false
	}
	return userID, true
}
