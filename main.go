package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/label-ledger/auth"
	"github.com/krishkalaria12/label-ledger/cache"
	"github.com/krishkalaria12/label-ledger/config"
	"github.com/krishkalaria12/label-ledger/database"
	handler "github.com/krishkalaria12/label-ledger/handlers"
	"github.com/krishkalaria12/label-ledger/router"
	"github.com/krishkalaria12/label-ledger/storage"
)

func main() {
	db := database.GetDB()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	auth.SetupAuthService(db)

	encoder, cleanup, err := setupEncoder()
	if err != nil {
		log.Fatalf("Failed to set up payload storage: %v", err)
	}
	defer cleanup()

	handler.Setup(db, config.LoadPolicy(), encoder, setupFeed())

	app := fiber.New(fiber.Config{
		BodyLimit: 32 * 1024 * 1024, // room for multi-image batches
	})
	router.SetupRoutes(app)

	// close the database connection
	defer func() {
		if err := database.CloseDB(); err != nil {
			log.Fatalf("Error closing the database connection: %v", err)
		}
	}()

	fmt.Println("Server is listening at the port 3000")
	log.Fatal(app.Listen(":3000"))
}

// setupEncoder picks the payload backend: inline base64 data URIs by
// default, a GCS bucket when one is configured.
func setupEncoder() (storage.PayloadEncoder, func(), error) {
	bucket := config.Optional("GCS_BUCKET_NAME", "")
	if bucket == "" {
		return &storage.InlineEncoder{MaxBytes: 8 * 1024 * 1024}, func() {}, nil
	}

	uploader, err := storage.NewGCSUploader(context.Background(), config.Optional("GCS_PROJECT_ID", ""), bucket)
	if err != nil {
		return nil, nil, err
	}
	return uploader, func() { _ = uploader.Close() }, nil
}

// setupFeed connects the open-images cache when REDIS_URL is set. Without
// redis every listing hits the database, which is fine for small installs.
func setupFeed() *cache.Feed {
	redisURL := config.Optional("REDIS_URL", "")
	if redisURL == "" {
		return nil
	}

	client, err := cache.Connect(context.Background(), redisURL)
	if err != nil {
		log.Printf("Open-images cache disabled: %v", err)
		return nil
	}
	return cache.NewFeed(client, 5*time.Minute)
}
