package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	handler "github.com/krishkalaria12/label-ledger/handlers"
	"github.com/krishkalaria12/label-ledger/middleware"
	"github.com/krishkalaria12/label-ledger/models"
)

func SetupRoutes(app *fiber.App) {
	api := app.Group("/api", logger.New())
	api.Get("/hello", handler.Hello)

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", handler.Register)
	auth.Post("/login", handler.Login)
	auth.Post("/logout", handler.Logout)

	// Account
	user := api.Group("/user", middleware.AuthMiddleware())
	user.Get("/me", handler.Me)
	user.Get("/labels", handler.LabelHistory)
	user.Get("/uploads", handler.UploadHistory)

	// Images
	images := api.Group("/images", middleware.AuthMiddleware())
	images.Post("/upload", middleware.RequireRole(models.RoleUploader), handler.UploadImages)
	images.Get("/open", middleware.RequireRole(models.RoleViewer), handler.OpenImages)
	images.Post("/:id/label", middleware.RequireRole(models.RoleViewer), handler.SubmitLabel)
}
