package handler

import (
	"bytes"
	"errors"
	"io"
	"log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/krishkalaria12/label-ledger/imaging"
	"github.com/krishkalaria12/label-ledger/ledger"
	"github.com/krishkalaria12/label-ledger/workflow"
)

// UploadImages admits a batch of images with a shared candidate-label set.
// Files come in the multipart field "images", labels in repeated "labels"
// values. The whole batch commits or none of it does.
func UploadImages(c *fiber.Ctx) error {
	userID, ok := requireUserID(c)
	if !ok {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid multipart form",
			"data":    nil,
		})
	}

	files := form.File["images"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "No images provided",
			"data":    nil,
		})
	}
	labels := form.Value["labels"]

	// Encode every file before touching the ledger or the store: an
	// encoding failure aborts the batch with no mutation anywhere.
	items := make([]workflow.UploadItem, 0, len(files))
	for _, file := range files {
		item, err := encodeUpload(c, file)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status":  "error",
				"message": "Error encoding " + file.Filename,
				"data":    nil,
			})
		}
		items = append(items, item)
	}

	result, err := uploads.Submit(c.Context(), userID, items, labels)
	if err != nil {
		return uploadError(c, err)
	}

	if feed != nil {
		// New images are open for every viewer.
		feed.InvalidateAll(c.Context())
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "Successfully uploaded the batch",
		"data":    result,
	})
}

func encodeUpload(c *fiber.Ctx, file *multipart.FileHeader) (workflow.UploadItem, error) {
	blob, err := file.Open()
	if err != nil {
		return workflow.UploadItem{}, err
	}
	defer blob.Close()

	data, err := io.ReadAll(blob)
	if err != nil {
		return workflow.UploadItem{}, err
	}

	payloadRef, err := encoder.Encode(c.Context(), file.Filename, bytes.NewReader(data))
	if err != nil {
		return workflow.UploadItem{}, err
	}

	// Previews are best effort; an image the pipeline cannot decode still
	// uploads, it just has no thumbnail in the feed.
	previewRef, err := imaging.Preview(data)
	if err != nil {
		log.Printf("no preview for %s: %v", file.Filename, err)
		previewRef = ""
	}

	key := file.Filename
	if key == "" {
		key = uuid.NewString()
	}

	return workflow.UploadItem{Key: key, PayloadRef: payloadRef, PreviewRef: previewRef}, nil
}

func uploadError(c *fiber.Ctx, err error) error {
	var ife *ledger.InsufficientFundsError
	if errors.As(err, &ife) {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"status":  "error",
			"message": "Insufficient funds",
			"data": fiber.Map{
				"required_cents":  ife.RequiredCents,
				"available_cents": ife.AvailableCents,
			},
		})
	}
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "No account found",
			"data":    nil,
		})
	}
	if errors.Is(err, workflow.ErrEmptyBatch) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "No images provided",
			"data":    nil,
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"status":  "error",
		"message": "Error saving the batch",
		"data":    nil,
	})
}
