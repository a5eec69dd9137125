package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/label-ledger/imagestore"
	"github.com/krishkalaria12/label-ledger/models"
	"github.com/krishkalaria12/label-ledger/workflow"
)

// OpenImages lists every image the authenticated viewer has not labeled
// yet, with previews and candidate labels. Cached per viewer when redis is
// configured; the store stays the source of truth.
func OpenImages(c *fiber.Ctx) error {
	type OpenImage struct {
		ID           uint     `json:"id"`
		Key          string   `json:"key"`
		UploaderName string   `json:"uploader_name"`
		PayloadRef   string   `json:"payload_ref"`
		PreviewRef   string   `json:"preview_ref,omitempty"`
		Labels       []string `json:"labels"`
	}

	userID, ok := requireUserID(c)
	if !ok {
		return nil
	}

	var (
		listing []models.Image
		cached  bool
	)
	if feed != nil {
		listing, cached = feed.Get(c.Context(), userID)
	}
	if !cached {
		var err error
		listing, err = images.ListOpenFor(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"status":  "error",
				"message": "Database error",
				"data":    nil,
			})
		}
		if feed != nil {
			feed.Set(c.Context(), userID, listing)
		}
	}

	response := make([]OpenImage, 0, len(listing))
	for _, img := range listing {
		labels := make([]string, 0, len(img.CandidateLabels))
		for _, cl := range img.CandidateLabels {
			labels = append(labels, cl.Label)
		}
		response = append(response, OpenImage{
			ID:           img.ID,
			Key:          img.Key,
			UploaderName: img.UploaderName,
			PayloadRef:   img.PayloadRef,
			PreviewRef:   img.PreviewRef,
			Labels:       labels,
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Open images",
		"data":    response,
	})
}

// SubmitLabel confirms the viewer's chosen label for one image and credits
// the reward. Re-confirming the same image is a no-op reported in the
// response, never a second credit.
func SubmitLabel(c *fiber.Ctx) error {
	type LabelData struct {
		Label string `json:"label"`
	}

	userID, ok := requireUserID(c)
	if !ok {
		return nil
	}

	imageID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid image ID",
			"data":    nil,
		})
	}

	input := new(LabelData)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
			"data":    nil,
		})
	}

	result, err := labeling.Submit(c.Context(), userID, uint(imageID), input.Label)
	if err != nil {
		return labelError(c, err)
	}

	if feed != nil && !result.AlreadyLabeled {
		feed.InvalidateUser(c.Context(), userID)
	}

	message := "Label recorded"
	if result.AlreadyLabeled {
		message = "Image was already labeled by you"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"data":    result,
	})
}

func labelError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, imagestore.ErrImageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":  "error",
			"message": "No image found with ID",
			"data":    nil,
		})
	case errors.Is(err, imagestore.ErrInvalidLabel):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Label is not one of the image's candidate labels",
			"data":    nil,
		})
	case errors.Is(err, workflow.ErrEmptyLabel):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "No label selected",
			"data":    nil,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Error recording the label",
			"data":    nil,
		})
	}
}
