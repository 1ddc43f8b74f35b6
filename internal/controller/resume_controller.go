package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/database"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/utils/jwt"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/utils/storage"
)

type CreateCVInput struct {
	Title    string `json:"title" validate:"required"`
	Template string `json:"template"`
}

// AnalyzeResume accepts a résumé upload and queues it for analysis. The
// ledger increment is the binding quota decision; the entitlement check in
// the route chain only fast-fails.
func AnalyzeResume(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	file, err := c.FormFile("resume")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing resume file",
		})
	}

	provider := c.FormValue("provider", "openai")
	allowed, err := entitlements.ProviderAllowed(claims.UserID, provider)
	if err != nil {
		return engineError(c, err)
	}
	if !allowed {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Your plan does not include this analysis provider", "reason": "provider_not_allowed",
		})
	}

	newValue, err := ledger.Increment(claims.UserID, plan.ResourceCVAnalysis, 1)
	if err != nil {
		return engineError(c, err)
	}

	var user model.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	uploaded, err := storage.UploadResume(file, user.Username)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	resume := model.Resume{
		UserID:   claims.UserID,
		FileName: file.Filename,
		FileURL:  uploaded.URL,
		Provider: provider,
		Status:   model.AnalysisQueued,
	}
	if err := database.GetDB().Create(&resume).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save resume",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":    "Resume queued for analysis",
		"resume":     resume,
		"used_count": newValue,
	})
}

// CreateCV builds a new CV from a template, consuming one cv_creation unit.
func CreateCV(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	input := new(CreateCVInput)
	if err := c.BodyParser(input); err != nil || input.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid input",
		})
	}
	if input.Template == "" {
		input.Template = "basic"
	}

	newValue, err := ledger.Increment(claims.UserID, plan.ResourceCVCreation, 1)
	if err != nil {
		return engineError(c, err)
	}

	cv := model.GeneratedCV{
		UserID:   claims.UserID,
		Title:    input.Title,
		Template: input.Template,
	}
	if err := database.GetDB().Create(&cv).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create CV",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"cv":         cv,
		"used_count": newValue,
	})
}

// DeleteMyResume removes an uploaded résumé and its stored file. The DB row
// is authoritative; a failed storage delete is logged and retried by hand.
func DeleteMyResume(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var resume model.Resume
	err := database.GetDB().Where("id = ? AND user_id = ?", c.Params("id"), claims.UserID).
		First(&resume).Error
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Resume not found",
		})
	}

	if err := storage.DeleteResume(resume.FileURL); err != nil {
		log.Printf("Could not delete stored resume %s: %v", resume.FileURL, err)
	}

	if err := database.GetDB().Delete(&resume).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not delete resume",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Resume deleted successfully",
	})
}

// ListMyResumes returns the user's uploaded résumés, newest first.
func ListMyResumes(c *fiber.Ctx) error {
	claims := c.Locals("user").(*jwt.Claims)

	var resumes []model.Resume
	err := database.GetDB().Where("user_id = ?", claims.UserID).
		Order("created_at DESC").
		Find(&resumes).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not fetch resumes",
		})
	}
	return c.JSON(resumes)
}
