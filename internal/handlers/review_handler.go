package handlers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub-backend/internal/authz"
	"github.com/freelancehub/freelancehub-backend/internal/models"
	"github.com/freelancehub/freelancehub-backend/internal/services/notify"
)

type ReviewHandler struct {
	DB     *gorm.DB
	Notify *notify.Service
}

func NewReviewHandler(db *gorm.DB, notifier *notify.Service) *ReviewHandler {
	return &ReviewHandler{DB: db, Notify: notifier}
}

// recalcAggregates rewrites the reviewed user's profile counters from the
// review table. Called inside every review mutation's transaction.
func recalcAggregates(tx *gorm.DB, userID uuid.UUID) error {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		return err
	}

	type agg struct {
		Rating   float64
		Positive int64
		Negative int64
	}
	var a agg
	if err := tx.Model(&models.Review{}).
		Select(`COALESCE(AVG(rating), 0) as rating,
			COUNT(CASE WHEN is_positive THEN 1 END) as positive,
			COUNT(CASE WHEN NOT is_positive THEN 1 END) as negative`).
		Where("reviewed_user_id = ?", userID).
		Scan(&a).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{
		"rating":           a.Rating,
		"positive_reviews": a.Positive,
		"negative_reviews": a.Negative,
	}

	if user.Role == models.RoleFreelancer {
		return tx.Model(&models.FreelancerProfile{}).
			Where("user_id = ?", userID).
			Updates(updates).Error
	}
	return tx.Model(&models.EmployerProfile{}).
		Where("user_id = ?", userID).
		Updates(updates).Error
}

type CreateReviewReq struct {
	TaskID         string `json:"task_id"`
	ReviewedUserID string `json:"reviewed_user_id"`
	Rating         int    `json:"rating"`
	Comment        string `json:"comment"`
	IsPositive     bool   `json:"is_positive"`
}

// Create: caller must be a participant of the task; one review per
// (task, caller); rating 1..5. The reviewed user's profile aggregates are
// updated in the same transaction.
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req CreateReviewReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	taskUUID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}
	reviewedUUID, err := uuid.Parse(req.ReviewedUserID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid reviewed user ID")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return fail(c, fiber.StatusBadRequest, "Rating must be between 1 and 5")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", taskUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	if err := authz.IsTaskParticipant(userUUID, &task); err != nil {
		return fail(c, fiber.StatusForbidden, "You are not a participant of this task")
	}

	var existing models.Review
	err = h.DB.Where("task_id = ? AND reviewer_id = ?", taskUUID, userUUID).
		First(&existing).Error
	if err == nil {
		return fail(c, fiber.StatusConflict, "You have already reviewed this task")
	}
	if err != gorm.ErrRecordNotFound {
		return fail(c, fiber.StatusInternalServerError, "Server error")
	}

	review := models.Review{
		TaskID:         taskUUID,
		ReviewerID:     userUUID,
		ReviewedUserID: reviewedUUID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		IsPositive:     req.IsPositive,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		return recalcAggregates(tx, reviewedUUID)
	})
	if err != nil {
		log.Println("Error creating review:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to create review")
	}

	h.Notify.Dispatch(reviewedUUID,
		fmt.Sprintf("You received a new review on task %q", task.Title),
		models.EntityReview, &review.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    review,
	})
}

// ListAboutMe returns reviews written about the caller. An empty list stays
// a 200 with an empty array.
func (h *ReviewHandler) ListAboutMe(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	reviews := []models.Review{}
	if err := h.DB.
		Preload("Reviewer").
		Where("reviewed_user_id = ?", userUUID).
		Order("created_at ASC").
		Find(&reviews).Error; err != nil {
		log.Println("Error fetching reviews:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch reviews")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    reviews,
	})
}

// GetForTask returns the first review left on a task, 404 when none.
func (h *ReviewHandler) GetForTask(c *fiber.Ctx) error {
	taskUUID, err := uuid.Parse(c.Params("taskId"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var review models.Review
	if err := h.DB.Where("task_id = ?", taskUUID).
		Order("created_at ASC").
		First(&review).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Review not found")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    review,
	})
}

type UpdateReviewReq struct {
	Rating     *int    `json:"rating"`
	Comment    *string `json:"comment"`
	IsPositive *bool   `json:"is_positive"`
}

func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	reviewUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid review ID")
	}

	var review models.Review
	if err := h.DB.First(&review, "id = ?", reviewUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Review not found")
	}

	if err := authz.CanEditReview(userUUID, &review); err != nil {
		return fail(c, fiber.StatusForbidden, "You can only edit your own reviews")
	}

	var req UpdateReviewReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	updates := map[string]interface{}{}
	if req.Rating != nil {
		if *req.Rating < 1 || *req.Rating > 5 {
			return fail(c, fiber.StatusBadRequest, "Rating must be between 1 and 5")
		}
		updates["rating"] = *req.Rating
	}
	if req.Comment != nil {
		updates["comment"] = *req.Comment
	}
	if req.IsPositive != nil {
		updates["is_positive"] = *req.IsPositive
	}

	if len(updates) > 0 {
		err = h.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&review).Updates(updates).Error; err != nil {
				return err
			}
			return recalcAggregates(tx, review.ReviewedUserID)
		})
		if err != nil {
			log.Println("Error updating review:", err)
			return fail(c, fiber.StatusInternalServerError, "Failed to update review")
		}
	}

	if err := h.DB.First(&review, "id = ?", reviewUUID).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to reload review")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    review,
	})
}

func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	reviewUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid review ID")
	}

	var review models.Review
	if err := h.DB.First(&review, "id = ?", reviewUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Review not found")
	}

	if err := authz.CanEditReview(userUUID, &review); err != nil {
		return fail(c, fiber.StatusForbidden, "You can only delete your own reviews")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		return recalcAggregates(tx, review.ReviewedUserID)
	})
	if err != nil {
		log.Println("Error deleting review:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to delete review")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Review deleted",
	})
}
