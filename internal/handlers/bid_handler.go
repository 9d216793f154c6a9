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

type BidHandler struct {
	DB     *gorm.DB
	Notify *notify.Service
}

func NewBidHandler(db *gorm.DB, notifier *notify.Service) *BidHandler {
	return &BidHandler{DB: db, Notify: notifier}
}

type CreateBidReq struct {
	TaskID  string   `json:"task_id"`
	Amount  *float64 `json:"amount"`
	Comment string   `json:"comment"`
}

// Create submits a freelancer's bid. One bid per (task, freelancer): a
// second attempt is rejected with 409, not upserted. The freelancer role is
// enforced by the route's RequireRoles middleware.
func (h *BidHandler) Create(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req CreateBidReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	taskUUID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}
	if req.Amount == nil || *req.Amount <= 0 {
		return fail(c, fiber.StatusBadRequest, "Amount is required and must be positive")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", taskUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	var existing models.Bid
	err = h.DB.Where("task_id = ? AND freelancer_id = ?", taskUUID, userUUID).
		First(&existing).Error
	if err == nil {
		return fail(c, fiber.StatusConflict, "You have already sent a bid for this task")
	}
	if err != gorm.ErrRecordNotFound {
		return fail(c, fiber.StatusInternalServerError, "Server error")
	}

	bid := models.Bid{
		TaskID:       taskUUID,
		FreelancerID: userUUID,
		Amount:       *req.Amount,
		Comment:      req.Comment,
		Status:       models.BidStatusPending,
	}

	if err := h.DB.Create(&bid).Error; err != nil {
		log.Println("Error creating bid:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to create bid")
	}

	h.Notify.Dispatch(task.EmployerID,
		fmt.Sprintf("New bid on your task %q", task.Title),
		models.EntityBid, &bid.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    bid,
	})
}

// ListForTask is restricted to the task's participants: the owning employer
// and the assigned freelancer, if any.
func (h *BidHandler) ListForTask(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	taskUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", taskUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	if err := authz.CanListBids(userUUID, &task); err != nil {
		return fail(c, fiber.StatusForbidden, "You are not a participant of this task")
	}

	bids := []models.Bid{}
	if err := h.DB.
		Preload("Freelancer").
		Where("task_id = ?", taskUUID).
		Order("created_at ASC").
		Find(&bids).Error; err != nil {
		log.Println("Error fetching bids:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch bids")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    bids,
	})
}

type UpdateBidStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus lets the task's owning employer move a bid between pending,
// accepted and rejected. The transition itself is an unconditional
// overwrite; other pending bids are left alone. Accepting additionally
// upserts the task's assignment, records the agreed amount and moves the
// task to in_progress, all in one transaction.
func (h *BidHandler) UpdateStatus(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	bidUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid bid ID")
	}

	var req UpdateBidStatusReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	newStatus := models.BidStatus(req.Status)
	if !newStatus.Valid() {
		return fail(c, fiber.StatusBadRequest, "Invalid status, allowed: pending, accepted, rejected")
	}

	var bid models.Bid
	if err := h.DB.First(&bid, "id = ?", bidUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Bid not found")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", bid.TaskID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	if err := authz.CanSetBidStatus(userUUID, &task); err != nil {
		return fail(c, fiber.StatusForbidden, "You are not the owner of this task")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&bid).Update("status", newStatus).Error; err != nil {
			return err
		}
		if newStatus != models.BidStatusAccepted {
			return nil
		}

		// Acceptance side effects: assignment upsert + task handover.
		var assignment models.Assignment
		findErr := tx.Where("task_id = ?", task.ID).First(&assignment).Error
		switch findErr {
		case nil:
			if err := tx.Model(&assignment).Updates(map[string]interface{}{
				"freelancer_id": bid.FreelancerID,
				"agreed_amount": bid.Amount,
				"status":        models.AssignmentInProgress,
			}).Error; err != nil {
				return err
			}
		case gorm.ErrRecordNotFound:
			assignment = models.Assignment{
				TaskID:       task.ID,
				FreelancerID: bid.FreelancerID,
				EmployerID:   task.EmployerID,
				AgreedAmount: bid.Amount,
				Status:       models.AssignmentInProgress,
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
		default:
			return findErr
		}

		return tx.Model(&task).Updates(map[string]interface{}{
			"freelancer_id": bid.FreelancerID,
			"status":        models.TaskStatusInProgress,
		}).Error
	})
	if err != nil {
		log.Println("Error updating bid status:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to update bid status")
	}

	h.Notify.Dispatch(bid.FreelancerID,
		fmt.Sprintf("Your bid on %q is now %s", task.Title, newStatus),
		models.EntityBid, &bid.ID)

	if err := h.DB.First(&bid, "id = ?", bidUUID).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to reload bid")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    bid,
	})
}

// Delete: a freelancer may remove their own bid only while it is pending;
// the task's owning employer may remove any bid on their task.
func (h *BidHandler) Delete(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	bidUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid bid ID")
	}

	var bid models.Bid
	if err := h.DB.First(&bid, "id = ?", bidUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Bid not found")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", bid.TaskID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	if err := authz.CanDeleteBid(userUUID, getRole(c), &bid, &task); err != nil {
		return fail(c, fiber.StatusForbidden, err.Error())
	}

	if err := h.DB.Delete(&bid).Error; err != nil {
		log.Println("Error deleting bid:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to delete bid")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Bid deleted",
	})
}

// ListMine returns the calling freelancer's bids, newest first.
func (h *BidHandler) ListMine(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	bids := []models.Bid{}
	if err := h.DB.
		Preload("Task").
		Where("freelancer_id = ?", userUUID).
		Order("created_at DESC").
		Find(&bids).Error; err != nil {
		log.Println("Error fetching bids:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch bids")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    bids,
	})
}
