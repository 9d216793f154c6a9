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

type AssignmentHandler struct {
	DB     *gorm.DB
	Notify *notify.Service
}

func NewAssignmentHandler(db *gorm.DB, notifier *notify.Service) *AssignmentHandler {
	return &AssignmentHandler{DB: db, Notify: notifier}
}

type UpdateAssignmentStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus moves an assignment between in_progress, completed and
// disputed. Completed and disputed are terminal. Completing the assignment
// also marks its task completed, in the same transaction.
func (h *AssignmentHandler) UpdateStatus(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	assignmentUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid assignment ID")
	}

	var req UpdateAssignmentStatusReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	newStatus := models.AssignmentStatus(req.Status)
	if !newStatus.Valid() {
		return fail(c, fiber.StatusBadRequest, "Invalid status, allowed: in_progress, completed, disputed")
	}

	var assignment models.Assignment
	if err := h.DB.First(&assignment, "id = ?", assignmentUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Assignment not found")
	}

	if err := authz.CanActOnAssignment(userUUID, &assignment); err != nil {
		return fail(c, fiber.StatusForbidden, "You are not a party of this assignment")
	}

	if assignment.Status.Terminal() && newStatus != assignment.Status {
		return fail(c, fiber.StatusConflict,
			fmt.Sprintf("Assignment is already %s", assignment.Status))
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&assignment).Update("status", newStatus).Error; err != nil {
			return err
		}
		if newStatus == models.AssignmentCompleted {
			return tx.Model(&models.Task{}).
				Where("id = ?", assignment.TaskID).
				Update("status", models.TaskStatusCompleted).Error
		}
		return nil
	})
	if err != nil {
		log.Println("Error updating assignment status:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to update assignment")
	}

	// Tell the other side.
	other := assignment.FreelancerID
	if userUUID == assignment.FreelancerID {
		other = assignment.EmployerID
	}
	h.Notify.Dispatch(other,
		fmt.Sprintf("Assignment status changed to %s", newStatus),
		models.EntityAssignment, &assignment.ID)

	if err := h.DB.First(&assignment, "id = ?", assignmentUUID).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to reload assignment")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    assignment,
	})
}

// ListMine returns assignments where the caller is either side.
func (h *AssignmentHandler) ListMine(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	assignments := []models.Assignment{}
	if err := h.DB.
		Preload("Task").
		Where("freelancer_id = ? OR employer_id = ?", userUUID, userUUID).
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		log.Println("Error fetching assignments:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch assignments")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    assignments,
	})
}
