package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub-backend/internal/models"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

// ListMine returns the caller's notifications in creation order.
func (h *NotificationHandler) ListMine(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	notifications := []models.Notification{}
	if err := h.DB.
		Where("user_id = ?", userUUID).
		Order("created_at ASC").
		Find(&notifications).Error; err != nil {
		log.Println("Error fetching notifications:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch notifications")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    notifications,
	})
}

// MarkRead sets read on the caller's own notification. Someone else's id
// resolves to 404, never 403. Marking twice is a no-op success.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	notifUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid notification ID")
	}

	var n models.Notification
	if err := h.DB.
		Where("id = ? AND user_id = ?", notifUUID, userUUID).
		First(&n).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Notification not found")
	}

	if !n.IsRead {
		if err := h.DB.Model(&n).Update("is_read", true).Error; err != nil {
			log.Println("Error marking notification read:", err)
			return fail(c, fiber.StatusInternalServerError, "Failed to mark notification read")
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    n,
	})
}
