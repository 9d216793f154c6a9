package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub-backend/internal/models"
	"github.com/freelancehub/freelancehub-backend/internal/realtime"
)

// Service creates notifications as side effects of other components'
// mutations and pushes them over redis and the websocket hub. Dispatch is
// fire-and-forget: failures are logged and never surface to the caller.
type Service struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	RDB *redis.Client
}

func NewService(db *gorm.DB, hub *realtime.Hub, rdb *redis.Client) *Service {
	return &Service{DB: db, Hub: hub, RDB: rdb}
}

func (s *Service) Dispatch(userID uuid.UUID, message, entityType string, entityID *uuid.UUID) {
	n := models.Notification{
		UserID:            userID,
		Message:           message,
		RelatedEntityType: entityType,
		RelatedEntityID:   entityID,
	}

	if err := s.DB.Create(&n).Error; err != nil {
		log.Println("Error creating notification:", err)
		return
	}

	if s.Hub != nil {
		s.Hub.SendToUser(userID, map[string]interface{}{
			"type":         "notification",
			"notification": n,
		})
	}

	if s.RDB != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"type":                n.RelatedEntityType,
			"notification_id":     n.ID.String(),
			"message":             n.Message,
			"related_entity_id":   n.RelatedEntityID,
			"related_entity_type": n.RelatedEntityType,
		})
		if err := s.RDB.Publish(context.Background(), "notifications:"+userID.String(), payload).Err(); err != nil {
			log.Println("Error publishing notification:", err)
		}
	}
}
