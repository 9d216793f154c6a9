package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freelancehub/freelancehub-backend/internal/authz"
	"github.com/freelancehub/freelancehub-backend/internal/models"
	"github.com/freelancehub/freelancehub-backend/internal/realtime"
	"github.com/freelancehub/freelancehub-backend/internal/services/notify"
	"github.com/freelancehub/freelancehub-backend/internal/utils"
)

// Close codes for the live channel. Pre-accept failures close with one of
// these instead of sending an in-band error.
const (
	CloseUnauthenticated = 4401
	CloseNotParticipant  = 4403
	CloseChatNotFound    = 4404
)

type ChatHandler struct {
	DB        *gorm.DB
	Hub       *realtime.Hub
	Notify    *notify.Service
	JWTSecret string
}

func NewChatHandler(db *gorm.DB, hub *realtime.Hub, notifier *notify.Service, jwtSecret string) *ChatHandler {
	return &ChatHandler{DB: db, Hub: hub, Notify: notifier, JWTSecret: jwtSecret}
}

// MessageOut is the wire shape shared by the REST and websocket paths.
type MessageOut struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Seq       int64     `json:"seq"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func toMessageOut(m *models.Message) MessageOut {
	return MessageOut{
		ID:        m.ID.String(),
		ChatID:    m.ChatID.String(),
		SenderID:  m.SenderID.String(),
		Seq:       m.Seq,
		Content:   m.Content,
		IsRead:    m.IsRead,
		CreatedAt: m.CreatedAt,
	}
}

type CreateChatReq struct {
	TaskID string `json:"task_id"`
}

// CreateOrGet resolves the counterparty from the task: a freelancer gets the
// task's employer, the employer gets the assigned freelancer. If a chat for
// the unordered pair + task already exists it is returned as-is.
func (h *ChatHandler) CreateOrGet(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req CreateChatReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	taskUUID, err := uuid.Parse(req.TaskID)
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid task ID")
	}

	var task models.Task
	if err := h.DB.First(&task, "id = ?", taskUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Task not found")
	}

	var other uuid.UUID
	switch {
	case task.EmployerID == userUUID:
		if task.FreelancerID == nil {
			return fail(c, fiber.StatusBadRequest, "Task has no assigned freelancer to chat with")
		}
		other = *task.FreelancerID
	case task.FreelancerID != nil && *task.FreelancerID == userUUID:
		other = task.EmployerID
	default:
		return fail(c, fiber.StatusForbidden, "You are not a participant of this task")
	}

	if other == userUUID {
		return fail(c, fiber.StatusBadRequest, "You cannot create a chat with yourself")
	}

	// Match both orders of the pair; chats are unordered.
	var chat models.Chat
	err = h.DB.
		Where("task_id = ? AND ((user1_id = ? AND user2_id = ?) OR (user1_id = ? AND user2_id = ?))",
			taskUUID, userUUID, other, other, userUUID).
		First(&chat).Error

	created := false
	if err == gorm.ErrRecordNotFound {
		chat = models.Chat{
			User1ID:       userUUID,
			User2ID:       other,
			TaskID:        &taskUUID,
			LastMessageAt: time.Now(),
		}
		if err := h.DB.Create(&chat).Error; err != nil {
			log.Println("Error creating chat:", err)
			return fail(c, fiber.StatusInternalServerError, "Failed to create chat")
		}
		created = true
	} else if err != nil {
		log.Println("Error fetching chat:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch chat")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"created": created,
		"data":    chat,
	})
}

// GetMyChats lists the caller's chats with a counterparty summary.
func (h *ChatHandler) GetMyChats(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var chats []models.Chat
	if err := h.DB.
		Preload("User1").
		Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userUUID, userUUID).
		Order("last_message_at DESC").
		Find(&chats).Error; err != nil {
		log.Println("Error fetching chats:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch chats")
	}

	out := make([]fiber.Map, 0, len(chats))
	for _, chat := range chats {
		withUser := chat.User1
		if chat.User1ID == userUUID {
			withUser = chat.User2
		}

		item := fiber.Map{
			"chat_id":         chat.ID,
			"task_id":         chat.TaskID,
			"last_message_at": chat.LastMessageAt,
			"created_at":      chat.CreatedAt,
		}
		if withUser != nil {
			item["with_user"] = fiber.Map{
				"id":         withUser.ID,
				"email":      withUser.Email,
				"first_name": withUser.FirstName,
				"last_name":  withUser.LastName,
				"role":       withUser.Role,
			}
		}

		var unread int64
		if err := h.DB.Model(&models.Message{}).
			Where("chat_id = ? AND sender_id != ? AND is_read = false", chat.ID, userUUID).
			Count(&unread).Error; err != nil {
			log.Println("Error counting unread messages:", err)
		}
		item["unread_count"] = unread

		out = append(out, item)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

// createMessage persists a message with a per-chat monotonic sequence
// number. The seq counter update takes the chat's row lock, so concurrent
// senders cannot produce ties.
func (h *ChatHandler) createMessage(chatID, senderID uuid.UUID, content string) (*models.Message, error) {
	var msg models.Message
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Chat{}).
			Where("id = ?", chatID).
			Update("next_seq", gorm.Expr("next_seq + 1")).Error; err != nil {
			return err
		}

		var chat models.Chat
		if err := tx.First(&chat, "id = ?", chatID).Error; err != nil {
			return err
		}

		msg = models.Message{
			ChatID:   chatID,
			SenderID: senderID,
			Seq:      chat.NextSeq - 1,
			Content:  content,
			IsRead:   false,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}

		return tx.Model(&models.Chat{}).
			Where("id = ?", chatID).
			Update("last_message_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// deliver fans a persisted message out to the chat's live clients and
// notifies the counterparty.
func (h *ChatHandler) deliver(chat *models.Chat, msg *models.Message) {
	h.Hub.SendToChat(chat.ID, fiber.Map{
		"type":    "new_message",
		"message": toMessageOut(msg),
	})

	recipient := chat.OtherParticipant(msg.SenderID)
	h.Notify.Dispatch(recipient, "New message in your chat", models.EntityChat, &chat.ID)
}

type SendMessageReq struct {
	Content string `json:"content"`
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	chatUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid chat ID")
	}

	var req SendMessageReq
	if err := c.BodyParser(&req); err != nil || req.Content == "" {
		return fail(c, fiber.StatusBadRequest, "Content is required")
	}

	var chat models.Chat
	if err := h.DB.First(&chat, "id = ?", chatUUID).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Chat not found")
	}

	if err := authz.CanAccessChat(userUUID, &chat); err != nil {
		return fail(c, fiber.StatusForbidden, "You are not a participant of this chat")
	}

	msg, err := h.createMessage(chatUUID, userUUID, req.Content)
	if err != nil {
		log.Println("Error creating message:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to send message")
	}

	h.deliver(&chat, msg)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    toMessageOut(msg),
	})
}

// GetMessagesForTask resolves the chat tied to the task (at most one) and
// returns its messages in send order.
func (h *ChatHandler) GetMessagesForTask(c *fiber.Ctx) error {
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

	var chat models.Chat
	if err := h.DB.Where("task_id = ?", taskUUID).First(&chat).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "No chat found for this task")
	}

	if err := authz.CanAccessChat(userUUID, &chat); err != nil {
		return fail(c, fiber.StatusForbidden, "You are not a participant of this chat")
	}

	var messages []models.Message
	if err := h.DB.
		Where("chat_id = ?", chat.ID).
		Order("seq ASC").
		Find(&messages).Error; err != nil {
		log.Println("Error fetching messages:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to fetch messages")
	}

	out := make([]MessageOut, 0, len(messages))
	for i := range messages {
		out = append(out, toMessageOut(&messages[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    out,
	})
}

type EditMessageReq struct {
	Content string `json:"content"`
}

// EditMessage: original sender only; the message must belong to the chat in
// the path.
func (h *ChatHandler) EditMessage(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	chatUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid chat ID")
	}
	msgUUID, err := uuid.Parse(c.Params("messageId"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid message ID")
	}

	var req EditMessageReq
	if err := c.BodyParser(&req); err != nil || req.Content == "" {
		return fail(c, fiber.StatusBadRequest, "Content is required")
	}

	var msg models.Message
	if err := h.DB.Where("id = ? AND chat_id = ?", msgUUID, chatUUID).First(&msg).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Message not found")
	}

	if err := authz.CanEditMessage(userUUID, &msg); err != nil {
		return fail(c, fiber.StatusForbidden, "You can only edit your own messages")
	}

	if err := h.DB.Model(&msg).Update("content", req.Content).Error; err != nil {
		log.Println("Error editing message:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to edit message")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    toMessageOut(&msg),
	})
}

func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	userUUID, err := getUserUUID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	chatUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid chat ID")
	}
	msgUUID, err := uuid.Parse(c.Params("messageId"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid message ID")
	}

	var msg models.Message
	if err := h.DB.Where("id = ? AND chat_id = ?", msgUUID, chatUUID).First(&msg).Error; err != nil {
		return fail(c, fiber.StatusNotFound, "Message not found")
	}

	if err := authz.CanEditMessage(userUUID, &msg); err != nil {
		return fail(c, fiber.StatusForbidden, "You can only delete your own messages")
	}

	if err := h.DB.Delete(&msg).Error; err != nil {
		log.Println("Error deleting message:", err)
		return fail(c, fiber.StatusInternalServerError, "Failed to delete message")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Message deleted",
	})
}

// WebSocketHandler is the live channel for one chat. The credential rides in
// the token query param; identity and participancy are confirmed before the
// session is registered, otherwise the connection is closed with a distinct
// code. Every inbound text frame is persisted and fanned out to all
// connected clients of the chat.
func (h *ChatHandler) WebSocketHandler(c *websocket.Conn) {
	closeWith := func(code int, reason string) {
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
		_ = c.Close()
	}

	claims, err := utils.ParseJWT(h.JWTSecret, c.Query("token"))
	if err != nil {
		closeWith(CloseUnauthenticated, "invalid token")
		return
	}
	userUUID, err := uuid.Parse(claims.UserID)
	if err != nil {
		closeWith(CloseUnauthenticated, "invalid token subject")
		return
	}

	chatUUID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		closeWith(CloseChatNotFound, "invalid chat id")
		return
	}

	var chat models.Chat
	if err := h.DB.First(&chat, "id = ?", chatUUID).Error; err != nil {
		closeWith(CloseChatNotFound, "chat not found")
		return
	}

	if !chat.HasParticipant(userUUID) {
		closeWith(CloseNotParticipant, "not a chat participant")
		return
	}

	client := &realtime.Client{
		ID:     uuid.New().String(),
		UserID: userUUID,
		ChatID: chatUUID,
		Conn:   realtime.NewWebSocketConn(c),
		Send:   make(chan []byte, 256),
	}

	h.Hub.RegisterClient(client)
	defer func() {
		h.Hub.UnregisterClient(client)
		log.Printf("WebSocket: user %s left chat %s\n", userUUID, chatUUID)
	}()

	// Writer: hub to this client only. A write failure ends this session and
	// nobody else's; closing the conn unblocks the read loop below so the
	// deferred unregister runs right away.
	go func() {
		for payload := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Println("WebSocket write error:", err)
				_ = c.Close()
				return
			}
		}
	}()

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error for user %s: %v\n", userUUID, err)
			break
		}
		if mt != websocket.TextMessage || len(data) == 0 {
			continue
		}

		msg, err := h.createMessage(chatUUID, userUUID, string(data))
		if err != nil {
			log.Println("Error persisting ws message:", err)
			continue
		}

		h.deliver(&chat, msg)
	}
}
