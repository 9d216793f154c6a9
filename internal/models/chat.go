package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a two-party thread, optionally scoped to a task. Uniqueness on the
// unordered (User1, User2) pair plus task is enforced at create time.
type Chat struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	User1ID uuid.UUID  `gorm:"type:uuid;not null;index" json:"user1_id"`
	User2ID uuid.UUID  `gorm:"type:uuid;not null;index" json:"user2_id"`
	TaskID  *uuid.UUID `gorm:"type:uuid;index" json:"task_id,omitempty"`

	// NextSeq hands out per-chat message sequence numbers under the send
	// transaction's row lock, keeping ordering monotonic per chat.
	NextSeq int64 `gorm:"not null;default:1" json:"-"`

	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	User1    *User     `gorm:"foreignKey:User1ID" json:"user1,omitempty"`
	User2    *User     `gorm:"foreignKey:User2ID" json:"user2,omitempty"`
	Task     *Task     `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	Messages []Message `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// HasParticipant reports whether userID is one of the chat's two sides.
func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the counterparty of userID.
func (c *Chat) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

type Message struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChatID   uuid.UUID `gorm:"type:uuid;not null;index" json:"chat_id"`
	SenderID uuid.UUID `gorm:"type:uuid;not null;index" json:"sender_id"`

	Seq     int64  `gorm:"not null;index" json:"seq"`
	Content string `gorm:"type:text;not null" json:"content"`
	IsRead  bool   `gorm:"default:false" json:"is_read"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return
}
