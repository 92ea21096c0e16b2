package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// Sender types.
const (
	SenderUser  = "USER"
	SenderAdmin = "ADMIN"
)

// Message types.
const (
	MessageText  = "TEXT"
	MessageImage = "IMAGE"
	MessageFile  = "FILE"
)

// EditedThreshold is how far updated_at must trail created_at before a message counts as
// edited. Timestamp granularity makes a smaller gap meaningless.
const EditedThreshold = time.Second

// IsEdited is the single derivation of the edited flag.
func IsEdited(createdAt, updatedAt time.Time) bool {
	if createdAt.IsZero() || updatedAt.IsZero() {
		return false
	}
	return updatedAt.Sub(createdAt) > EditedThreshold
}

// ValidSenderType reports whether s is USER or ADMIN.
func ValidSenderType(s string) bool {
	return s == SenderUser || s == SenderAdmin
}

// ValidMessageType reports whether s is TEXT, IMAGE or FILE.
func ValidMessageType(s string) bool {
	return s == MessageText || s == MessageImage || s == MessageFile
}

// Message belongs to one thread. Content changes only through edit; is_read only moves
// false -> true. updated_at is written explicitly (edit, create) so that read receipts
// never make a message look edited.
type Message struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	ThreadID    int64      `json:"threadId" gorm:"column:thread_id;not null;index:idx_chat_message_thread_created,priority:1"`
	Thread      *Thread    `json:"-" gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"`
	SenderType  string     `json:"senderType" gorm:"column:sender_type;size:20;not null"`
	SenderName  string     `json:"senderName,omitempty" gorm:"column:sender_name;size:100"`
	MessageType string     `json:"messageType" gorm:"column:message_type;size:20;not null"`
	Content     string     `json:"content" gorm:"column:content;type:text"`
	FileName    string     `json:"fileName,omitempty" gorm:"column:file_name;size:255"`
	FileURL     string     `json:"fileUrl,omitempty" gorm:"column:file_url;size:512"`
	IsRead      bool       `json:"isRead" gorm:"column:is_read;not null;default:false"`
	ReadAt      *time.Time `json:"readAt,omitempty" gorm:"column:read_at"`
	CreatedBy   string     `json:"-" gorm:"column:created_by;size:50"`
	CreatedIP   string     `json:"-" gorm:"column:created_ip;size:50"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"column:created_at;not null;index:idx_chat_message_thread_created,priority:2"`
	UpdatedBy   string     `json:"-" gorm:"column:updated_by;size:50"`
	UpdatedAt   time.Time  `json:"updatedAt" gorm:"column:updated_at;not null;autoUpdateTime:false"`
	SoftDelete
}

func (Message) TableName(namer schema.Namer) string {
	return namer.TableName("chat_message")
}

// FileMeta describes an attachment that has already been stored.
type FileMeta struct {
	Name string
	URL  string
}

// NewMessage builds an unsaved, unread message with audit defaults.
func NewMessage(threadID int64, senderType, senderName, messageType, content string, file *FileMeta, actor string, now time.Time) *Message {
	if actor == "" {
		actor = DefaultActor
	}
	m := &Message{
		ThreadID:    threadID,
		SenderType:  senderType,
		SenderName:  senderName,
		MessageType: messageType,
		Content:     content,
		CreatedBy:   actor,
		CreatedIP:   DefaultIP,
		CreatedAt:   now,
		UpdatedBy:   actor,
		UpdatedAt:   now,
	}
	if file != nil {
		m.FileName = file.Name
		m.FileURL = file.URL
	}
	return m
}

// Edited reports the derived edited flag.
func (m *Message) Edited() bool {
	return IsEdited(m.CreatedAt, m.UpdatedAt)
}

// MessagePage is one page of a thread's visible messages.
type MessagePage struct {
	Items      []Message `json:"items"`
	Page       int       `json:"page"`
	Size       int       `json:"size"`
	Total      int64     `json:"totalElements"`
	TotalPages int       `json:"totalPages"`
}

// NewMessagePage computes page math from the total row count.
func NewMessagePage(items []Message, page, size int, total int64) *MessagePage {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return &MessagePage{Items: items, Page: page, Size: size, Total: total, TotalPages: pages}
}
