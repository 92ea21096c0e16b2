package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// Participant roles.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Participant is roster bookkeeping only; it is never consulted for message authorization.
type Participant struct {
	ID             int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	ThreadID       int64      `json:"threadId" gorm:"column:thread_id;not null;uniqueIndex:uk_chat_participant_thread_user,priority:1"`
	Thread         *Thread    `json:"-" gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"`
	UserIdentifier string     `json:"userIdentifier" gorm:"column:user_identifier;size:255;not null;uniqueIndex:uk_chat_participant_thread_user,priority:2"`
	Role           string     `json:"role" gorm:"column:role;size:20;not null"`
	JoinedAt       time.Time  `json:"joinedAt" gorm:"column:joined_at"`
	LeftAt         *time.Time `json:"leftAt,omitempty" gorm:"column:left_at"`
	Audit
}

func (Participant) TableName(namer schema.Namer) string {
	return namer.TableName("chat_participant")
}
