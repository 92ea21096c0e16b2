package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// SessionLog records one connect/disconnect cycle of a client on a thread.
type SessionLog struct {
	ID          int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	ThreadID    int64      `json:"threadId" gorm:"column:thread_id;not null;index"`
	Thread      *Thread    `json:"-" gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"`
	SessionID   string     `json:"sessionId" gorm:"column:session_id;size:100"`
	StartedAt   time.Time  `json:"startedAt" gorm:"column:started_at;not null;index"`
	EndedAt     *time.Time `json:"endedAt,omitempty" gorm:"column:ended_at"`
	EndedReason string     `json:"endedReason,omitempty" gorm:"column:ended_reason;size:100"`
}

func (SessionLog) TableName(namer schema.Namer) string {
	return namer.TableName("chat_session_log")
}

// Ended reports whether the session has already been closed.
func (s *SessionLog) Ended() bool {
	return s.EndedAt != nil
}
