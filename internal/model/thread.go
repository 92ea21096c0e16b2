package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// Thread is the single conversation between one external user and one channel.
type Thread struct {
	ID             int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	ChannelID      int64      `json:"channelId" gorm:"column:channel_id;not null;uniqueIndex:uk_chat_thread_channel_user,priority:1"`
	Channel        *Channel   `json:"-" gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE"`
	UserIdentifier string     `json:"userIdentifier" gorm:"column:user_identifier;size:255;not null;uniqueIndex:uk_chat_thread_channel_user,priority:2;index"`
	UserName       string     `json:"userName,omitempty" gorm:"column:user_name;size:100"`
	UserIP         string     `json:"-" gorm:"column:user_ip;size:50"`
	LastReadAt     *time.Time `json:"lastReadAt,omitempty" gorm:"column:last_read_at"`
	Audit
	SoftDelete
}

func (Thread) TableName(namer schema.Namer) string {
	return namer.TableName("chat_thread")
}

// NewThread builds an unsaved thread; the user's IP doubles as the audit IP.
func NewThread(channelID int64, userIdentifier, userName, userIP, actor string, now time.Time) *Thread {
	t := &Thread{
		ChannelID:      channelID,
		UserIdentifier: userIdentifier,
		UserName:       userName,
		UserIP:         userIP,
	}
	t.Stamp(actor, userIP, now)
	return t
}

// ThreadSummary is a thread listing row with its unread badge.
type ThreadSummary struct {
	Thread
	UnreadCount int64 `json:"unreadCount"`
}
