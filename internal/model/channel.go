package model

import (
	"time"

	"gorm.io/gorm/schema"
)

// Channel is one business's support entry point. Code is unique among live rows,
// compared case-insensitively (see the lower(cms_code) index created at migration).
type Channel struct {
	ID            int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	Code          string  `json:"cmsCode" gorm:"column:cms_code;size:50;not null"`
	Name          string  `json:"cmsName,omitempty" gorm:"column:cms_name;size:100"`
	OwnerUserUUID *string `json:"ownerUserUuid,omitempty" gorm:"column:owner_user_uuid;size:50;index"`
	Audit
	SoftDelete
}

func (Channel) TableName(namer schema.Namer) string {
	return namer.TableName("chat_channel")
}

// NewChannel builds an unsaved channel with audit defaults applied.
func NewChannel(code, name, actor string, ownerID *string, now time.Time) *Channel {
	c := &Channel{Code: code, Name: name, OwnerUserUUID: ownerID}
	c.Stamp(actor, "", now)
	return c
}

// ChannelSummary is a channel listing row with its aggregated unread badge.
type ChannelSummary struct {
	Channel
	UnreadCount int64 `json:"unreadCount"`
}

// DeleteChannelResult reports the outcome of a channel delete. When Conflict is set nothing
// was deleted and Threads lists what a forced delete would also remove.
type DeleteChannelResult struct {
	Deleted        bool     `json:"deleted"`
	AlreadyDeleted bool     `json:"alreadyDeleted,omitempty"`
	Conflict       bool     `json:"conflict,omitempty"`
	ForceAvailable bool     `json:"forceDeleteAvailable,omitempty"`
	Threads        []Thread `json:"threads,omitempty"`
}
