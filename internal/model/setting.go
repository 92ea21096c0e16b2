package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// ChannelSetting is the free-form JSON configuration of a channel (widget colours, greeting,
// etc). It is the only store for channel config; nothing caches it in process.
type ChannelSetting struct {
	ChannelID int64          `json:"channelId" gorm:"column:channel_id;primaryKey;autoIncrement:false"`
	Channel   *Channel       `json:"-" gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE"`
	Config    datatypes.JSON `json:"config" gorm:"column:config;type:jsonb"`
	Audit
}

func (ChannelSetting) TableName(namer schema.Namer) string {
	return namer.TableName("chat_channel_setting")
}

// ChatSetting is a single key/value option scoped to a channel.
type ChatSetting struct {
	ID        int64    `json:"id" gorm:"primaryKey;autoIncrement"`
	ChannelID int64    `json:"channelId" gorm:"column:channel_id;not null;uniqueIndex:uk_chat_setting_channel_key,priority:1"`
	Channel   *Channel `json:"-" gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE"`
	Key       string   `json:"key" gorm:"column:key;size:100;not null;uniqueIndex:uk_chat_setting_channel_key,priority:2"`
	Value     string   `json:"value" gorm:"column:value;size:1000"`
	Audit
}

func (ChatSetting) TableName(namer schema.Namer) string {
	return namer.TableName("chat_setting")
}
