package storage

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// ChannelRepo defines channel storage operations
type ChannelRepo interface {
	GetOrCreate(ctx context.Context, code, name, actor string, ownerID *string) (*model.Channel, error)
	FindByID(ctx context.Context, id int64) (*model.Channel, error)
	FindByCode(ctx context.Context, code string) (*model.Channel, error)
	List(ctx context.Context, ownerID *string) ([]model.Channel, error)
	FindByOwner(ctx context.Context, ownerID string, includeDeleted bool) ([]model.Channel, error)
	Update(ctx context.Context, id int64, name, ownerID *string, actor string) (*model.Channel, error)
	Delete(ctx context.Context, id int64, actor string, force bool) (*model.DeleteChannelResult, error)
}

// ThreadRepo defines thread storage operations
type ThreadRepo interface {
	GetOrCreate(ctx context.Context, channelID int64, userIdentifier, userName, userIP, actor string) (*model.Thread, bool, error)
	FindByID(ctx context.Context, id int64) (*model.Thread, error)
	ListByChannel(ctx context.Context, channelID int64) ([]model.Thread, error)
	ListByChannels(ctx context.Context, channelIDs []int64) ([]model.Thread, error)
	Delete(ctx context.Context, id int64) error
	Touch(ctx context.Context, id int64, actor string, at time.Time) error
	UpdateLastRead(ctx context.Context, id int64, readAt time.Time) error
}

// MessageRepo defines message storage and unread accounting operations
type MessageRepo interface {
	Append(ctx context.Context, m *model.Message) error
	FindByID(ctx context.Context, id int64) (*model.Message, error)
	Edit(ctx context.Context, id int64, content, actor string, at time.Time) (*model.Message, error)
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (*model.Message, error)
	ListByThread(ctx context.Context, threadID int64, page, size int) (*model.MessagePage, error)
	MarkAllUnreadAsRead(ctx context.Context, threadID int64, readAt time.Time, actor string) (int64, error)
	CountUnread(ctx context.Context, threadID int64) (int64, error)
	CountUnreadBatch(ctx context.Context, threadIDs []int64) (map[int64]int64, error)
}

// ParticipantRepo defines thread roster operations
type ParticipantRepo interface {
	Join(ctx context.Context, threadID int64, identifier, role, actor string, at time.Time) (*model.Participant, error)
	Leave(ctx context.Context, threadID int64, identifier string, at time.Time) error
	List(ctx context.Context, threadID int64) ([]model.Participant, error)
}

// SessionRepo defines session log operations
type SessionRepo interface {
	Start(ctx context.Context, threadID int64, sessionID string, at time.Time) (*model.SessionLog, error)
	End(ctx context.Context, threadID int64, sessionID, reason string, at time.Time) (*model.SessionLog, error)
}

// SettingRepo defines channel configuration operations
type SettingRepo interface {
	GetChannelSetting(ctx context.Context, channelID int64) (*model.ChannelSetting, error)
	ListChannelSettings(ctx context.Context) ([]model.ChannelSetting, error)
	UpsertChannelSetting(ctx context.Context, channelID int64, config datatypes.JSON, actor string, at time.Time) (*model.ChannelSetting, error)
	DeleteChannelSetting(ctx context.Context, channelID int64) error
	ListChatSettings(ctx context.Context, channelID int64) ([]model.ChatSetting, error)
	UpsertChatSetting(ctx context.Context, channelID int64, key, value, actor string, at time.Time) (*model.ChatSetting, error)
}

// Repositories bundles every store the service layer needs.
type Repositories struct {
	Channels     ChannelRepo
	Threads      ThreadRepo
	Messages     MessageRepo
	Participants ParticipantRepo
	Sessions     SessionRepo
	Settings     SettingRepo
}
