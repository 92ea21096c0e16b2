package storage

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// NewRepositories wires every adapter onto one PostgresRepo.
func NewRepositories(postgres *PostgresRepo) Repositories {
	return Repositories{
		Channels:     NewChannelRepoAdapter(postgres),
		Threads:      NewThreadRepoAdapter(postgres),
		Messages:     NewMessageRepoAdapter(postgres),
		Participants: NewParticipantRepoAdapter(postgres),
		Sessions:     NewSessionRepoAdapter(postgres),
		Settings:     NewSettingRepoAdapter(postgres),
	}
}

// ChannelRepoAdapter adapts the PostgresRepo to the ChannelRepo interface
type ChannelRepoAdapter struct {
	postgres *PostgresRepo
}

// NewChannelRepoAdapter creates a new channel repository adapter
func NewChannelRepoAdapter(postgres *PostgresRepo) ChannelRepo {
	return &ChannelRepoAdapter{postgres: postgres}
}

func (a *ChannelRepoAdapter) GetOrCreate(ctx context.Context, code, name, actor string, ownerID *string) (*model.Channel, error) {
	return a.postgres.GetOrCreateChannel(ctx, code, name, actor, ownerID)
}

func (a *ChannelRepoAdapter) FindByID(ctx context.Context, id int64) (*model.Channel, error) {
	return a.postgres.FindChannelByID(ctx, id)
}

func (a *ChannelRepoAdapter) FindByCode(ctx context.Context, code string) (*model.Channel, error) {
	return a.postgres.FindChannelByCode(ctx, code)
}

func (a *ChannelRepoAdapter) List(ctx context.Context, ownerID *string) ([]model.Channel, error) {
	return a.postgres.ListChannels(ctx, ownerID)
}

func (a *ChannelRepoAdapter) FindByOwner(ctx context.Context, ownerID string, includeDeleted bool) ([]model.Channel, error) {
	return a.postgres.FindChannelsByOwner(ctx, ownerID, includeDeleted)
}

func (a *ChannelRepoAdapter) Update(ctx context.Context, id int64, name, ownerID *string, actor string) (*model.Channel, error) {
	return a.postgres.UpdateChannel(ctx, id, name, ownerID, actor)
}

func (a *ChannelRepoAdapter) Delete(ctx context.Context, id int64, actor string, force bool) (*model.DeleteChannelResult, error) {
	return a.postgres.DeleteChannel(ctx, id, actor, force)
}

// ThreadRepoAdapter adapts the PostgresRepo to the ThreadRepo interface
type ThreadRepoAdapter struct {
	postgres *PostgresRepo
}

// NewThreadRepoAdapter creates a new thread repository adapter
func NewThreadRepoAdapter(postgres *PostgresRepo) ThreadRepo {
	return &ThreadRepoAdapter{postgres: postgres}
}

func (a *ThreadRepoAdapter) GetOrCreate(ctx context.Context, channelID int64, userIdentifier, userName, userIP, actor string) (*model.Thread, bool, error) {
	return a.postgres.GetOrCreateThread(ctx, channelID, userIdentifier, userName, userIP, actor)
}

func (a *ThreadRepoAdapter) FindByID(ctx context.Context, id int64) (*model.Thread, error) {
	return a.postgres.FindThreadByID(ctx, id)
}

func (a *ThreadRepoAdapter) ListByChannel(ctx context.Context, channelID int64) ([]model.Thread, error) {
	return a.postgres.ListThreadsByChannel(ctx, channelID)
}

func (a *ThreadRepoAdapter) ListByChannels(ctx context.Context, channelIDs []int64) ([]model.Thread, error) {
	return a.postgres.ListThreadsByChannels(ctx, channelIDs)
}

func (a *ThreadRepoAdapter) Delete(ctx context.Context, id int64) error {
	return a.postgres.DeleteThread(ctx, id)
}

func (a *ThreadRepoAdapter) Touch(ctx context.Context, id int64, actor string, at time.Time) error {
	return a.postgres.TouchThread(ctx, id, actor, at)
}

func (a *ThreadRepoAdapter) UpdateLastRead(ctx context.Context, id int64, readAt time.Time) error {
	return a.postgres.UpdateThreadLastRead(ctx, id, readAt)
}

// MessageRepoAdapter adapts the PostgresRepo to the MessageRepo interface
type MessageRepoAdapter struct {
	postgres *PostgresRepo
}

// NewMessageRepoAdapter creates a new message repository adapter
func NewMessageRepoAdapter(postgres *PostgresRepo) MessageRepo {
	return &MessageRepoAdapter{postgres: postgres}
}

func (a *MessageRepoAdapter) Append(ctx context.Context, m *model.Message) error {
	return a.postgres.AppendMessage(ctx, m)
}

func (a *MessageRepoAdapter) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	return a.postgres.FindMessageByID(ctx, id)
}

func (a *MessageRepoAdapter) Edit(ctx context.Context, id int64, content, actor string, at time.Time) (*model.Message, error) {
	return a.postgres.EditMessage(ctx, id, content, actor, at)
}

func (a *MessageRepoAdapter) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (*model.Message, error) {
	return a.postgres.SoftDeleteMessage(ctx, id, actor, at)
}

func (a *MessageRepoAdapter) ListByThread(ctx context.Context, threadID int64, page, size int) (*model.MessagePage, error) {
	return a.postgres.ListMessagesByThread(ctx, threadID, page, size)
}

func (a *MessageRepoAdapter) MarkAllUnreadAsRead(ctx context.Context, threadID int64, readAt time.Time, actor string) (int64, error) {
	return a.postgres.MarkAllUnreadAsRead(ctx, threadID, readAt, actor)
}

func (a *MessageRepoAdapter) CountUnread(ctx context.Context, threadID int64) (int64, error) {
	return a.postgres.CountUnread(ctx, threadID)
}

func (a *MessageRepoAdapter) CountUnreadBatch(ctx context.Context, threadIDs []int64) (map[int64]int64, error) {
	return a.postgres.CountUnreadBatch(ctx, threadIDs)
}

// ParticipantRepoAdapter adapts the PostgresRepo to the ParticipantRepo interface
type ParticipantRepoAdapter struct {
	postgres *PostgresRepo
}

// NewParticipantRepoAdapter creates a new participant repository adapter
func NewParticipantRepoAdapter(postgres *PostgresRepo) ParticipantRepo {
	return &ParticipantRepoAdapter{postgres: postgres}
}

func (a *ParticipantRepoAdapter) Join(ctx context.Context, threadID int64, identifier, role, actor string, at time.Time) (*model.Participant, error) {
	return a.postgres.JoinParticipant(ctx, threadID, identifier, role, actor, at)
}

func (a *ParticipantRepoAdapter) Leave(ctx context.Context, threadID int64, identifier string, at time.Time) error {
	return a.postgres.LeaveParticipant(ctx, threadID, identifier, at)
}

func (a *ParticipantRepoAdapter) List(ctx context.Context, threadID int64) ([]model.Participant, error) {
	return a.postgres.ListParticipants(ctx, threadID)
}

// SessionRepoAdapter adapts the PostgresRepo to the SessionRepo interface
type SessionRepoAdapter struct {
	postgres *PostgresRepo
}

// NewSessionRepoAdapter creates a new session log repository adapter
func NewSessionRepoAdapter(postgres *PostgresRepo) SessionRepo {
	return &SessionRepoAdapter{postgres: postgres}
}

func (a *SessionRepoAdapter) Start(ctx context.Context, threadID int64, sessionID string, at time.Time) (*model.SessionLog, error) {
	return a.postgres.StartSession(ctx, threadID, sessionID, at)
}

func (a *SessionRepoAdapter) End(ctx context.Context, threadID int64, sessionID, reason string, at time.Time) (*model.SessionLog, error) {
	return a.postgres.EndSession(ctx, threadID, sessionID, reason, at)
}

// SettingRepoAdapter adapts the PostgresRepo to the SettingRepo interface
type SettingRepoAdapter struct {
	postgres *PostgresRepo
}

// NewSettingRepoAdapter creates a new settings repository adapter
func NewSettingRepoAdapter(postgres *PostgresRepo) SettingRepo {
	return &SettingRepoAdapter{postgres: postgres}
}

func (a *SettingRepoAdapter) GetChannelSetting(ctx context.Context, channelID int64) (*model.ChannelSetting, error) {
	return a.postgres.GetChannelSetting(ctx, channelID)
}

func (a *SettingRepoAdapter) ListChannelSettings(ctx context.Context) ([]model.ChannelSetting, error) {
	return a.postgres.ListChannelSettings(ctx)
}

func (a *SettingRepoAdapter) UpsertChannelSetting(ctx context.Context, channelID int64, config datatypes.JSON, actor string, at time.Time) (*model.ChannelSetting, error) {
	return a.postgres.UpsertChannelSetting(ctx, channelID, config, actor, at)
}

func (a *SettingRepoAdapter) DeleteChannelSetting(ctx context.Context, channelID int64) error {
	return a.postgres.DeleteChannelSetting(ctx, channelID)
}

func (a *SettingRepoAdapter) ListChatSettings(ctx context.Context, channelID int64) ([]model.ChatSetting, error) {
	return a.postgres.ListChatSettings(ctx, channelID)
}

func (a *SettingRepoAdapter) UpsertChatSetting(ctx context.Context, channelID int64, key, value, actor string, at time.Time) (*model.ChatSetting, error) {
	return a.postgres.UpsertChatSetting(ctx, channelID, key, value, actor, at)
}
