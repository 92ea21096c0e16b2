package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// --- ChannelRepo Mock ---

// ChannelRepoMock mocks the ChannelRepo interface
type ChannelRepoMock struct {
	mock.Mock
}

func (m *ChannelRepoMock) GetOrCreate(ctx context.Context, code, name, actor string, ownerID *string) (*model.Channel, error) {
	args := m.Called(ctx, code, name, actor, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *ChannelRepoMock) FindByID(ctx context.Context, id int64) (*model.Channel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *ChannelRepoMock) FindByCode(ctx context.Context, code string) (*model.Channel, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *ChannelRepoMock) List(ctx context.Context, ownerID *string) ([]model.Channel, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Channel), args.Error(1)
}

func (m *ChannelRepoMock) FindByOwner(ctx context.Context, ownerID string, includeDeleted bool) ([]model.Channel, error) {
	args := m.Called(ctx, ownerID, includeDeleted)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Channel), args.Error(1)
}

func (m *ChannelRepoMock) Update(ctx context.Context, id int64, name, ownerID *string, actor string) (*model.Channel, error) {
	args := m.Called(ctx, id, name, ownerID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *ChannelRepoMock) Delete(ctx context.Context, id int64, actor string, force bool) (*model.DeleteChannelResult, error) {
	args := m.Called(ctx, id, actor, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeleteChannelResult), args.Error(1)
}

// --- ThreadRepo Mock ---

// ThreadRepoMock mocks the ThreadRepo interface
type ThreadRepoMock struct {
	mock.Mock
}

func (m *ThreadRepoMock) GetOrCreate(ctx context.Context, channelID int64, userIdentifier, userName, userIP, actor string) (*model.Thread, bool, error) {
	args := m.Called(ctx, channelID, userIdentifier, userName, userIP, actor)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Thread), args.Bool(1), args.Error(2)
}

func (m *ThreadRepoMock) FindByID(ctx context.Context, id int64) (*model.Thread, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Thread), args.Error(1)
}

func (m *ThreadRepoMock) ListByChannel(ctx context.Context, channelID int64) ([]model.Thread, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Thread), args.Error(1)
}

func (m *ThreadRepoMock) ListByChannels(ctx context.Context, channelIDs []int64) ([]model.Thread, error) {
	args := m.Called(ctx, channelIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Thread), args.Error(1)
}

func (m *ThreadRepoMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ThreadRepoMock) Touch(ctx context.Context, id int64, actor string, at time.Time) error {
	args := m.Called(ctx, id, actor, at)
	return args.Error(0)
}

func (m *ThreadRepoMock) UpdateLastRead(ctx context.Context, id int64, readAt time.Time) error {
	args := m.Called(ctx, id, readAt)
	return args.Error(0)
}

// --- MessageRepo Mock ---

// MessageRepoMock mocks the MessageRepo interface
type MessageRepoMock struct {
	mock.Mock
}

func (m *MessageRepoMock) Append(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepoMock) FindByID(ctx context.Context, id int64) (*model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MessageRepoMock) Edit(ctx context.Context, id int64, content, actor string, at time.Time) (*model.Message, error) {
	args := m.Called(ctx, id, content, actor, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MessageRepoMock) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (*model.Message, error) {
	args := m.Called(ctx, id, actor, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MessageRepoMock) ListByThread(ctx context.Context, threadID int64, page, size int) (*model.MessagePage, error) {
	args := m.Called(ctx, threadID, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessagePage), args.Error(1)
}

func (m *MessageRepoMock) MarkAllUnreadAsRead(ctx context.Context, threadID int64, readAt time.Time, actor string) (int64, error) {
	args := m.Called(ctx, threadID, readAt, actor)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepoMock) CountUnread(ctx context.Context, threadID int64) (int64, error) {
	args := m.Called(ctx, threadID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepoMock) CountUnreadBatch(ctx context.Context, threadIDs []int64) (map[int64]int64, error) {
	args := m.Called(ctx, threadIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int64), args.Error(1)
}

// --- ParticipantRepo Mock ---

// ParticipantRepoMock mocks the ParticipantRepo interface
type ParticipantRepoMock struct {
	mock.Mock
}

func (m *ParticipantRepoMock) Join(ctx context.Context, threadID int64, identifier, role, actor string, at time.Time) (*model.Participant, error) {
	args := m.Called(ctx, threadID, identifier, role, actor, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participant), args.Error(1)
}

func (m *ParticipantRepoMock) Leave(ctx context.Context, threadID int64, identifier string, at time.Time) error {
	args := m.Called(ctx, threadID, identifier, at)
	return args.Error(0)
}

func (m *ParticipantRepoMock) List(ctx context.Context, threadID int64) ([]model.Participant, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Participant), args.Error(1)
}

// --- SessionRepo Mock ---

// SessionRepoMock mocks the SessionRepo interface
type SessionRepoMock struct {
	mock.Mock
}

func (m *SessionRepoMock) Start(ctx context.Context, threadID int64, sessionID string, at time.Time) (*model.SessionLog, error) {
	args := m.Called(ctx, threadID, sessionID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionLog), args.Error(1)
}

func (m *SessionRepoMock) End(ctx context.Context, threadID int64, sessionID, reason string, at time.Time) (*model.SessionLog, error) {
	args := m.Called(ctx, threadID, sessionID, reason, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionLog), args.Error(1)
}

// --- SettingRepo Mock ---

// SettingRepoMock mocks the SettingRepo interface
type SettingRepoMock struct {
	mock.Mock
}

func (m *SettingRepoMock) GetChannelSetting(ctx context.Context, channelID int64) (*model.ChannelSetting, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChannelSetting), args.Error(1)
}

func (m *SettingRepoMock) ListChannelSettings(ctx context.Context) ([]model.ChannelSetting, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChannelSetting), args.Error(1)
}

func (m *SettingRepoMock) UpsertChannelSetting(ctx context.Context, channelID int64, config datatypes.JSON, actor string, at time.Time) (*model.ChannelSetting, error) {
	args := m.Called(ctx, channelID, config, actor, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChannelSetting), args.Error(1)
}

func (m *SettingRepoMock) DeleteChannelSetting(ctx context.Context, channelID int64) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *SettingRepoMock) ListChatSettings(ctx context.Context, channelID int64) ([]model.ChatSetting, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChatSetting), args.Error(1)
}

func (m *SettingRepoMock) UpsertChatSetting(ctx context.Context, channelID int64, key, value, actor string, at time.Time) (*model.ChatSetting, error) {
	args := m.Called(ctx, channelID, key, value, actor, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatSetting), args.Error(1)
}
