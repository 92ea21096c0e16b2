package httpapi

import (
	"context"
	"encoding/json"
	"io"

	"github.com/stretchr/testify/mock"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/bizhours"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/filestore"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/usecase"
)

type chatAPIMock struct {
	mock.Mock
}

var _ ChatAPI = (*chatAPIMock)(nil)

func (m *chatAPIMock) CreateChannel(ctx context.Context, req usecase.CreateChannelRequest) (*model.Channel, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *chatAPIMock) ListChannelsWithUnread(ctx context.Context, ownerID *string) ([]model.ChannelSummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChannelSummary), args.Error(1)
}

func (m *chatAPIMock) UpdateChannel(ctx context.Context, id int64, req usecase.UpdateChannelRequest) (*model.Channel, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Channel), args.Error(1)
}

func (m *chatAPIMock) DeleteChannel(ctx context.Context, id int64, actor string, force bool) (*model.DeleteChannelResult, error) {
	args := m.Called(ctx, id, actor, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeleteChannelResult), args.Error(1)
}

func (m *chatAPIMock) ListThreadsWithUnread(ctx context.Context, channelID int64) ([]model.ThreadSummary, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ThreadSummary), args.Error(1)
}

func (m *chatAPIMock) GetOrCreateThread(ctx context.Context, req usecase.CreateThreadRequest) (*model.Thread, bool, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*model.Thread), args.Bool(1), args.Error(2)
}

func (m *chatAPIMock) DeleteThread(ctx context.Context, threadID int64) error {
	return m.Called(ctx, threadID).Error(0)
}

func (m *chatAPIMock) JoinParticipant(ctx context.Context, threadID int64, req usecase.JoinRequest) (*model.Participant, error) {
	args := m.Called(ctx, threadID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Participant), args.Error(1)
}

func (m *chatAPIMock) LeaveParticipant(ctx context.Context, threadID int64, identifier string) error {
	return m.Called(ctx, threadID, identifier).Error(0)
}

func (m *chatAPIMock) ListParticipants(ctx context.Context, threadID int64) ([]model.Participant, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Participant), args.Error(1)
}

func (m *chatAPIMock) SendText(ctx context.Context, req usecase.SendTextRequest) (*usecase.SendResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SendResult), args.Error(1)
}

func (m *chatAPIMock) SendFile(ctx context.Context, req usecase.SendFileRequest) (*model.MessageDTO, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageDTO), args.Error(1)
}

func (m *chatAPIMock) UploadFile(ctx context.Context, threadID int64, senderType, senderName, actor string, meta filestore.Meta, r io.Reader) (*model.MessageDTO, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, threadID, senderType, senderName, actor, meta, string(body))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageDTO), args.Error(1)
}

func (m *chatAPIMock) EditMessage(ctx context.Context, messageID int64, content, actor string) (*model.MessageDTO, error) {
	args := m.Called(ctx, messageID, content, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageDTO), args.Error(1)
}

func (m *chatAPIMock) DeleteMessage(ctx context.Context, messageID int64, actor string) (*model.MessageDTO, error) {
	args := m.Called(ctx, messageID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageDTO), args.Error(1)
}

func (m *chatAPIMock) ListMessages(ctx context.Context, threadID int64, page, size int) (*model.MessageDTOPage, error) {
	args := m.Called(ctx, threadID, page, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageDTOPage), args.Error(1)
}

func (m *chatAPIMock) MarkRead(ctx context.Context, threadID int64, actor string) (*usecase.ReadResult, error) {
	args := m.Called(ctx, threadID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ReadResult), args.Error(1)
}

func (m *chatAPIMock) CountUnread(ctx context.Context, threadID int64) (int64, error) {
	args := m.Called(ctx, threadID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *chatAPIMock) SendWelcome(ctx context.Context, threadID int64, actor string) (*model.MessageDTO, error) {
	args := m.Called(ctx, threadID, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MessageDTO), args.Error(1)
}

func (m *chatAPIMock) BusinessHoursStatus(ctx context.Context) bizhours.Status {
	return m.Called(ctx).Get(0).(bizhours.Status)
}

func (m *chatAPIMock) GetChannelConfig(ctx context.Context, ownerUUID string) (*usecase.ChannelConfig, error) {
	args := m.Called(ctx, ownerUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ChannelConfig), args.Error(1)
}

func (m *chatAPIMock) SetChannelConfig(ctx context.Context, ownerUUID string, config json.RawMessage) (*usecase.ChannelConfig, error) {
	args := m.Called(ctx, ownerUUID, string(config))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.ChannelConfig), args.Error(1)
}

func (m *chatAPIMock) DeleteChannelConfig(ctx context.Context, ownerUUID string) error {
	return m.Called(ctx, ownerUUID).Error(0)
}

func (m *chatAPIMock) ListChannelConfigs(ctx context.Context) (map[string]usecase.ChannelConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]usecase.ChannelConfig), args.Error(1)
}

func (m *chatAPIMock) ValidateOwner(ctx context.Context, ownerUUID string) (*usecase.OwnerValidation, error) {
	args := m.Called(ctx, ownerUUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.OwnerValidation), args.Error(1)
}

func (m *chatAPIMock) ListChatSettings(ctx context.Context, channelID int64) ([]model.ChatSetting, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ChatSetting), args.Error(1)
}

func (m *chatAPIMock) PutChatSetting(ctx context.Context, channelID int64, key, value, actor string) (*model.ChatSetting, error) {
	args := m.Called(ctx, channelID, key, value, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ChatSetting), args.Error(1)
}
