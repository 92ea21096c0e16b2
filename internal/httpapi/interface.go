package httpapi

import (
	"context"
	"encoding/json"
	"io"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/bizhours"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/filestore"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/realtime"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/usecase"
)

// ChatAPI is the part of usecase.ChatService the REST surface needs.
type ChatAPI interface {
	CreateChannel(ctx context.Context, req usecase.CreateChannelRequest) (*model.Channel, error)
	ListChannelsWithUnread(ctx context.Context, ownerID *string) ([]model.ChannelSummary, error)
	UpdateChannel(ctx context.Context, id int64, req usecase.UpdateChannelRequest) (*model.Channel, error)
	DeleteChannel(ctx context.Context, id int64, actor string, force bool) (*model.DeleteChannelResult, error)
	ListThreadsWithUnread(ctx context.Context, channelID int64) ([]model.ThreadSummary, error)

	GetOrCreateThread(ctx context.Context, req usecase.CreateThreadRequest) (*model.Thread, bool, error)
	DeleteThread(ctx context.Context, threadID int64) error
	JoinParticipant(ctx context.Context, threadID int64, req usecase.JoinRequest) (*model.Participant, error)
	LeaveParticipant(ctx context.Context, threadID int64, identifier string) error
	ListParticipants(ctx context.Context, threadID int64) ([]model.Participant, error)

	SendText(ctx context.Context, req usecase.SendTextRequest) (*usecase.SendResult, error)
	SendFile(ctx context.Context, req usecase.SendFileRequest) (*model.MessageDTO, error)
	UploadFile(ctx context.Context, threadID int64, senderType, senderName, actor string, meta filestore.Meta, r io.Reader) (*model.MessageDTO, error)
	EditMessage(ctx context.Context, messageID int64, content, actor string) (*model.MessageDTO, error)
	DeleteMessage(ctx context.Context, messageID int64, actor string) (*model.MessageDTO, error)
	ListMessages(ctx context.Context, threadID int64, page, size int) (*model.MessageDTOPage, error)
	MarkRead(ctx context.Context, threadID int64, actor string) (*usecase.ReadResult, error)
	CountUnread(ctx context.Context, threadID int64) (int64, error)
	SendWelcome(ctx context.Context, threadID int64, actor string) (*model.MessageDTO, error)
	BusinessHoursStatus(ctx context.Context) bizhours.Status

	GetChannelConfig(ctx context.Context, ownerUUID string) (*usecase.ChannelConfig, error)
	SetChannelConfig(ctx context.Context, ownerUUID string, config json.RawMessage) (*usecase.ChannelConfig, error)
	DeleteChannelConfig(ctx context.Context, ownerUUID string) error
	ListChannelConfigs(ctx context.Context) (map[string]usecase.ChannelConfig, error)
	ValidateOwner(ctx context.Context, ownerUUID string) (*usecase.OwnerValidation, error)
	ListChatSettings(ctx context.Context, channelID int64) ([]model.ChatSetting, error)
	PutChatSetting(ctx context.Context, channelID int64, key, value, actor string) (*model.ChatSetting, error)
}

// StreamHub hands out topic subscriptions for the event stream.
type StreamHub interface {
	Subscribe(topics ...string) *realtime.Subscriber
	Unsubscribe(s *realtime.Subscriber)
}

var (
	_ ChatAPI   = (*usecase.ChatService)(nil)
	_ StreamHub = (*realtime.Hub)(nil)
)
