package usecase

import (
	"encoding/json"
	"time"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// CreateChannelRequest resolves or creates a channel by code.
type CreateChannelRequest struct {
	Code          string  `json:"cmsCode" validate:"notblank,max=50"`
	Name          string  `json:"cmsName" validate:"max=100"`
	OwnerUserUUID *string `json:"ownerUserUuid" validate:"omitempty,max=50"`
	Actor         string  `json:"actor" validate:"max=50"`
}

// UpdateChannelRequest changes the mutable channel fields; nil fields are left alone.
type UpdateChannelRequest struct {
	Name          *string `json:"cmsName" validate:"omitempty,max=100"`
	OwnerUserUUID *string `json:"ownerUserUuid" validate:"omitempty,max=50"`
	Actor         string  `json:"actor" validate:"max=50"`
}

// CreateThreadRequest resolves or creates the thread of one user on one channel.
type CreateThreadRequest struct {
	ChannelID      int64  `json:"channelId" validate:"gt=0"`
	UserIdentifier string `json:"userIdentifier" validate:"notblank,max=255"`
	UserName       string `json:"userName" validate:"max=100"`
	UserIP         string `json:"userIp" validate:"max=50"`
	Actor          string `json:"actor" validate:"max=50"`
}

// SendTextRequest is one text message.
type SendTextRequest struct {
	ThreadID   int64  `json:"threadId" validate:"gt=0"`
	SenderType string `json:"senderType" validate:"oneof=USER ADMIN"`
	SenderName string `json:"senderName" validate:"max=100"`
	Content    string `json:"content" validate:"notblank"`
	Actor      string `json:"actor" validate:"max=50"`
}

// SendFileRequest is a message pointing at an already stored file.
type SendFileRequest struct {
	ThreadID    int64  `json:"threadId" validate:"gt=0"`
	SenderType  string `json:"senderType" validate:"oneof=USER ADMIN"`
	SenderName  string `json:"senderName" validate:"max=100"`
	FileName    string `json:"fileName" validate:"notblank,max=255"`
	FileURL     string `json:"fileUrl" validate:"notblank,max=512"`
	MessageType string `json:"messageType" validate:"omitempty,oneof=IMAGE FILE"`
	Actor       string `json:"actor" validate:"max=50"`
}

// JoinRequest adds a participant to a thread roster.
type JoinRequest struct {
	UserIdentifier string `json:"userIdentifier" validate:"notblank,max=255"`
	Role           string `json:"role" validate:"oneof=USER ADMIN"`
	Actor          string `json:"actor" validate:"max=50"`
}

// SendResult is a stored message and the auto-reply it triggered, if any.
type SendResult struct {
	Message   model.MessageDTO  `json:"message"`
	AutoReply *model.MessageDTO `json:"autoReply,omitempty"`
}

// ReadResult reports a mark-read pass.
type ReadResult struct {
	ThreadID int64     `json:"threadId"`
	Marked   int64     `json:"marked"`
	ReadAt   time.Time `json:"readAt"`
}

// ChannelConfig is a channel identified by its owner, with its stored settings.
type ChannelConfig struct {
	ChannelID     int64           `json:"channelId"`
	CmsCode       string          `json:"cmsCode"`
	CmsName       string          `json:"cmsName,omitempty"`
	OwnerUserUUID string          `json:"ownerUserUuid"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
	Settings      json.RawMessage `json:"settings,omitempty"`
}

// OwnerValidation answers whether an owner uuid maps to a live channel.
type OwnerValidation struct {
	Valid  bool           `json:"valid"`
	UUID   string         `json:"uuid"`
	Config *ChannelConfig `json:"config,omitempty"`
}
