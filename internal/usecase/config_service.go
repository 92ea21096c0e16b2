package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/validator"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

// ConfigActor is recorded on channel config writes made through the admin endpoints.
const ConfigActor = "admin"

// Channel configuration is addressed by owner user uuid. An owner is expected to own one
// channel; when several match, the oldest wins.

// GetChannelConfig returns the owner's channel and its stored settings.
func (s *ChatService) GetChannelConfig(ctx context.Context, ownerUUID string) (*ChannelConfig, error) {
	channel, err := s.ownerChannel(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}
	cfg := newChannelConfig(channel)

	setting, err := s.settings.GetChannelSetting(ctx, channel.ID)
	switch {
	case err == nil:
		cfg.Settings = json.RawMessage(setting.Config)
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return nil, fmt.Errorf("get settings of channel %d: %w", channel.ID, err)
	}
	return cfg, nil
}

// SetChannelConfig stores the owner's channel settings. The body must be a JSON object.
func (s *ChatService) SetChannelConfig(ctx context.Context, ownerUUID string, config json.RawMessage) (*ChannelConfig, error) {
	var parsed map[string]interface{}
	if err := json.Unmarshal(config, &parsed); err != nil || parsed == nil {
		return nil, fmt.Errorf("%w: channel config must be a JSON object", apperrors.ErrValidation)
	}
	channel, err := s.ownerChannel(ctx, ownerUUID)
	if err != nil {
		return nil, err
	}
	setting, err := s.settings.UpsertChannelSetting(ctx, channel.ID, datatypes.JSON(config), ConfigActor, s.now())
	if err != nil {
		return nil, fmt.Errorf("save settings of channel %d: %w", channel.ID, err)
	}
	logger.FromContext(ctx).Info("Channel config saved",
		zap.Int64("channel_id", channel.ID), zap.String("owner_user_uuid", ownerUUID))

	cfg := newChannelConfig(channel)
	cfg.Settings = json.RawMessage(setting.Config)
	return cfg, nil
}

// DeleteChannelConfig removes the owner's channel settings; a channel without settings is fine.
func (s *ChatService) DeleteChannelConfig(ctx context.Context, ownerUUID string) error {
	channel, err := s.ownerChannel(ctx, ownerUUID)
	if err != nil {
		return err
	}
	if err := s.settings.DeleteChannelSetting(ctx, channel.ID); err != nil {
		return fmt.Errorf("delete settings of channel %d: %w", channel.ID, err)
	}
	logger.FromContext(ctx).Info("Channel config deleted",
		zap.Int64("channel_id", channel.ID), zap.String("owner_user_uuid", ownerUUID))
	return nil
}

// ListChannelConfigs maps every owner of a live channel to that channel and its settings.
func (s *ChatService) ListChannelConfigs(ctx context.Context) (map[string]ChannelConfig, error) {
	channels, err := s.channels.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	settings, err := s.settings.ListChannelSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channel settings: %w", err)
	}
	byChannel := make(map[int64]datatypes.JSON, len(settings))
	for _, st := range settings {
		byChannel[st.ChannelID] = st.Config
	}

	out := make(map[string]ChannelConfig)
	for i := range channels {
		c := &channels[i]
		if c.OwnerUserUUID == nil || *c.OwnerUserUUID == "" {
			continue
		}
		if _, seen := out[*c.OwnerUserUUID]; seen {
			continue
		}
		cfg := newChannelConfig(c)
		if raw, ok := byChannel[c.ID]; ok {
			cfg.Settings = json.RawMessage(raw)
		}
		out[*c.OwnerUserUUID] = *cfg
	}
	return out, nil
}

// ValidateOwner reports whether ownerUUID owns a live channel. Only storage failures are errors.
func (s *ChatService) ValidateOwner(ctx context.Context, ownerUUID string) (*OwnerValidation, error) {
	ownerUUID = strings.TrimSpace(ownerUUID)
	res := &OwnerValidation{UUID: ownerUUID}
	if ownerUUID == "" {
		return res, nil
	}
	channel, err := s.ownerChannel(ctx, ownerUUID)
	switch {
	case err == nil:
		cfg := newChannelConfig(channel)
		cfg.CreatedAt = nil
		res.Valid = true
		res.Config = cfg
		return res, nil
	case errors.Is(err, apperrors.ErrNotFound):
		return res, nil
	default:
		return nil, err
	}
}

// ListChatSettings returns the key/value options of a live channel.
func (s *ChatService) ListChatSettings(ctx context.Context, channelID int64) ([]model.ChatSetting, error) {
	if _, err := s.liveChannel(ctx, channelID); err != nil {
		return nil, err
	}
	return s.settings.ListChatSettings(ctx, channelID)
}

// PutChatSetting creates or replaces one option of a live channel.
func (s *ChatService) PutChatSetting(ctx context.Context, channelID int64, key, value, actor string) (*model.ChatSetting, error) {
	if err := validator.ValidateVar(key, "notblank,max=100"); err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}
	if err := validator.ValidateVar(value, "max=1000"); err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	if _, err := s.liveChannel(ctx, channelID); err != nil {
		return nil, err
	}
	setting, err := s.settings.UpsertChatSetting(ctx, channelID, key, value, actorOrDefault(actor), s.now())
	if err != nil {
		return nil, fmt.Errorf("save setting %q of channel %d: %w", key, channelID, err)
	}
	return setting, nil
}

func (s *ChatService) ownerChannel(ctx context.Context, ownerUUID string) (*model.Channel, error) {
	if err := validator.ValidateVar(ownerUUID, "notblank,max=50"); err != nil {
		return nil, fmt.Errorf("owner uuid: %w", err)
	}
	channels, err := s.channels.FindByOwner(ctx, ownerUUID, false)
	if err != nil {
		return nil, fmt.Errorf("find channels of owner %s: %w", ownerUUID, err)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channel for owner %s: %w", ownerUUID, apperrors.ErrNotFound)
	}
	return &channels[0], nil
}

func newChannelConfig(c *model.Channel) *ChannelConfig {
	cfg := &ChannelConfig{
		ChannelID: c.ID,
		CmsCode:   c.Code,
		CmsName:   c.Name,
	}
	if c.OwnerUserUUID != nil {
		cfg.OwnerUserUUID = *c.OwnerUserUUID
	}
	if !c.CreatedAt.IsZero() {
		created := c.CreatedAt
		cfg.CreatedAt = &created
	}
	return cfg
}
