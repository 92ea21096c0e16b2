package storage

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// GetChannelSetting returns the JSON config of a channel, ErrNotFound when none is stored.
func (r *PostgresRepo) GetChannelSetting(ctx context.Context, channelID int64) (*model.ChannelSetting, error) {
	var s model.ChannelSetting
	err := r.run(ctx, "select", "channel_setting", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Where("channel_id = ?", channelID).Take(&s).Error)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListChannelSettings returns every stored channel config.
func (r *PostgresRepo) ListChannelSettings(ctx context.Context) ([]model.ChannelSetting, error) {
	var settings []model.ChannelSetting
	err := r.run(ctx, "select", "channel_setting", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Order("channel_id ASC").Find(&settings).Error)
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// UpsertChannelSetting replaces the channel's JSON config.
func (r *PostgresRepo) UpsertChannelSetting(ctx context.Context, channelID int64, config datatypes.JSON, actor string, at time.Time) (*model.ChannelSetting, error) {
	s := &model.ChannelSetting{ChannelID: channelID, Config: config}
	s.Stamp(actor, "", at)
	err := r.run(ctx, "upsert", "channel_setting", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "channel_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"config":     config,
					"updated_at": at,
					"updated_by": s.UpdatedBy,
				}),
			}).
			Create(s).Error)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeleteChannelSetting removes the channel's config; removing a missing config is not an error.
func (r *PostgresRepo) DeleteChannelSetting(ctx context.Context, channelID int64) error {
	return r.run(ctx, "delete", "channel_setting", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("channel_id = ?", channelID).
			Delete(&model.ChannelSetting{}).Error)
	})
}

// ListChatSettings returns the key/value options of a channel.
func (r *PostgresRepo) ListChatSettings(ctx context.Context, channelID int64) ([]model.ChatSetting, error) {
	var settings []model.ChatSetting
	err := r.run(ctx, "select", "chat_setting", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("channel_id = ?", channelID).
			Order("key ASC").
			Find(&settings).Error)
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// UpsertChatSetting sets one key/value option.
func (r *PostgresRepo) UpsertChatSetting(ctx context.Context, channelID int64, key, value, actor string, at time.Time) (*model.ChatSetting, error) {
	s := &model.ChatSetting{ChannelID: channelID, Key: key, Value: value}
	s.Stamp(actor, "", at)
	err := r.run(ctx, "upsert", "chat_setting", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "channel_id"}, {Name: "key"}},
					DoUpdates: clause.Assignments(map[string]interface{}{
						"value":      value,
						"updated_at": at,
						"updated_by": s.UpdatedBy,
					}),
				},
				clause.Returning{},
			).
			Create(s).Error)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
