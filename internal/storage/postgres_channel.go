package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

// GetOrCreateChannel returns the live channel whose code matches case-insensitively, inserting
// it when missing. A concurrent creator that loses the insert race re-reads the winner's row.
func (r *PostgresRepo) GetOrCreateChannel(ctx context.Context, code, name, actor string, ownerID *string) (*model.Channel, error) {
	existing, err := r.FindChannelByCode(ctx, code)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	channel := model.NewChannel(code, name, actor, ownerID, utils.Now())
	insertErr := r.run(ctx, "insert", "channel", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Create(channel).Error)
	})
	if insertErr == nil {
		logger.FromContext(ctx).Info("Channel created", zap.Int64("channel_id", channel.ID), zap.String("code", code))
		return channel, nil
	}
	if !apperrors.IsDuplicateError(insertErr) {
		return nil, insertErr
	}

	winner, err := r.FindChannelByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.FromContext(ctx).Error("Duplicate channel insert but no row on re-query", zap.String("code", code), zap.Error(insertErr))
			return nil, fmt.Errorf("%w: channel %q: %w", apperrors.ErrConflict, code, insertErr)
		}
		return nil, err
	}
	logger.FromContext(ctx).Debug("Lost channel create race, using existing row", zap.Int64("channel_id", winner.ID))
	return winner, nil
}

// FindChannelByCode looks up a live channel, ignoring case.
func (r *PostgresRepo) FindChannelByCode(ctx context.Context, code string) (*model.Channel, error) {
	var channel model.Channel
	err := r.run(ctx, "select", "channel", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("lower(cms_code) = lower(?) AND is_deleted = ?", code, false).
			Take(&channel).Error)
	})
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// FindChannelByID returns the channel including soft-deleted rows; callers check IsDeleted.
func (r *PostgresRepo) FindChannelByID(ctx context.Context, id int64) (*model.Channel, error) {
	var channel model.Channel
	err := r.run(ctx, "select", "channel", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Where("id = ?", id).Take(&channel).Error)
	})
	if err != nil {
		return nil, err
	}
	return &channel, nil
}

// ListChannels returns live channels, oldest first, optionally filtered by owner.
func (r *PostgresRepo) ListChannels(ctx context.Context, ownerID *string) ([]model.Channel, error) {
	var channels []model.Channel
	err := r.run(ctx, "select", "channel", readRetryMaxElapsedTime, func() error {
		q := r.db.WithContext(ctx).Where("is_deleted = ?", false)
		if ownerID != nil && *ownerID != "" {
			q = q.Where("owner_user_uuid = ?", *ownerID)
		}
		return checkConstraintViolation(q.Order("created_at ASC, id ASC").Find(&channels).Error)
	})
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// FindChannelsByOwner returns the owner's channels, oldest first.
func (r *PostgresRepo) FindChannelsByOwner(ctx context.Context, ownerID string, includeDeleted bool) ([]model.Channel, error) {
	var channels []model.Channel
	err := r.run(ctx, "select", "channel", readRetryMaxElapsedTime, func() error {
		q := r.db.WithContext(ctx).Where("owner_user_uuid = ?", ownerID)
		if !includeDeleted {
			q = q.Where("is_deleted = ?", false)
		}
		return checkConstraintViolation(q.Order("created_at ASC, id ASC").Find(&channels).Error)
	})
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// UpdateChannel changes the display name and/or owner of a live channel.
func (r *PostgresRepo) UpdateChannel(ctx context.Context, id int64, name, ownerID *string, actor string) (*model.Channel, error) {
	channel, err := r.FindChannelByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if channel.IsDeleted {
		return nil, fmt.Errorf("%w: channel %d is deleted", apperrors.ErrNotFound, id)
	}

	updates := map[string]interface{}{}
	if name != nil {
		updates["cms_name"] = *name
		channel.Name = *name
	}
	if ownerID != nil {
		updates["owner_user_uuid"] = *ownerID
		channel.OwnerUserUUID = ownerID
	}
	if len(updates) == 0 {
		return channel, nil
	}

	now := utils.Now()
	updates["updated_at"] = now
	updates["updated_by"] = actor
	err = r.run(ctx, "update", "channel", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Model(&model.Channel{}).
			Where("id = ?", id).Updates(updates).Error)
	})
	if err != nil {
		return nil, err
	}
	channel.UpdatedAt = now
	channel.UpdatedBy = actor
	return channel, nil
}

// markChannelDeleted soft-deletes a live channel row already locked by tx.
func markChannelDeleted(tx *gorm.DB, id int64, actor string) error {
	return checkConstraintViolation(tx.Model(&model.Channel{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(softDeleteColumns(actor)).Error)
}

// DeleteChannel soft-deletes a channel. With live threads and force unset nothing is written and
// the result carries the threads for confirmation; force soft-deletes the threads first.
func (r *PostgresRepo) DeleteChannel(ctx context.Context, id int64, actor string, force bool) (*model.DeleteChannelResult, error) {
	result := &model.DeleteChannelResult{}
	err := r.run(ctx, "delete", "channel", commitRetryMaxElapsedTime, func() error {
		*result = model.DeleteChannelResult{}
		return r.withTx(ctx, func(tx *gorm.DB) error {
			var channel model.Channel
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&channel).Error; err != nil {
				return checkConstraintViolation(err)
			}
			if channel.IsDeleted {
				result.Deleted, result.AlreadyDeleted = true, true
				return nil
			}

			var threads []model.Thread
			if err := tx.Where("channel_id = ? AND is_deleted = ?", id, false).
				Order("updated_at DESC, id DESC").Find(&threads).Error; err != nil {
				return checkConstraintViolation(err)
			}
			if len(threads) > 0 && !force {
				result.Conflict, result.ForceAvailable = true, true
				result.Threads = threads
				return nil
			}

			cols := softDeleteColumns(actor)
			if len(threads) > 0 {
				if err := tx.Model(&model.Thread{}).Where("channel_id = ? AND is_deleted = ?", id, false).
					Updates(cols).Error; err != nil {
					return checkConstraintViolation(err)
				}
			}
			if err := markChannelDeleted(tx, id, actor); err != nil {
				return err
			}
			result.Deleted = true
			result.Threads = threads
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if result.Deleted && !result.AlreadyDeleted {
		logger.FromContext(ctx).Info("Channel soft-deleted",
			zap.Int64("channel_id", id), zap.Bool("force", force), zap.Int("threads", len(result.Threads)))
	}
	return result, nil
}

func softDeleteColumns(actor string) map[string]interface{} {
	now := utils.Now()
	return map[string]interface{}{
		"is_deleted": true,
		"deleted_at": now,
		"deleted_by": actor,
		"updated_at": now,
		"updated_by": actor,
	}
}
