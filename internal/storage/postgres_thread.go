package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

// GetOrCreateThread returns the thread for (channel, user), creating it when absent.
// The boolean reports whether this call inserted the row.
func (r *PostgresRepo) GetOrCreateThread(ctx context.Context, channelID int64, userIdentifier, userName, userIP, actor string) (*model.Thread, bool, error) {
	existing, err := r.findThreadByUser(ctx, channelID, userIdentifier)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	thread := model.NewThread(channelID, userIdentifier, userName, userIP, actor, utils.Now())
	insertErr := r.run(ctx, "insert", "thread", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Create(thread).Error)
	})
	if insertErr == nil {
		logger.FromContext(ctx).Info("Thread created",
			zap.Int64("thread_id", thread.ID), zap.Int64("channel_id", channelID), zap.String("user", userIdentifier))
		return thread, true, nil
	}
	if !apperrors.IsDuplicateError(insertErr) {
		return nil, false, insertErr
	}

	winner, err := r.findThreadByUser(ctx, channelID, userIdentifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: thread for %q in channel %d: %w", apperrors.ErrConflict, userIdentifier, channelID, insertErr)
		}
		return nil, false, err
	}
	return winner, false, nil
}

func (r *PostgresRepo) findThreadByUser(ctx context.Context, channelID int64, userIdentifier string) (*model.Thread, error) {
	var thread model.Thread
	err := r.run(ctx, "select", "thread", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("channel_id = ? AND user_identifier = ?", channelID, userIdentifier).
			Take(&thread).Error)
	})
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// FindThreadByID returns a live thread.
func (r *PostgresRepo) FindThreadByID(ctx context.Context, id int64) (*model.Thread, error) {
	var thread model.Thread
	err := r.run(ctx, "select", "thread", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("id = ? AND is_deleted = ?", id, false).
			Take(&thread).Error)
	})
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListThreadsByChannel returns the channel's live threads, most recently active first.
func (r *PostgresRepo) ListThreadsByChannel(ctx context.Context, channelID int64) ([]model.Thread, error) {
	return r.ListThreadsByChannels(ctx, []int64{channelID})
}

// ListThreadsByChannels is ListThreadsByChannel for several channels in one query.
func (r *PostgresRepo) ListThreadsByChannels(ctx context.Context, channelIDs []int64) ([]model.Thread, error) {
	if len(channelIDs) == 0 {
		return []model.Thread{}, nil
	}
	var threads []model.Thread
	err := r.run(ctx, "select", "thread", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("channel_id IN ? AND is_deleted = ?", channelIDs, false).
			Order("updated_at DESC, id DESC").
			Find(&threads).Error)
	})
	if err != nil {
		return nil, err
	}
	return threads, nil
}

// DeleteThread hard-deletes a thread; its messages, participants and session logs cascade.
func (r *PostgresRepo) DeleteThread(ctx context.Context, id int64) error {
	var affected int64
	err := r.run(ctx, "delete", "thread", commitRetryMaxElapsedTime, func() error {
		res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Thread{})
		if res.Error != nil {
			return checkConstraintViolation(res.Error)
		}
		affected = res.RowsAffected
		return nil
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: thread %d", apperrors.ErrNotFound, id)
	}
	logger.FromContext(ctx).Info("Thread deleted", zap.Int64("thread_id", id))
	return nil
}

// TouchThread bumps the thread's recency after a new message.
func (r *PostgresRepo) TouchThread(ctx context.Context, id int64, actor string, at time.Time) error {
	return r.run(ctx, "update", "thread", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Model(&model.Thread{}).
			Where("id = ?", id).
			UpdateColumns(map[string]interface{}{"updated_at": at, "updated_by": actor}).Error)
	})
}

// UpdateThreadLastRead moves the read watermark forward; it never moves backwards.
func (r *PostgresRepo) UpdateThreadLastRead(ctx context.Context, id int64, readAt time.Time) error {
	return r.run(ctx, "update", "thread", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Model(&model.Thread{}).
			Where("id = ? AND (last_read_at IS NULL OR last_read_at < ?)", id, readAt).
			UpdateColumn("last_read_at", readAt).Error)
	})
}
