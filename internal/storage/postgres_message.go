package storage

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
)

const (
	// MaxPageSize caps a single message page.
	MaxPageSize = 100
	// DefaultPageSize applies when the caller passes no size.
	DefaultPageSize = 20
	// markReadBatchSize is how many messages each mark-read transaction covers.
	markReadBatchSize = 200
)

// AppendMessage persists a new message and fills in its id.
func (r *PostgresRepo) AppendMessage(ctx context.Context, m *model.Message) error {
	return r.run(ctx, "insert", "message", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Create(m).Error)
	})
}

// FindMessageByID returns a visible message.
func (r *PostgresRepo) FindMessageByID(ctx context.Context, id int64) (*model.Message, error) {
	var msg model.Message
	err := r.run(ctx, "select", "message", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("id = ? AND is_deleted = ?", id, false).
			Take(&msg).Error)
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessage replaces the content of a visible message and stamps updated_at, under a row lock.
func (r *PostgresRepo) EditMessage(ctx context.Context, id int64, content, actor string, at time.Time) (*model.Message, error) {
	var msg model.Message
	err := r.run(ctx, "update", "message", commitRetryMaxElapsedTime, func() error {
		return r.withTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND is_deleted = ?", id, false).
				Take(&msg).Error; err != nil {
				return checkConstraintViolation(err)
			}
			if err := tx.Model(&model.Message{}).Where("id = ?", id).
				UpdateColumns(map[string]interface{}{
					"content":    content,
					"updated_at": at,
					"updated_by": actor,
				}).Error; err != nil {
				return checkConstraintViolation(err)
			}
			msg.Content = content
			msg.UpdatedAt = at
			msg.UpdatedBy = actor
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SoftDeleteMessage hides a message. Deleting an already deleted message returns it unchanged.
func (r *PostgresRepo) SoftDeleteMessage(ctx context.Context, id int64, actor string, at time.Time) (*model.Message, error) {
	var msg model.Message
	err := r.run(ctx, "delete", "message", commitRetryMaxElapsedTime, func() error {
		return r.withTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", id).
				Take(&msg).Error; err != nil {
				return checkConstraintViolation(err)
			}
			if msg.IsDeleted {
				return nil
			}
			if err := tx.Model(&model.Message{}).Where("id = ?", id).
				UpdateColumns(map[string]interface{}{
					"is_deleted": true,
					"deleted_at": at,
					"deleted_by": actor,
				}).Error; err != nil {
				return checkConstraintViolation(err)
			}
			msg.IsDeleted = true
			msg.DeletedAt = &at
			msg.DeletedBy = actor
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListMessagesByThread returns one page of visible messages, oldest first. page is zero-based.
func (r *PostgresRepo) ListMessagesByThread(ctx context.Context, threadID int64, page, size int) (*model.MessagePage, error) {
	if page < 0 {
		return nil, fmt.Errorf("%w: page must not be negative", apperrors.ErrBadRequest)
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if page > math.MaxInt/size {
		return nil, fmt.Errorf("%w: page %d is out of range", apperrors.ErrBadRequest, page)
	}

	var (
		total int64
		items []model.Message
	)
	err := r.run(ctx, "select", "message", readRetryMaxElapsedTime, func() error {
		base := r.db.WithContext(ctx).Model(&model.Message{}).
			Where("thread_id = ? AND is_deleted = ?", threadID, false)
		if err := base.Count(&total).Error; err != nil {
			return checkConstraintViolation(err)
		}
		items = items[:0]
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("thread_id = ? AND is_deleted = ?", threadID, false).
			Order("created_at ASC, id ASC").
			Offset(page * size).Limit(size).
			Find(&items).Error)
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Message{}
	}
	return model.NewMessagePage(items, page, size, total), nil
}

// MarkAllUnreadAsRead flags every unread visible message created at or before readAt as read,
// in id-ordered batches that each commit on their own. Returns the number of rows flagged.
func (r *PostgresRepo) MarkAllUnreadAsRead(ctx context.Context, threadID int64, readAt time.Time, actor string) (int64, error) {
	var (
		lastID int64
		marked int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return marked, err
		}

		var ids []int64
		err := r.run(ctx, "select", "message", readRetryMaxElapsedTime, func() error {
			ids = ids[:0]
			return checkConstraintViolation(r.db.WithContext(ctx).Model(&model.Message{}).
				Where("thread_id = ? AND is_read = ? AND is_deleted = ? AND created_at <= ? AND id > ?",
					threadID, false, false, readAt, lastID).
				Order("id ASC").
				Limit(markReadBatchSize).
				Pluck("id", &ids).Error)
		})
		if err != nil {
			return marked, err
		}
		if len(ids) == 0 {
			break
		}

		var affected int64
		err = r.run(ctx, "update", "message", commitRetryMaxElapsedTime, func() error {
			res := r.db.WithContext(ctx).Model(&model.Message{}).
				Where("id IN ? AND is_read = ?", ids, false).
				UpdateColumns(map[string]interface{}{
					"is_read":    true,
					"read_at":    readAt,
					"updated_by": actor,
				})
			affected = res.RowsAffected
			return checkConstraintViolation(res.Error)
		})
		if err != nil {
			return marked, err
		}
		marked += affected
		lastID = ids[len(ids)-1]

		if len(ids) < markReadBatchSize {
			break
		}
	}

	if marked > 0 {
		logger.FromContext(ctx).Debug("Messages marked read", zap.Int64("thread_id", threadID), zap.Int64("count", marked))
	}
	return marked, nil
}
