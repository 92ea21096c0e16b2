package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/apperrors"
	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// JoinParticipant records identifier as a member of the thread. Re-joining clears left_at and
// updates the role; the original joined_at is kept.
func (r *PostgresRepo) JoinParticipant(ctx context.Context, threadID int64, identifier, role, actor string, at time.Time) (*model.Participant, error) {
	p := &model.Participant{
		ThreadID:       threadID,
		UserIdentifier: identifier,
		Role:           role,
		JoinedAt:       at,
	}
	p.Stamp(actor, "", at)

	err := r.run(ctx, "upsert", "participant", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Clauses(
				clause.OnConflict{
					Columns: []clause.Column{{Name: "thread_id"}, {Name: "user_identifier"}},
					DoUpdates: clause.Assignments(map[string]interface{}{
						"role":       gorm.Expr("excluded.role"),
						"left_at":    nil,
						"updated_at": at,
						"updated_by": p.UpdatedBy,
					}),
				},
				clause.Returning{},
			).
			Create(p).Error)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LeaveParticipant stamps left_at on an active membership.
func (r *PostgresRepo) LeaveParticipant(ctx context.Context, threadID int64, identifier string, at time.Time) error {
	var affected int64
	err := r.run(ctx, "update", "participant", commitRetryMaxElapsedTime, func() error {
		res := r.db.WithContext(ctx).Model(&model.Participant{}).
			Where("thread_id = ? AND user_identifier = ? AND left_at IS NULL", threadID, identifier).
			UpdateColumns(map[string]interface{}{"left_at": at, "updated_at": at})
		affected = res.RowsAffected
		return checkConstraintViolation(res.Error)
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: no active participant %q in thread %d", apperrors.ErrNotFound, identifier, threadID)
	}
	return nil
}

// ListParticipants returns everyone who ever joined the thread, earliest first.
func (r *PostgresRepo) ListParticipants(ctx context.Context, threadID int64) ([]model.Participant, error) {
	var participants []model.Participant
	err := r.run(ctx, "select", "participant", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).
			Where("thread_id = ?", threadID).
			Order("joined_at ASC, id ASC").
			Find(&participants).Error)
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}
