package storage

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// StartSession opens a session log row.
func (r *PostgresRepo) StartSession(ctx context.Context, threadID int64, sessionID string, at time.Time) (*model.SessionLog, error) {
	s := &model.SessionLog{ThreadID: threadID, SessionID: sessionID, StartedAt: at}
	err := r.run(ctx, "insert", "session_log", commitRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Create(s).Error)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// EndSession closes the most recent open session with the given id on the thread.
// Ending an already closed session is a no-op that returns the closed row.
func (r *PostgresRepo) EndSession(ctx context.Context, threadID int64, sessionID, reason string, at time.Time) (*model.SessionLog, error) {
	var s model.SessionLog
	err := r.run(ctx, "update", "session_log", commitRetryMaxElapsedTime, func() error {
		return r.withTx(ctx, func(tx *gorm.DB) error {
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("thread_id = ? AND session_id = ?", threadID, sessionID).
				Order("started_at DESC, id DESC").
				Take(&s).Error; err != nil {
				return checkConstraintViolation(err)
			}
			if s.Ended() {
				return nil
			}
			if err := tx.Model(&model.SessionLog{}).Where("id = ?", s.ID).
				UpdateColumns(map[string]interface{}{"ended_at": at, "ended_reason": reason}).Error; err != nil {
				return checkConstraintViolation(err)
			}
			s.EndedAt = &at
			s.EndedReason = reason
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}
