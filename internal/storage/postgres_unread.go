package storage

import (
	"context"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// CountUnread counts visible USER messages in a thread created after its read watermark, with
// the same predicate as CountUnreadBatch.
func (r *PostgresRepo) CountUnread(ctx context.Context, threadID int64) (int64, error) {
	var count int64
	err := r.run(ctx, "count", "message", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Raw(unreadSingleQuery, threadID, model.SenderUser).
			Scan(&count).Error)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

const unreadSingleQuery = `SELECT COUNT(m.id)
FROM chat_message m
JOIN chat_thread t ON t.id = m.thread_id
WHERE m.thread_id = ?
  AND m.sender_type = ?
  AND m.is_deleted = false
  AND (t.last_read_at IS NULL OR m.created_at > t.last_read_at)`

const unreadBatchQuery = `SELECT t.id AS thread_id, COUNT(m.id) AS unread
FROM chat_thread t
JOIN chat_message m ON m.thread_id = t.id
WHERE t.id IN ?
  AND m.sender_type = ?
  AND m.is_deleted = false
  AND (t.last_read_at IS NULL OR m.created_at > t.last_read_at)
GROUP BY t.id`

type unreadRow struct {
	ThreadID int64
	Unread   int64
}

// CountUnreadBatch returns unread USER message counts for many threads in one aggregate query,
// measured against each thread's read watermark. Threads with nothing unread are absent.
func (r *PostgresRepo) CountUnreadBatch(ctx context.Context, threadIDs []int64) (map[int64]int64, error) {
	counts := make(map[int64]int64, len(threadIDs))
	if len(threadIDs) == 0 {
		return counts, nil
	}

	var rows []unreadRow
	err := r.run(ctx, "count", "message", readRetryMaxElapsedTime, func() error {
		rows = rows[:0]
		return checkConstraintViolation(r.db.WithContext(ctx).
			Raw(unreadBatchQuery, threadIDs, model.SenderUser).
			Scan(&rows).Error)
	})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.ThreadID] = row.Unread
	}
	return counts, nil
}
