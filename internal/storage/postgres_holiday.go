package storage

import (
	"context"
	"time"

	"gorm.io/datatypes"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/model"
)

// IsHolidayAndClosed reports whether a closing holiday override exists for day's calendar date.
func (r *PostgresRepo) IsHolidayAndClosed(ctx context.Context, day time.Time) (bool, error) {
	var count int64
	date := datatypes.Date(time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC))
	err := r.run(ctx, "count", "holiday", readRetryMaxElapsedTime, func() error {
		return checkConstraintViolation(r.db.WithContext(ctx).Model(&model.HolidayOverride{}).
			Where("holiday_date = ? AND upper(closed_yn) = ?", date, "Y").
			Count(&count).Error)
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
