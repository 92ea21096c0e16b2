package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm/schema"
)

// Holiday kinds.
const (
	HolidayPublic    = "PUBLIC"
	HolidayCompany   = "COMPANY"
	HolidayTemporary = "TEMPORARY"
)

// HolidayOverride marks a calendar date; ClosedYN "Y" closes the desk for the whole day.
type HolidayOverride struct {
	ID          int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	HolidayDate datatypes.Date `json:"holidayDate" gorm:"column:holiday_date;not null;index"`
	Name        string         `json:"name" gorm:"column:name;not null"`
	Type        string         `json:"type" gorm:"column:type;not null;default:PUBLIC"`
	ClosedYN    string         `json:"closedYn" gorm:"column:closed_yn;size:1;not null;default:Y"`
	CreatedBy   string         `json:"-" gorm:"column:created_by"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"column:created_at;autoCreateTime"`
	UpdatedBy   string         `json:"-" gorm:"column:updated_by"`
	UpdatedAt   time.Time      `json:"updatedAt" gorm:"column:updated_at;autoUpdateTime"`
}

func (HolidayOverride) TableName(namer schema.Namer) string {
	return namer.TableName("holiday_override")
}
