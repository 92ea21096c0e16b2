package model

import "time"

// Defaults stamped into audit columns when the caller leaves them empty.
const (
	DefaultActor = "system"
	DefaultIP    = "127.0.0.1"
)

// Audit is embedded by every mutable table.
type Audit struct {
	CreatedBy string    `json:"created_by,omitempty" gorm:"column:created_by;size:50"`
	CreatedIP string    `json:"-" gorm:"column:created_ip;size:50"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;not null"`
	UpdatedBy string    `json:"updated_by,omitempty" gorm:"column:updated_by;size:50"`
	UpdatedIP string    `json:"-" gorm:"column:updated_ip;size:50"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;not null"`
}

// Stamp fills the creation fields and mirrors them into the update fields.
func (a *Audit) Stamp(actor, ip string, now time.Time) {
	if actor == "" {
		actor = DefaultActor
	}
	if ip == "" {
		ip = DefaultIP
	}
	a.CreatedBy, a.UpdatedBy = actor, actor
	a.CreatedIP, a.UpdatedIP = ip, ip
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = a.CreatedAt
}

// SoftDelete is embedded by tables that are never physically removed on delete.
type SoftDelete struct {
	IsDeleted bool       `json:"-" gorm:"column:is_deleted;not null;default:false;index"`
	DeletedAt *time.Time `json:"-" gorm:"column:deleted_at"`
	DeletedBy string     `json:"-" gorm:"column:deleted_by;size:50"`
}
