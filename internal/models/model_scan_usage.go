package models

import "time"

// ScanUsage counts scans per user per UTC day. It is written only by the
// record_scan stored function so the increment stays atomic.
type ScanUsage struct {
	UserID    string    `gorm:"column:user_id;type:varchar(64);primaryKey" json:"user_id"`
	UsageDate string    `gorm:"column:usage_date;type:date;primaryKey" json:"usage_date"`
	ScanCount int       `gorm:"column:scan_count;not null;default:0" json:"scan_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ScanUsage) TableName() string {
	return "scan_usage"
}
