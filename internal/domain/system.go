package domain

import (
	"time"
)

// SysAuditLog records security relevant actions
type SysAuditLog struct {
	ID        int64     `json:"id,string"`
	Actor     string    `gorm:"size:191;index" json:"actor"`
	Ip        string    `gorm:"size:64" json:"ip"`
	Action    string    `gorm:"size:64;index" json:"action"`
	Detail    string    `gorm:"size:1000" json:"detail"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName Specify table name
func (SysAuditLog) TableName() string {
	return "sys_audit_log"
}
