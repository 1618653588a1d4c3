package models

import "time"

// AuditLog is an append-only record of administrative and workflow actions.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Action     string    `gorm:"type:varchar(60);not null;index" json:"action"`
	ActorID    uint      `gorm:"not null;index" json:"actor_id"`
	TargetType string    `gorm:"type:varchar(40);not null" json:"target_type"`
	TargetID   uint      `gorm:"not null" json:"target_id"`
	PrevState  string    `gorm:"type:varchar(40)" json:"prev_state"`
	NewState   string    `gorm:"type:varchar(40)" json:"new_state"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions recorded by the admin surface and workflow engine.
const (
	AuditActionUserActivated    = "user_activated"
	AuditActionUserDeactivated  = "user_deactivated"
	AuditActionRequestSubmitted = "access_request_submitted"
	AuditActionRequestDecided   = "access_request_decided"
	AuditActionRequestRevoked   = "access_request_revoked"
)
