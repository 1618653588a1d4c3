package models

import "time"

// Project represents a construction project that RFIs and access requests
// reference. Projects sharing a ClientRef belong to the same client account;
// the sibling-project auto-approval rule groups on it.
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Number    string    `gorm:"size:40;unique;not null" json:"number"`
	ClientRef string    `gorm:"size:60;index" json:"client_ref"`
	Archived  bool      `gorm:"not null;default:false" json:"archived"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Project) TableName() string {
	return "projects"
}
