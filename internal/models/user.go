// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole defines a user's global role in the application.
type UserRole string

const (
	// UserRoleAdmin can manage users and decide access requests.
	UserRoleAdmin UserRole = "admin"
	// UserRoleStaff is an internal user handling RFIs.
	UserRoleStaff UserRole = "staff"
	// UserRoleStakeholder is an external contact requesting project access.
	UserRoleStakeholder UserRole = "stakeholder"
)

// User represents an internal staff member or external stakeholder.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Role      UserRole       `gorm:"type:varchar(20);not null;default:'stakeholder';index" json:"role"`
	// No DB-side default: gorm would omit an explicit false on insert and the
	// column default would silently reactivate the account. Creation paths set
	// the flag themselves.
	Active    bool           `gorm:"not null" json:"active"`
	Company   string         `json:"company"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
