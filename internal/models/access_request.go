package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessRequestStatus defines lifecycle states for project access requests.
type AccessRequestStatus string

const (
	// AccessRequestStatusPending indicates the request is awaiting review.
	AccessRequestStatusPending AccessRequestStatus = "pending"
	// AccessRequestStatusApproved indicates access was granted.
	AccessRequestStatusApproved AccessRequestStatus = "approved"
	// AccessRequestStatusRejected indicates the request was denied.
	AccessRequestStatusRejected AccessRequestStatus = "rejected"
	// AccessRequestStatusRevoked indicates a previously granted access was withdrawn.
	AccessRequestStatusRevoked AccessRequestStatus = "revoked"
)

// IsOpen reports whether the status counts against the one-open-record-per-pair
// constraint.
func (s AccessRequestStatus) IsOpen() bool {
	return s == AccessRequestStatusPending || s == AccessRequestStatusApproved
}

// CanTransitionTo reports whether the single allowed lifecycle step from s to
// target exists: pending->approved, pending->rejected, approved->revoked.
func (s AccessRequestStatus) CanTransitionTo(target AccessRequestStatus) bool {
	switch s {
	case AccessRequestStatusPending:
		return target == AccessRequestStatusApproved || target == AccessRequestStatusRejected
	case AccessRequestStatusApproved:
		return target == AccessRequestStatusRevoked
	default:
		return false
	}
}

// Project access roles a stakeholder may request, ordered weakest to strongest.
const (
	AccessRoleViewer      = "viewer"
	AccessRoleCommenter   = "commenter"
	AccessRoleContributor = "contributor"
	AccessRoleManager     = "manager"
)

var accessRolesByRank = []string{
	AccessRoleViewer,
	AccessRoleCommenter,
	AccessRoleContributor,
	AccessRoleManager,
}

var accessRoleRank = map[string]int{
	AccessRoleViewer:      1,
	AccessRoleCommenter:   2,
	AccessRoleContributor: 3,
	AccessRoleManager:     4,
}

// AccessRoleRank returns the strength rank of a project access role, or 0 if
// the role is unknown.
func AccessRoleRank(role string) int {
	return accessRoleRank[role]
}

// IsValidAccessRole reports whether role names a known project access role.
func IsValidAccessRole(role string) bool {
	_, ok := accessRoleRank[role]
	return ok
}

// AccessRolesAtOrAbove returns, weakest first, the roles ranking at or above
// role, for queries that match existing grants against a requested role.
// Unknown roles yield nil.
func AccessRolesAtOrAbove(role string) []string {
	rank := AccessRoleRank(role)
	if rank == 0 {
		return nil
	}
	return accessRolesByRank[rank-1:]
}

// AccessRequest is a stakeholder's request for access to a project. Records
// are never physically deleted; revoked is the terminal soft delete.
//
// Exactly one of AutoApprovalReason and ProcessedByID is set once the record
// leaves pending: the former for rule-based approval, the latter for a human
// decision.
type AccessRequest struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	ReferenceID   string              `gorm:"type:varchar(36);uniqueIndex;not null" json:"reference_id"`
	ContactID     uint                `gorm:"not null;index" json:"contact_id"`
	Contact       *User               `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	ProjectID     uint                `gorm:"not null;index" json:"project_id"`
	Project       *Project            `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Status        AccessRequestStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RequestedRole string              `gorm:"type:varchar(20);not null" json:"requested_role"`
	Justification string              `gorm:"type:text" json:"justification"`

	AutoApprovalReason *string `gorm:"type:varchar(60)" json:"auto_approval_reason"`
	ProcessedByID      *uint   `json:"processed_by_id"`
	ProcessedBy        *User   `gorm:"foreignKey:ProcessedByID" json:"processed_by,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at"`
}

// TableName specifies the table name for GORM
func (AccessRequest) TableName() string {
	return "access_requests"
}

// BeforeCreate assigns the opaque external reference identifier.
func (r *AccessRequest) BeforeCreate(_ *gorm.DB) error {
	if r.ReferenceID == "" {
		r.ReferenceID = uuid.New().String()
	}
	return nil
}
