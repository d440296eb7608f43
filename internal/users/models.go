package users

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taxdesk/compliance/compliance-backend/internal/auth"
)

// User is the account row. ComplianceSuspended is owned by the compliance
// review workflow; the remaining admin fields are owned by this package.
type User struct {
	ID                  uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Email               string         `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Name                string         `json:"name" gorm:"size:255"`
	Role                auth.Role      `json:"role" gorm:"size:32;not null;default:user"`
	ComplianceSuspended bool           `json:"compliance_suspended" gorm:"not null;default:false"`
	AccountSuspended    bool           `json:"account_suspended" gorm:"not null;default:false"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	return nil
}

// ListFilter narrows the admin user listing
type ListFilter struct {
	Role                *auth.Role
	ComplianceSuspended *bool
	Search              string
	Page                int
	PageSize            int
}

// ListResponse is a page of users
type ListResponse struct {
	Users    []User `json:"users"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// ImpersonationResponse carries a short-lived session for the target user
type ImpersonationResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    uuid.UUID `json:"user_id"`
}
