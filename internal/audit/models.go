package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Action string

const (
	ActionComplianceSubmit  Action = "compliance.submit"
	ActionComplianceApprove Action = "compliance.approve"
	ActionComplianceReject  Action = "compliance.reject"
	ActionUserRoleChange    Action = "user.role_change"
	ActionUserSuspend       Action = "user.suspend"
	ActionUserUnsuspend     Action = "user.unsuspend"
	ActionUserDelete        Action = "user.delete"
	ActionUserImpersonate   Action = "user.impersonate"
)

const (
	ResourceComplianceRequest = "compliance_request"
	ResourceUser              = "user"
)

// Log is one append-only audit record. Details has no fixed schema.
type Log struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	ActorUserID uuid.UUID         `json:"actor_user_id" gorm:"type:uuid;not null;index"`
	Action      Action            `json:"action" gorm:"size:64;not null;index"`
	Resource    string            `json:"resource" gorm:"size:64;not null;index"`
	ResourceID  uuid.UUID         `json:"resource_id" gorm:"type:uuid;not null;index"`
	Details     datatypes.JSONMap `json:"details"`
	IPAddress   string            `json:"ip_address" gorm:"size:64"`
	CreatedAt   time.Time         `json:"created_at" gorm:"not null;index"`
}

func (Log) TableName() string {
	return "audit_logs"
}

func (l *Log) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return nil
}
