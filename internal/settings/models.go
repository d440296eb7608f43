package settings

import (
	"time"

	"github.com/google/uuid"

	"taxdesk/compliance/compliance-backend/internal/auth"
	"taxdesk/compliance/compliance-backend/internal/compliance"
)

type UserProfile struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// View is the customer settings and compliance page
type View struct {
	Profile             UserProfile                    `json:"profile"`
	ComplianceSuspended bool                           `json:"compliance_suspended"`
	SuspensionNotice    string                         `json:"suspension_notice,omitempty"`
	Compliance          []compliance.TypeStatus        `json:"compliance"`
	History             []compliance.ComplianceRequest `json:"history"`
}

type UpdateProfileRequest struct {
	Name string `json:"name"`
}

const suspensionNotice = "Your account is restricted after repeated rejected documents. " +
	"Submit a valid document below to restore access."
