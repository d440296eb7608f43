package compliance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taxdesk/compliance/compliance-backend/internal/users"
	"taxdesk/compliance/compliance-backend/pkg/workflows"
)

// RejectionSuspensionThreshold is the rejected-request count at which a user
// is compliance suspended.
const RejectionSuspensionThreshold = 5

type RequestType string

const (
	RequestTypeIdentityDocument     RequestType = "identity_document"
	RequestTypeTaxDocument          RequestType = "tax_document"
	RequestTypeBusinessRegistration RequestType = "business_registration"
)

// RequestTypes lists the accepted document types in display order
var RequestTypes = []RequestType{
	RequestTypeIdentityDocument,
	RequestTypeTaxDocument,
	RequestTypeBusinessRegistration,
}

func (t RequestType) IsValid() bool {
	for _, rt := range RequestTypes {
		if rt == t {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// reviewTransitions: a request is resolved exactly once
var reviewTransitions = workflows.NewStateMachine(map[string][]string{
	string(StatusPending):  {string(StatusApproved), string(StatusRejected)},
	string(StatusApproved): {},
	string(StatusRejected): {},
})

// ComplianceRequest is one submission attempt. Rows are never deleted by the workflow.
type ComplianceRequest struct {
	ID           uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID       uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;index"`
	RequestType  RequestType `json:"request_type" gorm:"size:64;not null"`
	Status       Status      `json:"status" gorm:"size:32;not null;default:pending;index"`
	DocumentURL  string      `json:"document_url" gorm:"type:text;not null"`
	DocumentName string      `json:"document_name" gorm:"size:255;not null"`
	AdminNotes   string      `json:"admin_notes,omitempty" gorm:"type:text"`
	CreatedAt    time.Time   `json:"created_at" gorm:"not null;index"`
	ReviewedBy   *uuid.UUID  `json:"reviewed_by,omitempty" gorm:"type:uuid"`
	ReviewedAt   *time.Time  `json:"reviewed_at,omitempty"`

	User *users.User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (ComplianceRequest) TableName() string {
	return "compliance_requests"
}

func (r *ComplianceRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RequestFilter narrows the review queue
type RequestFilter struct {
	Status      *Status
	UserID      *uuid.UUID
	RequestType *RequestType
	Page        int
	PageSize    int
}

// RequestList is a page of the review queue
type RequestList struct {
	Requests []ComplianceRequest `json:"requests"`
	Total    int64               `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"page_size"`
}

// SubmitRequest is the customer submission body
type SubmitRequest struct {
	RequestType RequestType `json:"request_type"`
	Document    string      `json:"document"`
}

// RejectRequest is the reviewer rejection body
type RejectRequest struct {
	Reason string `json:"reason"`
}
