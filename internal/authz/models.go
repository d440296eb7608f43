package authz

import (
	"taxdesk/compliance/compliance-backend/internal/auth"
)

type Permission string

const (
	PermComplianceSubmit Permission = "compliance.submit"
	PermComplianceView   Permission = "compliance.view"
	PermComplianceReview Permission = "compliance.review"
	PermUsersView        Permission = "users.view"
	PermUsersManage      Permission = "users.manage"
	PermUsersImpersonate Permission = "users.impersonate"
	PermBillingManage    Permission = "billing.manage"
)

// RolePermission grants one permission to one role
type RolePermission struct {
	Role       auth.Role  `json:"role" gorm:"size:32;primaryKey"`
	Permission Permission `json:"permission" gorm:"size:64;primaryKey"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// roleMatrix is the fixed ceiling on what each role may do.
var roleMatrix = map[Permission][]auth.Role{
	PermComplianceSubmit: {auth.RoleUser, auth.RoleStaff, auth.RoleAdmin},
	PermComplianceView:   {auth.RoleStaff, auth.RoleAdmin},
	PermComplianceReview: {auth.RoleStaff, auth.RoleAdmin},
	PermUsersView:        {auth.RoleStaff, auth.RoleAdmin},
	PermUsersManage:      {auth.RoleAdmin},
	PermUsersImpersonate: {auth.RoleStaff, auth.RoleAdmin},
	PermBillingManage:    {auth.RoleStaff, auth.RoleAdmin},
}

// DefaultGrants returns the rows seeded on migration, mirroring the matrix
func DefaultGrants() []RolePermission {
	var grants []RolePermission
	for perm, roles := range roleMatrix {
		for _, role := range roles {
			grants = append(grants, RolePermission{Role: role, Permission: perm})
		}
	}
	return grants
}

func allowedByMatrix(role auth.Role, perm Permission) bool {
	for _, r := range roleMatrix[perm] {
		if r == role {
			return true
		}
	}
	return false
}
