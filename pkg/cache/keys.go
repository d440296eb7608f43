package cache

import "github.com/google/uuid"

// Route keys revalidated by the services that change the underlying rows
const (
	AdminQueueKey     = "/admin/compliance"
	AdminDashboardKey = "/admin/dashboard"
)

// SettingsKey is the cached settings view of one user
func SettingsKey(userID uuid.UUID) string {
	return "/settings/" + userID.String()
}
