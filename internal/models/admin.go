// backend/internal/models/admin.go
package models

import "time"

const (
	RoleMain  = "main"
	RoleAdmin = "admin"
)

// Admin is an account allowed into the admin console. Only RoleMain admins can
// manage other admin accounts.
type Admin struct {
	ID           string    `json:"id" bson:"_id" gorm:"primaryKey;type:varchar(36)"`
	Username     string    `json:"username" bson:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" bson:"password_hash" gorm:"not null"`
	Role         string    `json:"role" bson:"role" gorm:"not null;default:'admin'"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

func ValidRole(role string) bool {
	return role == RoleMain || role == RoleAdmin
}
