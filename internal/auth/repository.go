// backend/internal/auth/repository.go
package auth

import (
	"context"

	"gochangi/internal/models"
)

// Repository is the slice of the store the admin service needs. Every store
// driver satisfies it.
type Repository interface {
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	GetAdmin(ctx context.Context, id string) (*models.Admin, error)
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
	ListAdmins(ctx context.Context) ([]models.Admin, error)
	UpdateAdmin(ctx context.Context, admin *models.Admin) error
	DeleteAdmin(ctx context.Context, id string) error
	CountAdmins(ctx context.Context, role string) (int64, error)
}
