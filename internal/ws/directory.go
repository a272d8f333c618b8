package ws

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/repo"
)

// GormDirectory is the default UserDirectory, reading display data from the
// shared users table.
type GormDirectory struct {
	DB *gorm.DB
}

// DisplayName returns the user's first name, the field clients show on
// notification toasts.
func (d GormDirectory) DisplayName(ctx context.Context, userID string) (string, error) {
	u, err := repo.GetUser(ctx, d.DB, userID)
	if err != nil {
		return "", err
	}
	return u.FirstName, nil
}
