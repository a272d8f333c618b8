// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read helpers for the User directory.
//
// User accounts are owned by the surrounding application; this service only
// reads display data when the relay forwards a notification.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// GetUser fetches a user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
