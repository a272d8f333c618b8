// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Pair canonicalization:
// A conversation is keyed by its unordered member pair. The pair is stored
// lexicographically ordered (member_low < member_high) under a UNIQUE index,
// which turns find-or-create into an atomic upsert: a concurrent creation for
// the same pair loses the insert race, detects the unique violation, and
// re-reads the winning row. Callers may pass the two ids in either order.
//
// Error semantics:
//   - When a conversation is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated. Nothing is retried here.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CanonicalPair returns the two member ids in lexicographic order.
func CanonicalPair(a, b string) (low, high string) {
	if a > b {
		return b, a
	}
	return a, b
}

// isUniqueViolation reports whether err is a unique-constraint failure.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}

// FindOrCreateConversation returns the conversation for the unordered pair
// {a, b}, creating it when absent. The boolean result reports whether an
// existing conversation was found. New conversations start with Checked=true
// and an empty latest-message summary.
//
// Member argument order never matters. Under a concurrent create for the same
// pair, the losing insert re-reads the winner, so exactly one row exists.
func FindOrCreateConversation(ctx context.Context, db *gorm.DB, a, b string) (*domain.Conversation, bool, error) {
	low, high := CanonicalPair(a, b)

	var existing domain.Conversation
	err := db.WithContext(ctx).
		Where("member_low = ? AND member_high = ?", low, high).
		First(&existing).Error
	if err == nil {
		return &existing, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	c := &domain.Conversation{
		ID:         uuid.NewString(),
		MemberLow:  low,
		MemberHigh: high,
		Checked:    true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the insert race; the winner is the conversation.
			var won domain.Conversation
			if err2 := db.WithContext(ctx).
				Where("member_low = ? AND member_high = ?", low, high).
				First(&won).Error; err2 != nil {
				return nil, false, err2
			}
			return &won, true, nil
		}
		return nil, false, err
	}
	return c, false, nil
}

// GetConversation fetches a conversation by its ID, or ErrNotFound.
func GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error) {
	var c domain.Conversation
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversationsForUser returns all conversations userID is a member of,
// most recently updated first. It returns an empty slice if the user has
// none. On DB error, it returns the error.
func ListConversationsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("member_low = ? OR member_high = ?", userID, userID).
		Order("updated_at desc").
		Find(&out).Error
	return out, err
}

// SetLatestMessage updates the denormalized latest-message summary on a
// conversation and resets its Checked flag. This is the second, independent
// write of a message post; it is never wrapped in a transaction with the
// message insert. Returns ErrNotFound when the conversation is missing.
func SetLatestMessage(ctx context.Context, db *gorm.DB, id, text, senderID string) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"latest_text":      text,
			"latest_sender_id": senderID,
			"checked":          false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkConversationChecked sets Checked=true. The operation is idempotent:
// marking an already-checked conversation succeeds without effect.
// Returns ErrNotFound when the conversation is missing.
func MarkConversationChecked(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("checked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish missing row from an already-true flag.
		var n int64
		if err := db.WithContext(ctx).
			Model(&domain.Conversation{}).
			Where("id = ?", id).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// DeleteConversation removes a conversation by ID. Messages are not cascaded;
// orphaned rows are acceptable since messages are only reachable through a
// conversation id the caller already controls.
// Returns ErrNotFound when nothing was deleted.
func DeleteConversation(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Conversation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteConversationByMembers removes the conversation keyed by the unordered
// pair {a, b}. Argument order never matters.
// Returns ErrNotFound when no such conversation exists.
func DeleteConversationByMembers(ctx context.Context, db *gorm.DB, a, b string) error {
	low, high := CanonicalPair(a, b)
	res := db.WithContext(ctx).
		Where("member_low = ? AND member_high = ?", low, high).
		Delete(&domain.Conversation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
