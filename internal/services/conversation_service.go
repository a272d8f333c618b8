// Package services – ConversationService
//
// This file implements the ConversationService, which manages the lifecycle of
// two-party conversations. It validates member pairs, coordinates the
// idempotent find-or-create, and exposes listing, review marking, and the two
// deletion forms (by id and by member pair).
//
// Service-level errors (e.g., ErrConversationNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConversationRepo defines the repository contract required by ConversationService.
// Implementations are responsible for persistence of conversation aggregates.
type ConversationRepo interface {
	// FindOrCreateConversation returns the conversation for the unordered pair,
	// creating it when absent. The boolean reports whether it already existed.
	FindOrCreateConversation(ctx context.Context, db *gorm.DB, a, b string) (*domain.Conversation, bool, error)

	// GetConversation fetches a conversation by ID.
	GetConversation(ctx context.Context, db *gorm.DB, id string) (*domain.Conversation, error)

	// ListConversationsForUser returns all conversations the user is part of.
	ListConversationsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error)

	// MarkConversationChecked sets the reviewed flag (idempotent).
	MarkConversationChecked(ctx context.Context, db *gorm.DB, id string) error

	// DeleteConversation removes a conversation by ID.
	DeleteConversation(ctx context.Context, db *gorm.DB, id string) error

	// DeleteConversationByMembers removes the conversation for the unordered pair.
	DeleteConversationByMembers(ctx context.Context, db *gorm.DB, a, b string) error
}

// ConversationService provides conversation-level operations. It enforces
// member-pair validity and ownership; persistence is delegated to the repo.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the conversation repository used by this service.
	Repo ConversationRepo
}

// NewConversationService constructs a ConversationService.
func NewConversationService(db *gorm.DB, r ConversationRepo) *ConversationService {
	return &ConversationService{DB: db, Repo: r}
}

// FindOrCreate returns the conversation between userID and peerID, creating
// it when absent. Argument order never matters; the repo canonicalizes the
// pair. The boolean reports whether an existing conversation was found.
func (s *ConversationService) FindOrCreate(ctx context.Context, userID, peerID string) (*domain.Conversation, bool, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "FindOrCreate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("peer.id", peerID),
		),
	)
	defer span.End()

	userID, peerID = strings.TrimSpace(userID), strings.TrimSpace(peerID)
	if userID == "" || peerID == "" {
		return nil, false, ErrEmptyMember
	}
	if userID == peerID {
		return nil, false, ErrSameMember
	}
	return s.Repo.FindOrCreateConversation(ctx, s.DB, userID, peerID)
}

// List returns all conversations userID participates in, newest activity first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return s.Repo.ListConversationsForUser(ctx, s.DB, userID)
}

// MarkChecked marks the conversation as reviewed by the acting user. The
// caller must be a member. Marking an already-checked conversation is a no-op.
func (s *ConversationService) MarkChecked(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "MarkChecked",
		trace.WithAttributes(
			attribute.String("conversation.id", id),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	c, err := s.Repo.GetConversation(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	if !c.HasMember(userID) {
		return ErrNotMember
	}
	if err := s.Repo.MarkConversationChecked(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// Delete removes a conversation by ID. The caller must be a member.
// Messages are not cascaded (documented orphaning).
func (s *ConversationService) Delete(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("conversation.id", id),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	c, err := s.Repo.GetConversation(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	if !c.HasMember(userID) {
		return ErrNotMember
	}
	if err := s.Repo.DeleteConversation(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// DeleteByMembers removes the conversation between userID and peerID.
func (s *ConversationService) DeleteByMembers(ctx context.Context, userID, peerID string) error {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "DeleteByMembers",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("peer.id", peerID),
		),
	)
	defer span.End()

	userID, peerID = strings.TrimSpace(userID), strings.TrimSpace(peerID)
	if userID == "" || peerID == "" {
		return ErrEmptyMember
	}
	if err := s.Repo.DeleteConversationByMembers(ctx, s.DB, userID, peerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}
