// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of conversation messages. It validates inputs, checks
// conversation membership, appends the message row, and then refreshes the
// parent conversation's denormalized summary.
//
// The two writes of Post are deliberately independent, not a transaction.
// The message log is the system of record; the conversation summary is an
// advisory cache. If the summary update fails after the insert, the error is
// surfaced and the summary is left stale relative to the log — clients must
// tolerate that, and nothing here retries.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include conversation/user identifiers and pagination parameters where
// applicable.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageService coordinates message persistence and summary maintenance.
type MessageService struct {
	DB *gorm.DB

	// MaxTextRunes caps message bodies by rune length; 0 disables the cap.
	MaxTextRunes int
}

// Post validates text, verifies the conversation and the sender's membership,
// appends the message, and updates the conversation summary
// (latestText/latestSenderID, checked=false) as a second, independent write.
func (s *MessageService) Post(ctx context.Context, conversationID, senderID, text string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Post",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("sender.id", senderID),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if s.MaxTextRunes > 0 && utf8.RuneCountInString(text) > s.MaxTextRunes {
		return nil, ErrTooLong
	}

	c, err := repo.GetConversation(ctx, s.DB, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !c.HasMember(senderID) {
		return nil, ErrNotMember
	}

	m, err := repo.CreateMessage(ctx, s.DB, conversationID, senderID, text)
	if err != nil {
		return nil, err
	}

	// Second write: refresh the summary. On failure the message row stays and
	// the summary is stale; the store error is surfaced verbatim.
	if err := repo.SetLatestMessage(ctx, s.DB, conversationID, text, senderID); err != nil {
		return nil, err
	}
	return m, nil
}

// ListPage returns paginated messages for a conversation, oldest first.
func (s *MessageService) ListPage(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetConversation(ctx, s.DB, conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, conversationID, offset, pageSize)
	return items, total, err
}

// Update amends the text of a message the sender previously posted. The
// conversation summary is intentionally not touched: edits do not change
// which message is latest, and a stale summary text is acceptable.
func (s *MessageService) Update(ctx context.Context, messageID, senderID, text string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(
			attribute.String("message.id", messageID),
			attribute.String("sender.id", senderID),
		),
	)
	defer span.End()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}
	if s.MaxTextRunes > 0 && utf8.RuneCountInString(text) > s.MaxTextRunes {
		return nil, ErrTooLong
	}

	m, err := repo.GetMessage(ctx, s.DB, messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if m.SenderID != senderID {
		return nil, ErrForbiddenEdit
	}

	if err := repo.UpdateMessageText(ctx, s.DB, messageID, text); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	m.Text = text
	return m, nil
}
