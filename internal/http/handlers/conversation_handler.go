// Conversation HTTP handlers.
//
// This file exposes REST endpoints for conversation resources:
//   - POST   /conversations                   (find-or-create with a peer)
//   - GET    /conversations                   (list for the current user)
//   - PUT    /conversations/{id}/checked      (mark the summary as seen)
//   - DELETE /conversations/{id}              (delete by id)
//   - DELETE /conversations/with/{peerId}     (delete by member pair)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-social-backend/internal/domain"
	"github.com/tbourn/go-social-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ConversationService defines conversation lifecycle operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConversationService interface {
	// FindOrCreate returns the conversation between userID and peerID,
	// creating it when absent. The bool reports whether it already existed.
	FindOrCreate(ctx context.Context, userID, peerID string) (*domain.Conversation, bool, error)
	// List returns all conversations the user belongs to, most recent first.
	List(ctx context.Context, userID string) ([]domain.Conversation, error)
	// MarkChecked flags the conversation summary as seen by a member.
	MarkChecked(ctx context.Context, userID, id string) error
	// Delete removes a conversation the user belongs to.
	Delete(ctx context.Context, userID, id string) error
	// DeleteByMembers removes the conversation between userID and peerID.
	DeleteByMembers(ctx context.Context, userID, peerID string) error
}

// MessageService defines message persistence and retrieval operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MessageService interface {
	// Post appends a message and updates the conversation summary.
	Post(ctx context.Context, conversationID, senderID, text string) (*domain.Message, error)
	// ListPage returns a page of messages within a conversation and the total count.
	ListPage(ctx context.Context, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
	// Update edits the text of a message owned by senderID.
	Update(ctx context.Context, messageID, senderID, text string) (*domain.Message, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for conversations and messages. It depends
// on abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	convSvc ConversationService
	msgSvc  MessageService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(convSvc ConversationService, msgSvc MessageService) *Handlers {
	return &Handlers{convSvc: convSvc, msgSvc: msgSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// auth middleware). If absent, it falls back to the "X-User-ID" header (tests
// use it). It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}

//
// DTOs
//

// CreateConversationRequest is the JSON payload for opening a conversation
// with a peer.
type CreateConversationRequest struct {
	// PeerID is the other member of the conversation. Required.
	PeerID string `json:"peerId" binding:"required,min=1"`
}

// ConversationResponse wraps a single conversation resource.
type ConversationResponse struct {
	Conversation *domain.Conversation `json:"conversation"`
}

// ListConversationsResponse wraps the user's conversations.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
}

//
// Handlers
//

// CreateConversation opens (or returns) the conversation between the current
// user and the requested peer.
//
// Find-or-create is deliberately non-failing on repeats: posting the same pair
// twice returns the same conversation, with 200 instead of 201.
func (h *Handlers) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "peerId required")
		return
	}

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user identity required")
		return
	}

	conv, existed, err := h.convSvc.FindOrCreate(c.Request.Context(), uid, req.PeerID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMember), errors.Is(err, services.ErrSameMember):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	ok(c, status, ConversationResponse{Conversation: conv})
}

// ListConversations returns every conversation the current user belongs to,
// ordered by most recent activity.
func (h *Handlers) ListConversations(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user identity required")
		return
	}

	items, err := h.convSvc.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListConversationsResponse{Conversations: items})
}

// MarkConversationChecked marks the conversation summary as seen by the
// current user. The operation is idempotent: repeating it on an
// already-checked conversation still succeeds.
func (h *Handlers) MarkConversationChecked(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user identity required")
		return
	}

	err := h.convSvc.MarkChecked(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConversationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		case errors.Is(err, services.ErrNotMember):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not a member of this conversation")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	noContent(c)
}

// DeleteConversation removes a conversation by id. Messages are not cascaded;
// orphaned rows are left for offline cleanup.
func (h *Handlers) DeleteConversation(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user identity required")
		return
	}

	err := h.convSvc.Delete(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConversationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		case errors.Is(err, services.ErrNotMember):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "not a member of this conversation")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		}
		return
	}
	noContent(c)
}

// DeleteConversationWithPeer removes the conversation between the current
// user and peerId, addressed by the member pair rather than the id.
func (h *Handlers) DeleteConversationWithPeer(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user identity required")
		return
	}

	err := h.convSvc.DeleteByMembers(c.Request.Context(), uid, c.Param("peerId"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMember), errors.Is(err, services.ErrSameMember):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrConversationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		}
		return
	}
	noContent(c)
}
