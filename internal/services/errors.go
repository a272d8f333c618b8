// Package services defines the business logic for conversations and messages.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrConversationNotFound indicates that the requested conversation does
	// not exist or is not accessible to the current user.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrMessageNotFound indicates that the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")

	// ErrEmptyText is returned when a message is posted or edited with an
	// empty body.
	ErrEmptyText = errors.New("text is empty")

	// ErrTooLong is returned when a message exceeds the maximum configured
	// length limit.
	ErrTooLong = errors.New("text too long")

	// ErrSameMember is returned when a conversation is requested between a
	// user and themselves.
	ErrSameMember = errors.New("conversation requires two distinct members")

	// ErrEmptyMember is returned when one of the member ids is blank.
	ErrEmptyMember = errors.New("member id is empty")

	// ErrNotMember is returned when the acting user is not a participant of
	// the conversation.
	ErrNotMember = errors.New("user is not a member of this conversation")

	// ErrForbiddenEdit is returned when a user attempts to edit a message
	// they did not send.
	ErrForbiddenEdit = errors.New("cannot edit another user's message")
)
