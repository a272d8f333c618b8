// Package domain defines the persistence models for conversations, messages,
// and the minimal user directory. These types are mapped with GORM and form
// the core data layer of the social backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Conversation represents a private thread between exactly two users.
// The member pair is stored canonically ordered (MemberLow < MemberHigh) and
// covered by a unique index, so find-or-create is a true atomic upsert:
// concurrent creations for the same pair collapse onto one row regardless of
// argument order.
//
// LatestText/LatestSenderID/Checked are a denormalized summary of the most
// recent message. They are written by a separate call after the message
// insert, so under partial failure they can lag the message log. Clients
// must treat the summary as advisory; the message log is authoritative.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - MemberLow / MemberHigh: the two participant ids, lexicographically ordered.
//   - LatestText / LatestSenderID: summary of the latest message, may be empty.
//   - Checked: false while the latest message is unreviewed by the recipient.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Conversation struct {
	ID             string         `json:"id"               gorm:"type:char(36);primaryKey"`
	MemberLow      string         `json:"member_low"       gorm:"type:varchar(64);not null;uniqueIndex:ux_conv_members,priority:1"`
	MemberHigh     string         `json:"member_high"      gorm:"type:varchar(64);not null;uniqueIndex:ux_conv_members,priority:2"`
	LatestText     string         `json:"latest_text"      gorm:"type:text"`
	LatestSenderID string         `json:"latest_sender_id" gorm:"type:varchar(64)"`
	Checked        bool           `json:"checked"          gorm:"not null;default:true"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"                gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Members returns the member pair in canonical order.
func (c Conversation) Members() [2]string { return [2]string{c.MemberLow, c.MemberHigh} }

// HasMember reports whether userID is one of the two participants.
func (c Conversation) HasMember(userID string) bool {
	return userID == c.MemberLow || userID == c.MemberHigh
}

// Message represents a single append-only entry in a conversation. Messages
// are created once, optionally amended by their sender, and never reordered.
//
// There is deliberately no FK cascade from conversations: deleting a
// conversation orphans its messages. Orphans are acceptable because messages
// are only ever queried by a conversation id the caller already holds.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	SenderID       string         `json:"sender_id"       gorm:"type:varchar(64);not null"`
	Text           string         `json:"text"            gorm:"type:text;not null"`
	CreatedAt      time.Time      `json:"created_at"      gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// User is the slice of the account record this service reads. Account
// lifecycle (registration, profiles, friends) is owned elsewhere; the relay
// only needs display data when forwarding notifications.
type User struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	FirstName string    `json:"first_name" gorm:"type:varchar(64);not null"`
	LastName  string    `json:"last_name"  gorm:"type:varchar(64)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
