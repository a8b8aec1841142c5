// Package model defines the persisted entities of the conversation-memory
// engine: fork trees of conversations, the entries attached to them, and the
// access-control and housekeeping rows that sit alongside them.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Channel distinguishes the two kinds of entry a conversation can hold.
type Channel string

const (
	// ChannelHistory carries the ordinary chat transcript.
	ChannelHistory Channel = "history"
	// ChannelMemory carries agent-authored memory state, scoped per client
	// and versioned by epoch.
	ChannelMemory Channel = "memory"
)

// AccessLevel is a point on the reader < writer < manager < owner lattice.
type AccessLevel string

const (
	AccessLevelReader  AccessLevel = "reader"
	AccessLevelWriter  AccessLevel = "writer"
	AccessLevelManager AccessLevel = "manager"
	AccessLevelOwner   AccessLevel = "owner"
)

var accessRanks = map[AccessLevel]int{
	AccessLevelReader:  1,
	AccessLevelWriter:  2,
	AccessLevelManager: 3,
	AccessLevelOwner:   4,
}

// IsAtLeast reports whether a sits at or above level on the lattice. An
// unrecognized AccessLevel ranks below reader and satisfies nothing.
func (a AccessLevel) IsAtLeast(level AccessLevel) bool {
	return accessRanks[a] >= accessRanks[level]
}

// ConversationListMode selects which conversations of a fork tree a listing
// call returns.
type ConversationListMode string

const (
	// ListModeAll returns every conversation in the group.
	ListModeAll ConversationListMode = "all"
	// ListModeRoots returns only the group's root conversation.
	ListModeRoots ConversationListMode = "roots"
	// ListModeLatestFork returns, per group, the conversation with the most
	// recent activity.
	ListModeLatestFork ConversationListMode = "latest-fork"
)

// ConversationGroup is the fork tree's identity. All conversations that
// share ancestry — the root plus every fork descending from it — belong to
// the same group and are deleted together.
type ConversationGroup struct {
	ID        uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	CreatedAt time.Time  `json:"createdAt" gorm:"not null;default:now()"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func (ConversationGroup) TableName() string { return "conversation_groups" }

// Conversation is one node of a fork tree. A root conversation's ID equals
// its group's ID; a forked conversation records where in its parent's entry
// sequence it branched off.
type Conversation struct {
	ID                     uuid.UUID              `json:"id" gorm:"primaryKey;type:uuid"`
	Title                  []byte                 `json:"-" gorm:"type:bytea"` // MSEH-encrypted
	OwnerUserID            string                 `json:"ownerUserId" gorm:"not null"`
	Metadata               map[string]interface{} `json:"metadata" gorm:"type:jsonb;serializer:json;not null;default:'{}'"`
	ConversationGroupID    uuid.UUID              `json:"-" gorm:"not null;type:uuid"`
	ConversationGroup      *ConversationGroup     `json:"-" gorm:"foreignKey:ConversationGroupID"`
	ForkedAtEntryID        *uuid.UUID             `json:"forkedAtEntryId,omitempty" gorm:"type:uuid"`
	ForkedAtConversationID *uuid.UUID             `json:"forkedAtConversationId,omitempty" gorm:"type:uuid"`
	CreatedAt              time.Time              `json:"createdAt" gorm:"not null;default:now()"`
	UpdatedAt              time.Time              `json:"updatedAt" gorm:"not null;default:now()"`
	VectorizedAt           *time.Time             `json:"vectorizedAt,omitempty"`
	DeletedAt              *time.Time             `json:"deletedAt,omitempty"`
}

func (Conversation) TableName() string { return "conversations" }

// IsRoot reports whether this conversation is the root of its fork tree.
func (c Conversation) IsRoot() bool {
	return c.ForkedAtConversationID == nil
}

// ConversationMembership grants a user an AccessLevel on every conversation
// of a group. Exactly one membership row per group holds AccessLevelOwner.
type ConversationMembership struct {
	ConversationGroupID uuid.UUID   `json:"-" gorm:"primaryKey;type:uuid"`
	UserID              string      `json:"userId" gorm:"primaryKey"`
	AccessLevel         AccessLevel `json:"accessLevel" gorm:"not null"`
	CreatedAt           time.Time   `json:"createdAt" gorm:"not null;default:now()"`
}

func (ConversationMembership) TableName() string { return "conversation_memberships" }

// Entry is a single unit of conversation content: a history turn, or an
// agent's memory snapshot for one client at one epoch.
type Entry struct {
	ID                  uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	ConversationID      uuid.UUID  `json:"conversationId" gorm:"not null;type:uuid"`
	ConversationGroupID uuid.UUID  `json:"-" gorm:"primaryKey;type:uuid"`
	UserID              *string    `json:"userId,omitempty"`
	ClientID            *string    `json:"clientId,omitempty"`
	Channel             Channel    `json:"channel" gorm:"not null"`
	Epoch               *int64     `json:"epoch,omitempty"`
	ContentType         string     `json:"contentType" gorm:"not null"`
	Content             []byte     `json:"-" gorm:"type:bytea;not null"` // MSEH-encrypted
	IndexedContent      *string    `json:"indexedContent,omitempty"`
	IndexedAt           *time.Time `json:"indexedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt" gorm:"not null;default:now()"`
}

func (Entry) TableName() string { return "entries" }

// MarshalJSON emits the entry with its decrypted Content as a raw JSON
// value. Content carries json:"-" so GORM scans never surface ciphertext by
// accident; callers that have already decrypted it (the cache, in
// particular) need it back in the wire form.
func (e Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	aux := struct {
		alias
		Content json.RawMessage `json:"content"`
	}{alias: alias(e)}

	switch {
	case len(e.Content) == 0:
		// leave aux.Content nil
	case json.Valid(e.Content):
		aux.Content = e.Content
	default:
		aux.Content, _ = json.Marshal(string(e.Content))
	}
	return json.Marshal(aux)
}

// UnmarshalJSON is the inverse of MarshalJSON, used to round-trip entries
// through the memory-entries cache without losing Content.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type alias Entry
	aux := struct {
		alias
		Content json.RawMessage `json:"content"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Entry(aux.alias)

	switch {
	case len(aux.Content) == 0, string(aux.Content) == "null":
		e.Content = nil
	case aux.Content[0] == '"':
		var s string
		if err := json.Unmarshal(aux.Content, &s); err == nil {
			e.Content = []byte(s)
			return nil
		}
		e.Content = append([]byte(nil), aux.Content...)
	default:
		e.Content = append([]byte(nil), aux.Content...)
	}
	return nil
}

// OwnershipTransfer is a pending handoff of a group's owner membership to
// another member. At most one row may exist per group at a time.
type OwnershipTransfer struct {
	ID                  uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ConversationGroupID uuid.UUID `json:"-" gorm:"not null;type:uuid"`
	FromUserID          string    `json:"fromUserId" gorm:"not null"`
	ToUserID            string    `json:"toUserId" gorm:"not null"`
	CreatedAt           time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

func (OwnershipTransfer) TableName() string { return "conversation_ownership_transfers" }

// Task is a unit of deferred background work (vector-store cleanup after an
// eviction, currently the only task type the engine schedules).
type Task struct {
	ID         uuid.UUID              `json:"id" gorm:"primaryKey;type:uuid"`
	TaskName   *string                `json:"taskName,omitempty" gorm:"unique"`
	TaskType   string                 `json:"taskType" gorm:"not null"`
	TaskBody   map[string]interface{} `json:"taskBody" gorm:"type:jsonb;serializer:json;not null"`
	CreatedAt  time.Time              `json:"createdAt" gorm:"not null;default:now()"`
	RetryAt    time.Time              `json:"retryAt" gorm:"not null;default:now()"`
	LastError  *string                `json:"lastError,omitempty"`
	RetryCount int                    `json:"retryCount" gorm:"not null;default:0"`
}

func (Task) TableName() string { return "tasks" }

// Attachment is metadata for a blob referenced from an entry. The engine
// never touches the blob itself (this module has no attachment-storage
// backend) but owns this row so that deleting a conversation group can
// cascade to it.
type Attachment struct {
	ID                  uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	ConversationGroupID *uuid.UUID `json:"-" gorm:"type:uuid"`
	StorageKey          *string    `json:"storageKey,omitempty"`
	Filename            *string    `json:"filename,omitempty"`
	ContentType         string     `json:"contentType" gorm:"not null"`
	Size                *int64     `json:"size,omitempty"`
	SHA256              *string    `json:"sha256,omitempty"`
	UserID              string     `json:"userId" gorm:"not null"`
	EntryID             *uuid.UUID `json:"entryId,omitempty" gorm:"type:uuid"`
	Status              string     `json:"status" gorm:"not null;default:'ready'"`
	CreatedAt           time.Time  `json:"createdAt" gorm:"not null;default:now()"`
	DeletedAt           *time.Time `json:"deletedAt,omitempty"`
}

func (Attachment) TableName() string { return "attachments" }
