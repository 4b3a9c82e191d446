package model

import (
	"time"
)

// SyncAction identifies the mutation a sync record describes.
type SyncAction string

const (
	ActionAdd            SyncAction = "add"
	ActionEdit           SyncAction = "edit"
	ActionDelete         SyncAction = "delete"
	ActionMoveSpace      SyncAction = "move-space"
	ActionShare          SyncAction = "share"
	ActionUnshare        SyncAction = "unshare"
	ActionSetOwner       SyncAction = "set-owner"
	ActionChangePassword SyncAction = "change-password"
)

// Sync record item types. The set is open: handlers are registered per type
// at startup, but these are the types the service ships with.
const (
	TypeUser     = "user"
	TypeSpace    = "space"
	TypeBoard    = "board"
	TypeNote     = "note"
	TypeKeychain = "keychain"
	TypeInvite   = "invite"
)

// SyncRecord is one entry in the append-only sync ledger. Records are never
// updated or deleted; ID is the global ordering key. Data is not persisted;
// it is re-hydrated from the live entity tables when the record is delivered.
type SyncRecord struct {
	ID        int64      `json:"id"        gorm:"primaryKey;autoIncrement"`
	UserID    int64      `json:"user_id"   gorm:"not null;index"` // creator, not recipient
	Type      string     `json:"type"      gorm:"not null"`
	ItemID    string     `json:"item_id"   gorm:"not null"`
	Action    SyncAction `json:"action"    gorm:"not null"`
	CreatedAt time.Time  `json:"-"         gorm:"not null"`

	Data map[string]any `json:"data,omitempty" gorm:"-"`
}

func (SyncRecord) TableName() string { return "sync" }

// SyncUser links a sync record to one recipient. Rows are written in the
// same transaction as their SyncRecord.
type SyncUser struct {
	SyncID int64 `json:"sync_id" gorm:"primaryKey;autoIncrement:false"`
	UserID int64 `json:"user_id" gorm:"primaryKey;autoIncrement:false;index"`
}

func (SyncUser) TableName() string { return "sync_users" }

// User is an account. Data is the client-encrypted profile blob; AuthToken
// is the opaque credential presented on requests (hashing happens upstream).
type User struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	Email     string    `json:"email"      gorm:"not null;uniqueIndex"`
	AuthToken string    `json:"-"          gorm:"not null;index"`
	Confirmed bool      `json:"confirmed"  gorm:"not null;default:false"`
	Data      []byte    `json:"-"          gorm:"type:jsonb"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Space is the top-level sharing container. IDs are client-generated.
type Space struct {
	ID        string    `json:"id"      gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"not null;index"` // current owner
	Data      []byte    `json:"-"       gorm:"type:jsonb"`
	CreatedAt time.Time `json:"-"       gorm:"not null"`
	UpdatedAt time.Time `json:"-"       gorm:"not null"`
}

func (Space) TableName() string { return "spaces" }

// SpaceMember links a user to a space with a role.
type SpaceMember struct {
	ID        int64     `json:"id"       gorm:"primaryKey;autoIncrement"`
	SpaceID   string    `json:"space_id" gorm:"not null;uniqueIndex:idx_space_user"`
	UserID    int64     `json:"user_id"  gorm:"not null;uniqueIndex:idx_space_user;index"`
	Role      Role      `json:"role"     gorm:"not null"`
	CreatedAt time.Time `json:"-"        gorm:"not null"`
}

func (SpaceMember) TableName() string { return "spaces_users" }

// Board groups notes within a space.
type Board struct {
	ID        string    `json:"id"       gorm:"primaryKey"`
	SpaceID   string    `json:"space_id" gorm:"not null;index"`
	UserID    int64     `json:"user_id"  gorm:"not null"`
	Data      []byte    `json:"-"        gorm:"type:jsonb"`
	CreatedAt time.Time `json:"-"        gorm:"not null"`
	UpdatedAt time.Time `json:"-"        gorm:"not null"`
}

func (Board) TableName() string { return "boards" }

// Note is an encrypted note blob within a space, optionally on a board.
type Note struct {
	ID        string    `json:"id"       gorm:"primaryKey"`
	SpaceID   string    `json:"space_id" gorm:"not null;index"`
	BoardID   string    `json:"board_id" gorm:"index"`
	UserID    int64     `json:"user_id"  gorm:"not null"`
	Data      []byte    `json:"-"        gorm:"type:jsonb"`
	CreatedAt time.Time `json:"-"        gorm:"not null"`
	UpdatedAt time.Time `json:"-"        gorm:"not null"`
}

func (Note) TableName() string { return "notes" }

// KeychainEntry holds a user's encrypted key for one item. Owned by a user,
// never by a space.
type KeychainEntry struct {
	ID        string    `json:"id"      gorm:"primaryKey"`
	UserID    int64     `json:"user_id" gorm:"not null;index"`
	ItemID    string    `json:"item_id" gorm:"not null;index"`
	Data      []byte    `json:"-"       gorm:"type:jsonb"`
	CreatedAt time.Time `json:"-"       gorm:"not null"`
	UpdatedAt time.Time `json:"-"       gorm:"not null"`
}

func (KeychainEntry) TableName() string { return "keychain" }

// Invite is a pending space invitation, addressed by email. The server-side
// token lives inside Data and is stripped by the invite clean handler before
// any record leaves the server.
type Invite struct {
	ID         string    `json:"id"           gorm:"primaryKey"`
	SpaceID    string    `json:"space_id"     gorm:"not null;index"`
	FromUserID int64     `json:"from_user_id" gorm:"not null"`
	ToEmail    string    `json:"to_user"      gorm:"not null;index"`
	Data       []byte    `json:"-"            gorm:"type:jsonb"`
	CreatedAt  time.Time `json:"-"            gorm:"not null"`
}

func (Invite) TableName() string { return "spaces_invites" }
