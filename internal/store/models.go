package store

import (
	"encoding/json"
	"time"
)

type User struct {
	ID                    string
	DisplayName           string
	Email                 string
	PasswordHash          string
	Role                  string
	IsEmailVerified       bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Worksheet is the persisted document record. Blocks are stored as a
// JSONB array in document order; array position is the only ordering
// key.
type Worksheet struct {
	ID             string
	OwnerID        string
	Title          string
	Subject        string
	Grade          string
	LayoutMode     string
	GlobalFontSize int
	Blocks         json.RawMessage
	UpdatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RevisionInfo describes one commit in a worksheet's history.
type RevisionInfo struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}
