package domain

import "time"

// TokenStatus enumerates replacement confirmation token states.
type TokenStatus string

const (
	TokenPending   TokenStatus = "pending"
	TokenConfirmed TokenStatus = "confirmed"
	TokenDeclined  TokenStatus = "declined"
)

// ReplacementToken is a single-use credential bound to exactly one
// (leave requisition, replacement user) pair. It carries its own authority:
// resolving it requires no authenticated session.
type ReplacementToken struct {
	ID                string
	Token             string
	RequisitionID     string
	ReplacementUserID string
	Status            TokenStatus
	ExpiresAt         time.Time
	ResolvedAt        *time.Time
	CreatedAt         time.Time
}

// Expired reports whether the token can no longer be resolved due to age.
func (t *ReplacementToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// PendingConfirmation is the view of an outstanding confirmation addressed
// to a replacement user, surfaced on login.
type PendingConfirmation struct {
	Token       string
	Requisition Requisition
}
