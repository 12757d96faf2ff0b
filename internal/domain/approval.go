package domain

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Approval is a destructive MCP tool call waiting for a human answer. The
// MCP process and the desktop app share it through the asset store.
type Approval struct {
	ID          string         `json:"id"`
	Tool        string         `json:"tool"`
	Description string         `json:"description"`
	Metadata    string         `json:"metadata"` // JSON, e.g. the block ids to highlight
	Status      ApprovalStatus `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// ApprovalStore is implemented by every persistent AssetStore.
type ApprovalStore interface {
	CreateApproval(a *Approval) error
	ApprovalStatus(id string) (ApprovalStatus, error)
	PendingApprovals() ([]Approval, error)
	// ResolveApproval answers a pending approval. Answering one that is no
	// longer pending returns an error wrapping the store's not-found error.
	ResolveApproval(id string, approved bool) error
	DeleteApproval(id string) error
}
