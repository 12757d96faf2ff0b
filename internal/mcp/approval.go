package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"canvas/internal/domain"
)

// ApprovalQueue gates destructive MCP tool calls on a human answer. The MCP
// process runs apart from the desktop app, so a request is written to the
// shared store as a pending approval; the desktop shows it and writes the
// answer back, and Request polls until it sees one.
type ApprovalQueue struct {
	ctx         context.Context
	store       domain.ApprovalStore
	timeout     time.Duration
	poll        time.Duration
	autoApprove bool
}

func NewApprovalQueue(ctx context.Context, store domain.ApprovalStore) *ApprovalQueue {
	return &ApprovalQueue{
		ctx:     ctx,
		store:   store,
		timeout: 120 * time.Second,
		poll:    500 * time.Millisecond,
	}
}

func (q *ApprovalQueue) SetAutoApprove(v bool) { q.autoApprove = v }

func (q *ApprovalQueue) SetTimeout(d time.Duration) { q.timeout = d }

func (q *ApprovalQueue) SetPollInterval(d time.Duration) { q.poll = d }

// Request blocks until the action is approved, rejected or times out.
// metadata is optional JSON with extra context (e.g. block IDs for highlighting).
func (q *ApprovalQueue) Request(tool, description string, metadata ...string) (bool, error) {
	if q.autoApprove {
		return true, nil
	}
	if q.store == nil {
		return false, fmt.Errorf("no approval surface for %s", tool)
	}

	meta := "{}"
	if len(metadata) > 0 && metadata[0] != "" {
		meta = metadata[0]
	}
	a := domain.Approval{
		ID:          uuid.New().String(),
		Tool:        tool,
		Description: description,
		Metadata:    meta,
		Status:      domain.ApprovalPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := q.store.CreateApproval(&a); err != nil {
		return false, fmt.Errorf("insert approval: %w", err)
	}
	defer q.store.DeleteApproval(a.ID)

	deadline := time.NewTimer(q.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			status, err := q.store.ApprovalStatus(a.ID)
			if err != nil {
				// the row is ours until we delete it; a read error is transient
				continue
			}
			switch status {
			case domain.ApprovalApproved:
				return true, nil
			case domain.ApprovalRejected:
				return false, fmt.Errorf("action rejected by user: %s", tool)
			}
		case <-deadline.C:
			return false, fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
		case <-q.ctx.Done():
			return false, errors.New("context cancelled")
		}
	}
}
