package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"canvas/internal/domain"
)

var (
	_ domain.ApprovalStore = (*AssetStore)(nil)
	_ domain.ApprovalStore = (*MongoStore)(nil)
)

// ── Approvals ──────────────────────────────────────────────

func (s *AssetStore) CreateApproval(a *domain.Approval) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = domain.ApprovalPending
	}
	_, err := s.db.exec(
		`INSERT INTO approvals (id, tool, description, metadata, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Tool, a.Description, a.Metadata, a.Status, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create approval: %w", err)
	}
	return nil
}

func (s *AssetStore) ApprovalStatus(id string) (domain.ApprovalStatus, error) {
	var status domain.ApprovalStatus
	err := s.db.queryRow(`SELECT status FROM approvals WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("approval %s: %w", id, ErrNotFound)
	}
	return status, err
}

func (s *AssetStore) PendingApprovals() ([]domain.Approval, error) {
	rows, err := s.db.query(
		`SELECT id, tool, description, metadata, status, created_at FROM approvals WHERE status = ? ORDER BY created_at ASC, id ASC`,
		domain.ApprovalPending,
	)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	defer rows.Close()

	var out []domain.Approval
	for rows.Next() {
		var a domain.Approval
		if err := rows.Scan(&a.ID, &a.Tool, &a.Description, &a.Metadata, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AssetStore) ResolveApproval(id string, approved bool) error {
	status := domain.ApprovalRejected
	if approved {
		status = domain.ApprovalApproved
	}
	res, err := s.db.exec(`UPDATE approvals SET status = ? WHERE id = ? AND status = ?`, status, id, domain.ApprovalPending)
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	return expectRow(res, "pending approval", id)
}

func (s *AssetStore) DeleteApproval(id string) error {
	_, err := s.db.exec(`DELETE FROM approvals WHERE id = ?`, id)
	return err
}
