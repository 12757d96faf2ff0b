package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"canvas/internal/domain"
)

// AssetStore implements domain.AssetStore on a SQL database.
type AssetStore struct {
	db *DB
}

func NewAssetStore(db *DB) *AssetStore {
	return &AssetStore{db: db}
}

const assetColumns = `id, canvas_id, kind, platform, media_id, title, source, x, y, space, created_at, updated_at`

func (s *AssetStore) CreateAsset(a *domain.Asset) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := s.db.exec(
		`INSERT INTO assets (`+assetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CanvasID, a.Kind, a.Platform, a.MediaID, a.Title, a.Source, a.X, a.Y, a.Space, a.CreatedAt.UTC(), a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

func (s *AssetStore) GetAsset(id string) (*domain.Asset, error) {
	a := &domain.Asset{}
	err := s.db.queryRow(`SELECT `+assetColumns+` FROM assets WHERE id = ?`, id).
		Scan(&a.ID, &a.CanvasID, &a.Kind, &a.Platform, &a.MediaID, &a.Title, &a.Source, &a.X, &a.Y, &a.Space, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return a, nil
}

func (s *AssetStore) ListAssets(canvasID string) ([]domain.Asset, error) {
	rows, err := s.db.query(
		`SELECT `+assetColumns+` FROM assets WHERE canvas_id = ? ORDER BY created_at ASC, id ASC`, canvasID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.Asset
	for rows.Next() {
		var a domain.Asset
		if err := rows.Scan(&a.ID, &a.CanvasID, &a.Kind, &a.Platform, &a.MediaID, &a.Title, &a.Source, &a.X, &a.Y, &a.Space, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *AssetStore) UpdateAsset(a *domain.Asset) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := s.db.exec(
		`UPDATE assets SET kind=?, platform=?, media_id=?, title=?, source=?, x=?, y=?, space=?, updated_at=? WHERE id=?`,
		a.Kind, a.Platform, a.MediaID, a.Title, a.Source, a.X, a.Y, a.Space, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	return expectRow(res, "asset", a.ID)
}

func (s *AssetStore) UpdateAssetPosition(id string, x, y float64) error {
	res, err := s.db.exec(`UPDATE assets SET x=?, y=?, updated_at=? WHERE id=?`, x, y, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update asset position: %w", err)
	}
	return expectRow(res, "asset", id)
}

func (s *AssetStore) DeleteAsset(id string) error {
	_, err := s.db.exec(`DELETE FROM assets WHERE id = ?`, id)
	return err
}

// ── Edges ──────────────────────────────────────────────────

func (s *AssetStore) CreateEdge(e *domain.Edge) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.exec(
		`INSERT INTO edges (id, canvas_id, from_id, to_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.CanvasID, e.FromID, e.ToID, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create edge: %w", err)
	}
	return nil
}

func (s *AssetStore) ListEdges(canvasID string) ([]domain.Edge, error) {
	rows, err := s.db.query(
		`SELECT id, canvas_id, from_id, to_id, created_at FROM edges WHERE canvas_id = ? ORDER BY created_at ASC, id ASC`, canvasID,
	)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	defer rows.Close()

	var edges []domain.Edge
	for rows.Next() {
		var e domain.Edge
		if err := rows.Scan(&e.ID, &e.CanvasID, &e.FromID, &e.ToID, &e.CreatedAt); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *AssetStore) DeleteEdge(id string) error {
	_, err := s.db.exec(`DELETE FROM edges WHERE id = ?`, id)
	return err
}

func (s *AssetStore) DeleteEdgesByAsset(assetID string) error {
	_, err := s.db.exec(`DELETE FROM edges WHERE from_id = ? OR to_id = ?`, assetID, assetID)
	return err
}

// ── Aggregators ────────────────────────────────────────────

func (s *AssetStore) CreateAggregator(a *domain.Aggregator) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.exec(
		`INSERT INTO aggregators (id, canvas_id, x, y, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.CanvasID, a.X, a.Y, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create aggregator: %w", err)
	}
	return nil
}

func (s *AssetStore) ListAggregators(canvasID string) ([]domain.Aggregator, error) {
	rows, err := s.db.query(
		`SELECT id, canvas_id, x, y, created_at FROM aggregators WHERE canvas_id = ? ORDER BY created_at ASC, id ASC`, canvasID,
	)
	if err != nil {
		return nil, fmt.Errorf("list aggregators: %w", err)
	}
	defer rows.Close()

	var out []domain.Aggregator
	for rows.Next() {
		var a domain.Aggregator
		if err := rows.Scan(&a.ID, &a.CanvasID, &a.X, &a.Y, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *AssetStore) UpdateAggregatorPosition(id string, x, y float64) error {
	res, err := s.db.exec(`UPDATE aggregators SET x=?, y=? WHERE id=?`, x, y, id)
	if err != nil {
		return fmt.Errorf("update aggregator position: %w", err)
	}
	return expectRow(res, "aggregator", id)
}

func (s *AssetStore) DeleteAggregator(id string) error {
	_, err := s.db.exec(`DELETE FROM aggregators WHERE id = ?`, id)
	return err
}

func (s *AssetStore) Close() error {
	return s.db.Close()
}

func expectRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
