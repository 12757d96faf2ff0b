package domain

import "time"

// Edge is a directed link between two graph nodes.
type Edge struct {
	ID        string    `json:"id"`
	CanvasID  string    `json:"canvasId"`
	FromID    string    `json:"fromId"`
	ToID      string    `json:"toId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Asset is the persisted record of a block, owned by the host.
type Asset struct {
	ID        string    `json:"id"`
	CanvasID  string    `json:"canvasId"`
	Kind      Kind      `json:"kind"`
	Platform  Platform  `json:"platform"`
	MediaID   string    `json:"mediaId"`
	Title     string    `json:"title"`
	Source    string    `json:"source"` // URL, text or file name
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Space     Space     `json:"space"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Aggregator is the persisted record of a graph aggregator node. Aggregators
// are not blocks, so they have their own table.
type Aggregator struct {
	ID        string    `json:"id"`
	CanvasID  string    `json:"canvasId"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	CreatedAt time.Time `json:"createdAt"`
}

// AssetStore is the persistence collaborator the host writes asset records to.
type AssetStore interface {
	CreateAsset(a *Asset) error
	GetAsset(id string) (*Asset, error)
	ListAssets(canvasID string) ([]Asset, error)
	UpdateAsset(a *Asset) error
	UpdateAssetPosition(id string, x, y float64) error
	DeleteAsset(id string) error

	CreateEdge(e *Edge) error
	ListEdges(canvasID string) ([]Edge, error)
	DeleteEdge(id string) error
	DeleteEdgesByAsset(assetID string) error

	CreateAggregator(a *Aggregator) error
	ListAggregators(canvasID string) ([]Aggregator, error)
	UpdateAggregatorPosition(id string, x, y float64) error
	DeleteAggregator(id string) error

	Close() error
}
