package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"canvas/internal/domain"
)

const mongoTimeout = 10 * time.Second

// MongoStore implements domain.AssetStore on a MongoDB database.
type MongoStore struct {
	client      *mongo.Client
	assets      *mongo.Collection
	edges       *mongo.Collection
	aggregators *mongo.Collection
	approvals   *mongo.Collection
}

type assetDoc struct {
	ID        string    `bson:"_id"`
	CanvasID  string    `bson:"canvas_id"`
	Kind      string    `bson:"kind"`
	Platform  string    `bson:"platform"`
	MediaID   string    `bson:"media_id"`
	Title     string    `bson:"title"`
	Source    string    `bson:"source"`
	X         float64   `bson:"x"`
	Y         float64   `bson:"y"`
	Space     string    `bson:"space"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type aggregatorDoc struct {
	ID        string    `bson:"_id"`
	CanvasID  string    `bson:"canvas_id"`
	X         float64   `bson:"x"`
	Y         float64   `bson:"y"`
	CreatedAt time.Time `bson:"created_at"`
}

type approvalDoc struct {
	ID          string    `bson:"_id"`
	Tool        string    `bson:"tool"`
	Description string    `bson:"description"`
	Metadata    string    `bson:"metadata"`
	Status      string    `bson:"status"`
	CreatedAt   time.Time `bson:"created_at"`
}

type edgeDoc struct {
	ID        string    `bson:"_id"`
	CanvasID  string    `bson:"canvas_id"`
	FromID    string    `bson:"from_id"`
	ToID      string    `bson:"to_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// NewMongoStore connects to uri and pings the server before returning.
func NewMongoStore(uri, database string) (*MongoStore, error) {
	if database == "" {
		database = "canvas"
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	return &MongoStore{
		client:      client,
		assets:      db.Collection("assets"),
		edges:       db.Collection("edges"),
		aggregators: db.Collection("aggregators"),
		approvals:   db.Collection("approvals"),
	}, nil
}

func (s *MongoStore) CreateAsset(a *domain.Asset) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if _, err := s.assets.InsertOne(ctx, toAssetDoc(a)); err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

func (s *MongoStore) GetAsset(id string) (*domain.Asset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	var doc assetDoc
	err := s.assets.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get asset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	a := doc.asset()
	return &a, nil
}

func (s *MongoStore) ListAssets(canvasID string) ([]domain.Asset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.assets.Find(ctx, bson.M{"canvas_id": canvasID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	var docs []assetDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	assets := make([]domain.Asset, 0, len(docs))
	for _, d := range docs {
		assets = append(assets, d.asset())
	}
	return assets, nil
}

func (s *MongoStore) UpdateAsset(a *domain.Asset) error {
	a.UpdatedAt = time.Now().UTC()
	return s.update(a.ID, bson.M{
		"kind": string(a.Kind), "platform": string(a.Platform), "media_id": a.MediaID,
		"title": a.Title, "source": a.Source, "x": a.X, "y": a.Y, "space": string(a.Space),
		"updated_at": a.UpdatedAt,
	})
}

func (s *MongoStore) UpdateAssetPosition(id string, x, y float64) error {
	return s.update(id, bson.M{"x": x, "y": y, "updated_at": time.Now().UTC()})
}

func (s *MongoStore) update(id string, set bson.M) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	res, err := s.assets.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("asset %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteAsset(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.assets.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) CreateEdge(e *domain.Edge) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	doc := edgeDoc{ID: e.ID, CanvasID: e.CanvasID, FromID: e.FromID, ToID: e.ToID, CreatedAt: e.CreatedAt.UTC()}
	if _, err := s.edges.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create edge: %w", err)
	}
	return nil
}

func (s *MongoStore) ListEdges(canvasID string) ([]domain.Edge, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.edges.Find(ctx, bson.M{"canvas_id": canvasID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	var docs []edgeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list edges: %w", err)
	}
	edges := make([]domain.Edge, 0, len(docs))
	for _, d := range docs {
		edges = append(edges, domain.Edge{ID: d.ID, CanvasID: d.CanvasID, FromID: d.FromID, ToID: d.ToID, CreatedAt: d.CreatedAt})
	}
	return edges, nil
}

func (s *MongoStore) DeleteEdge(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.edges.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) DeleteEdgesByAsset(assetID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.edges.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"from_id": assetID},
		bson.M{"to_id": assetID},
	}})
	return err
}

func (s *MongoStore) CreateAggregator(a *domain.Aggregator) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	doc := aggregatorDoc{ID: a.ID, CanvasID: a.CanvasID, X: a.X, Y: a.Y, CreatedAt: a.CreatedAt.UTC()}
	if _, err := s.aggregators.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create aggregator: %w", err)
	}
	return nil
}

func (s *MongoStore) ListAggregators(canvasID string) ([]domain.Aggregator, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.aggregators.Find(ctx, bson.M{"canvas_id": canvasID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list aggregators: %w", err)
	}
	var docs []aggregatorDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list aggregators: %w", err)
	}
	out := make([]domain.Aggregator, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Aggregator{ID: d.ID, CanvasID: d.CanvasID, X: d.X, Y: d.Y, CreatedAt: d.CreatedAt})
	}
	return out, nil
}

func (s *MongoStore) UpdateAggregatorPosition(id string, x, y float64) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	res, err := s.aggregators.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"x": x, "y": y}})
	if err != nil {
		return fmt.Errorf("update aggregator position: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("aggregator %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteAggregator(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.aggregators.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ── Approvals ──────────────────────────────────────────────

func (s *MongoStore) CreateApproval(a *domain.Approval) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = domain.ApprovalPending
	}
	doc := approvalDoc{
		ID: a.ID, Tool: a.Tool, Description: a.Description, Metadata: a.Metadata,
		Status: string(a.Status), CreatedAt: a.CreatedAt.UTC(),
	}
	if _, err := s.approvals.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create approval: %w", err)
	}
	return nil
}

func (s *MongoStore) ApprovalStatus(id string) (domain.ApprovalStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	var doc approvalDoc
	err := s.approvals.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", fmt.Errorf("approval %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get approval: %w", err)
	}
	return domain.ApprovalStatus(doc.Status), nil
}

func (s *MongoStore) PendingApprovals() ([]domain.Approval, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.approvals.Find(ctx, bson.M{"status": string(domain.ApprovalPending)}, opts)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	var docs []approvalDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	out := make([]domain.Approval, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.Approval{
			ID: d.ID, Tool: d.Tool, Description: d.Description, Metadata: d.Metadata,
			Status: domain.ApprovalStatus(d.Status), CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

func (s *MongoStore) ResolveApproval(id string, approved bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	status := domain.ApprovalRejected
	if approved {
		status = domain.ApprovalApproved
	}
	res, err := s.approvals.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(domain.ApprovalPending)},
		bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("resolve approval: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("pending approval %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) DeleteApproval(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	_, err := s.approvals.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func toAssetDoc(a *domain.Asset) assetDoc {
	return assetDoc{
		ID: a.ID, CanvasID: a.CanvasID, Kind: string(a.Kind), Platform: string(a.Platform),
		MediaID: a.MediaID, Title: a.Title, Source: a.Source, X: a.X, Y: a.Y, Space: string(a.Space),
		CreatedAt: a.CreatedAt.UTC(), UpdatedAt: a.UpdatedAt,
	}
}

func (d assetDoc) asset() domain.Asset {
	return domain.Asset{
		ID: d.ID, CanvasID: d.CanvasID, Kind: domain.Kind(d.Kind), Platform: domain.Platform(d.Platform),
		MediaID: d.MediaID, Title: d.Title, Source: d.Source, X: d.X, Y: d.Y, Space: domain.Space(d.Space),
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}
