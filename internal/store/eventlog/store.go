// Package eventlog reads detection and interaction records from the MongoDB
// event log and appends analysis results and performance metrics to it.
package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	ThreatDetections   = "threat_detection_logs"
	ModelInteractions  = "model_interactions"
	SecurityEvents     = "security_events"
	AnalysisResults    = "model_analysis_results"
	PerformanceMetrics = "performance_metrics"
)

// Store wraps a MongoDB database handle.
type Store struct {
	db *mongo.Database
}

// New creates a Store.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Connect dials uri and returns the named database. The caller owns the
// returned client and must Disconnect it.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(database), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// FindThreats returns every detection matching q.
func (s *Store) FindThreats(ctx context.Context, q model.ThreatQuery) ([]model.ThreatRecord, error) {
	cur, err := s.db.Collection(ThreatDetections).Find(ctx, threatFilter(q))
	if err != nil {
		return nil, fmt.Errorf("find threats: %w", err)
	}
	out := []model.ThreatRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode threats: %w", err)
	}
	return out, nil
}

// FindInteractions returns every interaction matching q.
func (s *Store) FindInteractions(ctx context.Context, q model.InteractionQuery) ([]model.InteractionRecord, error) {
	cur, err := s.db.Collection(ModelInteractions).Find(ctx, interactionFilter(q))
	if err != nil {
		return nil, fmt.Errorf("find interactions: %w", err)
	}
	out := []model.InteractionRecord{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode interactions: %w", err)
	}
	return out, nil
}

// CountSecurityEvents counts security_events documents in w.
func (s *Store) CountSecurityEvents(ctx context.Context, orgID string, w model.TimeWindow) (int64, error) {
	n, err := s.db.Collection(SecurityEvents).CountDocuments(ctx, windowFilter(orgID, w))
	if err != nil {
		return 0, fmt.Errorf("count security events: %w", err)
	}
	return n, nil
}

// CountThreatDetections counts threat_detection_logs documents in w.
func (s *Store) CountThreatDetections(ctx context.Context, orgID string, w model.TimeWindow) (int64, error) {
	n, err := s.db.Collection(ThreatDetections).CountDocuments(ctx, windowFilter(orgID, w))
	if err != nil {
		return 0, fmt.Errorf("count threat detections: %w", err)
	}
	return n, nil
}

// StoreAnalysis appends a full analysis result.
func (s *Store) StoreAnalysis(ctx context.Context, r *model.AnalysisResult) error {
	_, err := s.db.Collection(AnalysisResults).InsertOne(ctx, bson.M{
		"organization_id": r.OrganizationID,
		"model_id":        r.ModelID,
		"timestamp":       time.Now().UTC(),
		"result":          r,
	})
	if err != nil {
		return fmt.Errorf("insert analysis result: %w", err)
	}
	return nil
}

// StorePerformanceMetric appends a collected metric snapshot.
func (s *Store) StorePerformanceMetric(ctx context.Context, m model.PerformanceMetric) error {
	if _, err := s.db.Collection(PerformanceMetrics).InsertOne(ctx, m); err != nil {
		return fmt.Errorf("insert performance metric: %w", err)
	}
	return nil
}

// InsertThreats bulk-loads detections. Used by cmd/seed.
func (s *Store) InsertThreats(ctx context.Context, threats []model.ThreatRecord) error {
	return insertMany(ctx, s.db.Collection(ThreatDetections), threats)
}

// InsertInteractions bulk-loads interactions. Used by cmd/seed.
func (s *Store) InsertInteractions(ctx context.Context, interactions []model.InteractionRecord) error {
	return insertMany(ctx, s.db.Collection(ModelInteractions), interactions)
}

// SecurityEvent is a raw security_events document.
type SecurityEvent struct {
	OrganizationID string    `bson:"organization_id"`
	EventType      string    `bson:"event_type"`
	Timestamp      time.Time `bson:"timestamp"`
}

// InsertSecurityEvents bulk-loads security events. Used by cmd/seed.
func (s *Store) InsertSecurityEvents(ctx context.Context, events []SecurityEvent) error {
	return insertMany(ctx, s.db.Collection(SecurityEvents), events)
}

func insertMany[T any](ctx context.Context, coll *mongo.Collection, items []T) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]any, len(items))
	for i := range items {
		docs[i] = items[i]
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	return nil
}

func threatFilter(q model.ThreatQuery) bson.M {
	f := bson.M{"organization_id": q.OrganizationID}
	if q.Window != nil {
		f["timestamp"] = bson.M{"$gte": q.Window.Start, "$lt": q.Window.End}
	}
	if q.Severity != "" {
		f["severity"] = string(q.Severity)
	}
	if q.ModelID != "" {
		f["model_id"] = q.ModelID
	}
	return f
}

func interactionFilter(q model.InteractionQuery) bson.M {
	f := bson.M{"organization_id": q.OrganizationID}
	if q.Window != nil {
		f["timestamp"] = bson.M{"$gte": q.Window.Start, "$lt": q.Window.End}
	}
	if q.ModelID != "" {
		f["model_id"] = q.ModelID
	}
	return f
}

func windowFilter(orgID string, w model.TimeWindow) bson.M {
	return threatFilter(model.ThreatQuery{OrganizationID: orgID, Window: &w})
}
