// Package postgres reads threat, model and audit aggregates from the
// relational store and records analysis summaries in llm_test_results.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/omnisec-monitor/internal/model"
)

// Store wraps a pgx pool. All time windows are half-open [start, end).
type Store struct {
	db *pgxpool.Pool
}

// New creates a Store.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// ThreatCounts groups security_threats by type and severity with the number
// of resolved rows in each group.
func (s *Store) ThreatCounts(ctx context.Context, orgID string, w model.TimeWindow) ([]model.ThreatCountRow, error) {
	query := `
		SELECT threat_type, severity, COUNT(*),
		       COUNT(*) FILTER (WHERE is_resolved)
		FROM security_threats
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY threat_type, severity
		ORDER BY MIN(created_at)`

	rows, err := s.db.Query(ctx, query, orgID, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("query threat counts: %w", err)
	}
	defer rows.Close()

	var out []model.ThreatCountRow
	for rows.Next() {
		var r model.ThreatCountRow
		if err := rows.Scan(&r.ThreatType, &r.Severity, &r.Count, &r.Resolved); err != nil {
			return nil, fmt.Errorf("scan threat counts: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ThreatTrends groups security_threats by type and severity with the
// resolved fraction of each group. An empty severity does not filter.
func (s *Store) ThreatTrends(ctx context.Context, orgID string, w model.TimeWindow, severity model.Severity) ([]model.ThreatTrendRow, error) {
	query := `
		SELECT threat_type, severity, COUNT(*),
		       AVG(CASE WHEN is_resolved THEN 1.0 ELSE 0.0 END)
		FROM security_threats
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3
		  AND ($4 = '' OR severity = $4)
		GROUP BY threat_type, severity
		ORDER BY MIN(created_at)`

	rows, err := s.db.Query(ctx, query, orgID, w.Start, w.End, string(severity))
	if err != nil {
		return nil, fmt.Errorf("query threat trends: %w", err)
	}
	defer rows.Close()

	var out []model.ThreatTrendRow
	for rows.Next() {
		var r model.ThreatTrendRow
		if err := rows.Scan(&r.ThreatType, &r.Severity, &r.Count, &r.ResolutionRate); err != nil {
			return nil, fmt.Errorf("scan threat trends: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListModels returns the organization's models, or just modelID when set.
func (s *Store) ListModels(ctx context.Context, orgID, modelID string) ([]model.ModelRecord, error) {
	query := `
		SELECT id::text, organization_id, name, type, version, is_active
		FROM ai_models
		WHERE organization_id = $1 AND ($2 = '' OR id::text = $2)
		ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, orgID, modelID)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	var out []model.ModelRecord
	for rows.Next() {
		var m model.ModelRecord
		if err := rows.Scan(&m.ID, &m.OrganizationID, &m.Name, &m.Type, &m.Version, &m.IsActive); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ModelCounts counts all and active models of an organization.
func (s *Store) ModelCounts(ctx context.Context, orgID string) (model.ModelCounts, error) {
	var c model.ModelCounts
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM ai_models WHERE organization_id = $1`,
		orgID,
	).Scan(&c.Total, &c.Active)
	if err != nil {
		return model.ModelCounts{}, fmt.Errorf("count models: %w", err)
	}
	return c, nil
}

// UserActivity counts distinct users and actions in audit_logs.
func (s *Store) UserActivity(ctx context.Context, orgID string, w model.TimeWindow) (model.UserActivity, error) {
	var a model.UserActivity
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(DISTINCT user_id), COUNT(*)
		FROM audit_logs
		WHERE organization_id = $1 AND created_at >= $2 AND created_at < $3`,
		orgID, w.Start, w.End,
	).Scan(&a.ActiveUsers, &a.TotalActions)
	if err != nil {
		return model.UserActivity{}, fmt.Errorf("count user activity: %w", err)
	}
	return a, nil
}

// ThreatStatus counts all and unresolved threats of an organization.
func (s *Store) ThreatStatus(ctx context.Context, orgID string) (model.ThreatStatus, error) {
	var st model.ThreatStatus
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_resolved) FROM security_threats WHERE organization_id = $1`,
		orgID,
	).Scan(&st.Total, &st.Active)
	if err != nil {
		return model.ThreatStatus{}, fmt.Errorf("count threat status: %w", err)
	}
	return st, nil
}

// AuditLogCount counts audit log rows created at or after since.
func (s *Store) AuditLogCount(ctx context.Context, orgID string, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_logs WHERE organization_id = $1 AND created_at >= $2`,
		orgID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit logs: %w", err)
	}
	return n, nil
}

// StoreAnalysis records the security assessment of an analysis run.
func (s *Store) StoreAnalysis(ctx context.Context, r *model.AnalysisResult) error {
	metrics, err := json.Marshal(r.SecurityAssessment)
	if err != nil {
		return fmt.Errorf("marshal security assessment: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO llm_test_results (organization_id, model_id, test_type, status, metrics, completed_at)
		VALUES ($1, $2, $3, 'completed', $4, $5)`,
		r.OrganizationID, r.ModelID, r.AnalysisType, metrics, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert llm_test_results: %w", err)
	}
	return nil
}

// SeedThreat is one security_threats row written by cmd/seed.
type SeedThreat struct {
	OrganizationID string
	ModelID        string
	ThreatType     string
	Severity       model.Severity
	Resolved       bool
	CreatedAt      time.Time
}

// InsertModel adds a model row and returns its id.
func (s *Store) InsertModel(ctx context.Context, m model.ModelRecord) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO ai_models (organization_id, name, type, version, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text`,
		m.OrganizationID, m.Name, m.Type, m.Version, m.IsActive,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert model: %w", err)
	}
	return id, nil
}

// InsertThreats bulk-loads threat rows in one batch.
func (s *Store) InsertThreats(ctx context.Context, threats []SeedThreat) error {
	batch := &pgx.Batch{}
	for _, t := range threats {
		var modelID any
		if t.ModelID != "" {
			modelID = t.ModelID
		}
		batch.Queue(`
			INSERT INTO security_threats (organization_id, model_id, threat_type, severity, is_resolved, created_at)
			VALUES ($1, $2::uuid, $3, $4, $5, $6)`,
			t.OrganizationID, modelID, t.ThreatType, t.Severity, t.Resolved, t.CreatedAt,
		)
	}
	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert threats: %w", err)
	}
	return nil
}

// InsertAuditLog adds one audit_logs row.
func (s *Store) InsertAuditLog(ctx context.Context, orgID, userID, action string, at time.Time) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (organization_id, user_id, action, created_at) VALUES ($1, $2, $3, $4)`,
		orgID, userID, action, at,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
