package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resolvr/backend/internal/models"
)

//go:embed schema.sql
var schema string

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const complaintColumns = `id, customer_name, customer_phone, description,
	sentiment_score, urgency_score, politeness_score, priority_score,
	status, created_at, resolved_at, resolution_seconds, assigned_agent`

func scanComplaint(row pgx.Row) (models.Complaint, error) {
	var c models.Complaint
	err := row.Scan(&c.ID, &c.CustomerName, &c.CustomerPhone, &c.Description,
		&c.Sentiment, &c.Urgency, &c.Politeness, &c.Priority,
		&c.Status, &c.CreatedAt, &c.ResolvedAt, &c.ResolutionTime, &c.AssignedAgent)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Complaint{}, models.ErrNotFound
	}
	return c, err
}

func collectComplaints(rows pgx.Rows) ([]models.Complaint, error) {
	defer rows.Close()
	out := []models.Complaint{}
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateComplaint(ctx context.Context, c models.Complaint) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO complaints (`+complaintColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, c.ID, c.CustomerName, c.CustomerPhone, c.Description,
		c.Sentiment, c.Urgency, c.Politeness, c.Priority,
		c.Status, c.CreatedAt, c.ResolvedAt, c.ResolutionTime, c.AssignedAgent)
	return err
}

func (s *Store) GetComplaint(ctx context.Context, id string) (models.Complaint, error) {
	return scanComplaint(s.Pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id))
}

func (s *Store) ListComplaints(ctx context.Context, f models.ComplaintFilter) ([]models.Complaint, error) {
	limit, offset := clampPage(f.Limit, f.Offset)

	query := `SELECT ` + complaintColumns + ` FROM complaints`
	var args []any
	var wheres []string
	if f.Status != "" && f.Status != models.BandAll {
		args = append(args, f.Status)
		wheres = append(wheres, fmt.Sprintf("status = $%d", len(args)))
	}
	switch f.Priority {
	case models.BandHigh:
		wheres = append(wheres, "priority_score >= 0.7")
	case models.BandMedium:
		wheres = append(wheres, "priority_score >= 0.4 AND priority_score < 0.7")
	case models.BandLow:
		wheres = append(wheres, "priority_score < 0.4")
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		wheres = append(wheres, fmt.Sprintf("(customer_name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	query += " ORDER BY priority_score DESC, created_at DESC, id ASC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectComplaints(rows)
}

func (s *Store) UpdateScores(ctx context.Context, id string, sc models.Scores) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE complaints
		SET sentiment_score = $2, urgency_score = $3, politeness_score = $4, priority_score = $5
		WHERE id = $1 AND status = 'pending'
	`, id, sc.Sentiment, sc.Urgency, sc.Politeness, sc.Priority)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetComplaint(ctx, id); err != nil {
			return err
		}
		return models.ErrComplaintResolved
	}
	return nil
}

func (s *Store) ResolveComplaint(ctx context.Context, id string, at time.Time) (models.Complaint, bool, error) {
	c, err := scanComplaint(s.Pool.QueryRow(ctx, `
		UPDATE complaints
		SET status = 'resolved',
			resolved_at = $2::timestamptz,
			resolution_seconds = GREATEST(EXTRACT(EPOCH FROM ($2::timestamptz - created_at))::bigint, 0)
		WHERE id = $1 AND status = 'pending'
		RETURNING `+complaintColumns, id, at))
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return models.Complaint{}, false, err
	}
	c, err = s.GetComplaint(ctx, id)
	if err != nil {
		return models.Complaint{}, false, err
	}
	return c, false, nil
}

func (s *Store) ComplaintStats(ctx context.Context) (models.ComplaintStats, error) {
	var st models.ComplaintStats
	err := s.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COALESCE(AVG(priority_score), 0)
		FROM complaints
	`).Scan(&st.Total, &st.Pending, &st.AvgPriority)
	return st, err
}

func (s *Store) UpsertAgent(ctx context.Context, a models.Agent) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO agents (id, name, status, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, a.ID, a.Name, a.Status)
	return err
}

func (s *Store) SetAgentStatus(ctx context.Context, id string, status string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE agents SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

const agentLoadQuery = `
	SELECT a.id, a.name, a.status, a.current_workload, a.updated_at,
		COUNT(c.id), COALESCE(AVG(c.priority_score), 0), COALESCE(ap.efficiency_score, 0)
	FROM agents a
	LEFT JOIN complaints c ON c.assigned_agent = a.id AND c.status = 'pending'
	LEFT JOIN agent_performance ap ON ap.agent_id = a.id AND ap.date = $1::date`

func scanAgentLoad(row pgx.Row) (models.AgentLoad, error) {
	var l models.AgentLoad
	err := row.Scan(&l.ID, &l.Name, &l.Status, &l.CurrentWorkload, &l.UpdatedAt,
		&l.ActiveComplaints, &l.AvgPriority, &l.Efficiency)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.AgentLoad{}, models.ErrNotFound
	}
	return l, err
}

func (s *Store) ListAgentLoads(ctx context.Context, day time.Time) ([]models.AgentLoad, error) {
	rows, err := s.Pool.Query(ctx, agentLoadQuery+`
		GROUP BY a.id, ap.efficiency_score
		ORDER BY a.id ASC`, day.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AgentLoad
	for rows.Next() {
		l, err := scanAgentLoad(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) GetAgentLoad(ctx context.Context, id string, day time.Time) (models.AgentLoad, error) {
	return scanAgentLoad(s.Pool.QueryRow(ctx, agentLoadQuery+`
		WHERE a.id = $2
		GROUP BY a.id, ap.efficiency_score`, day.UTC(), id))
}

func (s *Store) ListPendingByAgent(ctx context.Context, agentID string) ([]models.Complaint, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+complaintColumns+` FROM complaints
		WHERE assigned_agent = $1 AND status = 'pending'
		ORDER BY priority_score ASC, id ASC
	`, agentID)
	if err != nil {
		return nil, err
	}
	return collectComplaints(rows)
}

func (s *Store) AssignComplaint(ctx context.Context, complaintID, agentID string) (bool, error) {
	assigned := false
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var priority float64
		err := tx.QueryRow(ctx, `
			UPDATE complaints SET assigned_agent = $2
			WHERE id = $1 AND status = 'pending' AND assigned_agent IS NULL
				AND EXISTS (SELECT 1 FROM agents WHERE id = $2 AND status = 'available')
			RETURNING priority_score
		`, complaintID, agentID).Scan(&priority)
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM complaints WHERE id = $1)`, complaintID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return models.ErrNotFound
			}
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.addWorkload(ctx, tx, agentID, priority); err != nil {
			return err
		}
		assigned = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return assigned, nil
}

func (s *Store) MoveComplaint(ctx context.Context, complaintID, from, to string) (bool, error) {
	moved := false
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var priority float64
		err := tx.QueryRow(ctx, `
			UPDATE complaints SET assigned_agent = $3
			WHERE id = $1 AND assigned_agent = $2 AND status = 'pending'
				AND EXISTS (SELECT 1 FROM agents WHERE id = $3 AND status = 'available')
			RETURNING priority_score
		`, complaintID, from, to).Scan(&priority)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.addWorkload(ctx, tx, from, -priority); err != nil {
			return err
		}
		if err := s.addWorkload(ctx, tx, to, priority); err != nil {
			return err
		}
		moved = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return moved, nil
}

func (s *Store) addWorkload(ctx context.Context, tx pgx.Tx, agentID string, delta float64) error {
	tag, err := tx.Exec(ctx, `
		UPDATE agents SET current_workload = GREATEST(current_workload + $1, 0), updated_at = NOW()
		WHERE id = $2
	`, delta, agentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) SyncWorkloads(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE agents a SET current_workload = COALESCE((
			SELECT SUM(c.priority_score) FROM complaints c
			WHERE c.assigned_agent = a.id AND c.status = 'pending'
		), 0), updated_at = NOW()
	`)
	return err
}

func (s *Store) SetEfficiency(ctx context.Context, agentID string, day time.Time, score float64) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO agent_performance (agent_id, date, efficiency_score)
		VALUES ($1, $2::date, $3)
		ON CONFLICT (agent_id, date) DO UPDATE SET efficiency_score = EXCLUDED.efficiency_score
	`, agentID, day.UTC(), score)
	return err
}

func (s *Store) UpsertCallback(ctx context.Context, cb models.Callback) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO callbacks (complaint_id, scheduled_time, status, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (complaint_id) DO UPDATE SET
			scheduled_time = EXCLUDED.scheduled_time,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`, cb.ComplaintID, cb.ScheduledTime, cb.Status, cb.UpdatedAt)
	return err
}

func (s *Store) GetCallback(ctx context.Context, complaintID string) (models.Callback, error) {
	var cb models.Callback
	err := s.Pool.QueryRow(ctx, `
		SELECT complaint_id, scheduled_time, status, updated_at FROM callbacks WHERE complaint_id = $1
	`, complaintID).Scan(&cb.ComplaintID, &cb.ScheduledTime, &cb.Status, &cb.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Callback{}, models.ErrNotFound
	}
	return cb, err
}

func (s *Store) ListPendingCallbacks(ctx context.Context) ([]models.PendingCallback, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT cb.complaint_id, cb.scheduled_time, cb.status, cb.updated_at,
			c.customer_name, c.customer_phone, c.description, c.priority_score
		FROM callbacks cb
		JOIN complaints c ON c.id = cb.complaint_id
		WHERE cb.status = 'pending'
		ORDER BY cb.scheduled_time ASC, cb.complaint_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.PendingCallback{}
	for rows.Next() {
		var p models.PendingCallback
		if err := rows.Scan(&p.ComplaintID, &p.ScheduledTime, &p.Status, &p.UpdatedAt,
			&p.CustomerName, &p.CustomerPhone, &p.Description, &p.Priority); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CompleteCallback(ctx context.Context, complaintID string, at time.Time) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE callbacks SET status = 'completed', updated_at = $2
		WHERE complaint_id = $1 AND status = 'pending'
	`, complaintID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		_, err := s.GetCallback(ctx, complaintID)
		return err
	}
	return nil
}

func (s *Store) InsertCallSummary(ctx context.Context, cs models.CallSummary) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO call_summaries (id, agent_id, complaint_id, duration_seconds, satisfaction, resolved, required_callback, summary, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
	`, cs.ID, cs.AgentID, cs.ComplaintID, cs.DurationSeconds, cs.Satisfaction, cs.Resolved, cs.RequiredCallback, cs.Summary, cs.CreatedAt)
	return err
}

func (s *Store) ListCallSummaries(ctx context.Context, since time.Time) ([]models.CallSummary, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, agent_id, COALESCE(complaint_id, ''), duration_seconds, satisfaction, resolved, required_callback, summary, created_at
		FROM call_summaries
		WHERE created_at >= $1
		ORDER BY created_at ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CallSummary{}
	for rows.Next() {
		var cs models.CallSummary
		if err := rows.Scan(&cs.ID, &cs.AgentID, &cs.ComplaintID, &cs.DurationSeconds, &cs.Satisfaction,
			&cs.Resolved, &cs.RequiredCallback, &cs.Summary, &cs.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *Store) InsertArticle(ctx context.Context, a models.Article) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO kb_articles (id, title, content, tags, usage_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Title, a.Content, a.Tags, a.UsageCount, a.CreatedAt)
	return err
}

func (s *Store) SearchArticles(ctx context.Context, query string) ([]models.Article, error) {
	rows, err := s.Pool.Query(ctx, `
		UPDATE kb_articles SET usage_count = usage_count + 1
		WHERE title ILIKE $1 OR content ILIKE $1
			OR EXISTS (SELECT 1 FROM unnest(tags) AS t WHERE t ILIKE $1)
		RETURNING id, title, content, tags, usage_count, created_at
	`, "%"+escapeLike(query)+"%")
	if err != nil {
		return nil, err
	}
	out, err := collectArticles(rows)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) PopularArticles(ctx context.Context, limit int) ([]models.Article, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, title, content, tags, usage_count, created_at
		FROM kb_articles
		ORDER BY usage_count DESC, created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectArticles(rows)
}

func collectArticles(rows pgx.Rows) ([]models.Article, error) {
	defer rows.Close()
	out := []models.Article{}
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.Tags, &a.UsageCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
