package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/orbitapp/backend/pkg/constants"
	"github.com/orbitapp/backend/pkg/utils"
)

// AnalyticsRepository serves the read-only aggregate queries behind the
// analytics endpoints. It never writes.
type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Overview is the org dashboard headline block.
type Overview struct {
	ProjectCount    int     `json:"project_count"`
	OpenTasks       int     `json:"open_tasks"`
	TasksInReview   int     `json:"tasks_in_review"`
	TasksApproved   int     `json:"tasks_approved"`
	ActiveContracts int     `json:"active_contracts"`
	PendingPayouts  float64 `json:"pending_payouts"`
	ReleasedPayouts float64 `json:"released_payouts"`
	MemberCount     int     `json:"member_count"`
}

func (r *AnalyticsRepository) Overview(ctx context.Context, orgID string) (*Overview, error) {
	var o Overview

	query := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %s WHERE organization_id = ?),
			(SELECT COUNT(*) FROM %s t JOIN %s p ON p.id = t.project_id WHERE p.organization_id = ? AND t.status IN ('open', 'assigned', 'in_progress')),
			(SELECT COUNT(*) FROM %s t JOIN %s p ON p.id = t.project_id WHERE p.organization_id = ? AND t.status IN ('submitted', 'in_review')),
			(SELECT COUNT(*) FROM %s t JOIN %s p ON p.id = t.project_id WHERE p.organization_id = ? AND t.status = 'approved'),
			(SELECT COUNT(*) FROM %s WHERE organization_id = ? AND status = 'active'),
			(SELECT COALESCE(SUM(po.amount), 0) FROM %s po JOIN %s p ON p.id = po.project_id WHERE p.organization_id = ? AND po.status = 'pending'),
			(SELECT COALESCE(SUM(po.amount), 0) FROM %s po JOIN %s p ON p.id = po.project_id WHERE p.organization_id = ? AND po.status = 'released'),
			(SELECT COUNT(*) FROM %s WHERE organization_id = ?)`,
		constants.TableProject,
		constants.TableTask, constants.TableProject,
		constants.TableTask, constants.TableProject,
		constants.TableTask, constants.TableProject,
		constants.TableContract,
		constants.TablePayout, constants.TableProject,
		constants.TablePayout, constants.TableProject,
		constants.TableTeamMember)

	err := r.db.QueryRowContext(ctx, query,
		orgID, orgID, orgID, orgID, orgID, orgID, orgID, orgID).Scan(
		&o.ProjectCount, &o.OpenTasks, &o.TasksInReview, &o.TasksApproved,
		&o.ActiveContracts, &o.PendingPayouts, &o.ReleasedPayouts, &o.MemberCount)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// EarningsBucket is one month of a user's released payouts.
type EarningsBucket struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

func (r *AnalyticsRepository) EarningsByMonth(ctx context.Context, userID string, months int) ([]*EarningsBucket, error) {
	if months <= 0 || months > 36 {
		months = 12
	}
	query := fmt.Sprintf(`
		SELECT DATE_FORMAT(released_at, '%%Y-%%m') AS month, SUM(amount), COUNT(*)
		FROM %s
		WHERE user_id = ? AND status = 'released' AND released_at >= DATE_SUB(NOW(), INTERVAL %d MONTH)
		GROUP BY month ORDER BY month ASC`,
		constants.TablePayout, months)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := make([]*EarningsBucket, 0)
	for rows.Next() {
		var b EarningsBucket
		if err := rows.Scan(&b.Month, &b.Amount, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, &b)
	}
	return buckets, rows.Err()
}

// ThroughputBucket is one week of approved tasks across an org.
type ThroughputBucket struct {
	Week     string `json:"week"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
}

func (r *AnalyticsRepository) ThroughputByWeek(ctx context.Context, orgID string, weeks int) ([]*ThroughputBucket, error) {
	if weeks <= 0 || weeks > 52 {
		weeks = 12
	}
	query := fmt.Sprintf(`
		SELECT DATE_FORMAT(t.updated_at, '%%x-W%%v') AS week,
			SUM(t.status = 'approved'), SUM(t.status = 'rejected')
		FROM %s t JOIN %s p ON p.id = t.project_id
		WHERE p.organization_id = ? AND t.status IN ('approved', 'rejected')
			AND t.updated_at >= DATE_SUB(NOW(), INTERVAL %d WEEK)
		GROUP BY week ORDER BY week ASC`,
		constants.TableTask, constants.TableProject, weeks)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := make([]*ThroughputBucket, 0)
	for rows.Next() {
		var b ThroughputBucket
		if err := rows.Scan(&b.Week, &b.Approved, &b.Rejected); err != nil {
			return nil, err
		}
		buckets = append(buckets, &b)
	}
	return buckets, rows.Err()
}

// QCSummary aggregates review outcomes per reviewer within an org.
type QCSummary struct {
	ReviewerID   string  `json:"reviewer_id"`
	ReviewerName string  `json:"reviewer_name"`
	Reviews      int     `json:"reviews"`
	PassRate     float64 `json:"pass_rate"`
	AvgScore     float64 `json:"avg_score"`
}

func (r *AnalyticsRepository) QCSummaries(ctx context.Context, orgID string) ([]*QCSummary, error) {
	query := fmt.Sprintf(`
		SELECT q.reviewer_id, u.name, COUNT(*),
			COALESCE(AVG(q.passed), 0), COALESCE(AVG(q.score), 0)
		FROM %s q
		JOIN %s t ON t.id = q.task_id
		JOIN %s p ON p.id = t.project_id
		JOIN %s u ON u.id = q.reviewer_id
		WHERE p.organization_id = ?
		GROUP BY q.reviewer_id, u.name
		ORDER BY COUNT(*) DESC`,
		constants.TableQCReview, constants.TableTask, constants.TableProject, constants.TableUser)

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]*QCSummary, 0)
	for rows.Next() {
		var s QCSummary
		if err := rows.Scan(&s.ReviewerID, &s.ReviewerName, &s.Reviews, &s.PassRate, &s.AvgScore); err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

// RunQuery executes an already-validated read-only statement and returns
// column names plus rows of stringified values. Callers must pass the query
// through the security validator first.
func (r *AnalyticsRepository) RunQuery(ctx context.Context, query string) ([]string, [][]interface{}, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	results := make([][]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		for i := range values {
			values[i] = utils.NormalizeDBValue(values[i])
		}
		results = append(results, values)
	}
	return columns, results, rows.Err()
}
