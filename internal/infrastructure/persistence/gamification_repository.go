package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type GamificationRepository struct {
	db *sql.DB
}

func NewGamificationRepository(db *sql.DB) *GamificationRepository {
	return &GamificationRepository{db: db}
}

func (r *GamificationRepository) CreateBadge(ctx context.Context, b *models.Badge) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, description, icon, criteria, points, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW())`,
		constants.TableBadge)
	_, err := r.db.ExecContext(ctx, query, b.ID, b.Name, b.Description, b.Icon, b.Criteria, b.Points, b.IsActive)
	return err
}

func (r *GamificationRepository) GetBadge(ctx context.Context, id string) (*models.Badge, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, icon, criteria, points, is_active, created_at
		FROM %s WHERE id = ? LIMIT 1`, constants.TableBadge)

	var b models.Badge
	var icon sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.Name, &b.Description, &icon, &b.Criteria, &b.Points, &b.IsActive, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.Icon = icon.String
	return &b, nil
}

func (r *GamificationRepository) UpdateBadge(ctx context.Context, badgeID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClauses := []string{}
	args := []interface{}{}
	for k, v := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", k))
		args = append(args, v)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?",
		constants.TableBadge, strings.Join(setClauses, ", "))
	args = append(args, badgeID)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ListActiveBadges returns badges eligible for awarding.
func (r *GamificationRepository) ListActiveBadges(ctx context.Context) ([]*models.Badge, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, icon, criteria, points, is_active, created_at
		FROM %s WHERE is_active = 1 ORDER BY points ASC`, constants.TableBadge)
	return r.queryBadges(ctx, query)
}

func (r *GamificationRepository) ListAllBadges(ctx context.Context) ([]*models.Badge, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, icon, criteria, points, is_active, created_at
		FROM %s ORDER BY points ASC`, constants.TableBadge)
	return r.queryBadges(ctx, query)
}

func (r *GamificationRepository) queryBadges(ctx context.Context, query string) ([]*models.Badge, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	badges := make([]*models.Badge, 0)
	for rows.Next() {
		var b models.Badge
		var icon sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &icon, &b.Criteria, &b.Points, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Icon = icon.String
		badges = append(badges, &b)
	}
	return badges, rows.Err()
}

// Award records a badge for a user. The unique index on (badge_id, user_id)
// makes re-awards a no-op; duplicates report awarded=false.
func (r *GamificationRepository) Award(ctx context.Context, a *models.BadgeAward) (bool, error) {
	query := fmt.Sprintf(`
		INSERT IGNORE INTO %s (id, badge_id, user_id, awarded_at)
		VALUES (?, ?, ?, NOW())`,
		constants.TableBadgeAward)
	res, err := r.db.ExecContext(ctx, query, a.ID, a.BadgeID, a.UserID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAwardsForUser returns a user's earned badges, newest first.
func (r *GamificationRepository) ListAwardsForUser(ctx context.Context, userID string) ([]*models.BadgeAward, error) {
	query := fmt.Sprintf(`
		SELECT a.id, a.badge_id, a.user_id, a.awarded_at, b.name, b.points
		FROM %s a JOIN %s b ON b.id = a.badge_id
		WHERE a.user_id = ?
		ORDER BY a.awarded_at DESC`,
		constants.TableBadgeAward, constants.TableBadge)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	awards := make([]*models.BadgeAward, 0)
	for rows.Next() {
		var a models.BadgeAward
		if err := rows.Scan(&a.ID, &a.BadgeID, &a.UserID, &a.AwardedAt, &a.BadgeName, &a.BadgePoints); err != nil {
			return nil, err
		}
		awards = append(awards, &a)
	}
	return awards, rows.Err()
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	Points     int    `json:"points"`
	BadgeCount int    `json:"badge_count"`
}

// Leaderboard ranks users by total badge points.
func (r *GamificationRepository) Leaderboard(ctx context.Context, limit int) ([]*LeaderboardEntry, error) {
	if limit <= 0 || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	query := fmt.Sprintf(`
		SELECT u.id, u.name, COALESCE(SUM(b.points), 0) AS points, COUNT(a.id) AS badge_count
		FROM %s u
		JOIN %s a ON a.user_id = u.id
		JOIN %s b ON b.id = a.badge_id
		GROUP BY u.id, u.name
		ORDER BY points DESC
		LIMIT %d`,
		constants.TableUser, constants.TableBadgeAward, constants.TableBadge, limit)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*LeaderboardEntry, 0)
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.UserName, &e.Points, &e.BadgeCount); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// StreakDays computes the user's current consecutive-day approval streak by
// walking distinct completion dates backwards from today.
func (r *GamificationRepository) StreakDays(ctx context.Context, userID string) (int, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT DATE(completed_at) FROM %s
		WHERE assignee_id = ? AND completed_at IS NOT NULL
		ORDER BY 1 DESC LIMIT 366`,
		constants.TableTask)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	dates := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return 0, err
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return countStreak(dates), nil
}
