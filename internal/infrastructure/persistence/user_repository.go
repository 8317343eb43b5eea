package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/pkg/constants"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CheckUserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableUser, constants.FieldEmail)
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) CheckUserExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s = ?)", constants.TableUser, constants.FieldID)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CreateUser inserts a new user row. The caller supplies the ID and the
// already-hashed password.
func (r *UserRepository) CreateUser(ctx context.Context, u *models.User, passwordHash string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, name, first_name, last_name, password, role, is_active, r, r_min, r_max, base_salary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		constants.TableUser)

	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.Name, u.FirstName, u.LastName, passwordHash, u.Role, u.IsActive,
		u.R, u.RMin, u.RMax, u.BaseSalary)
	return err
}

// UpdateUser applies a partial column update.
func (r *UserRepository) UpdateUser(ctx context.Context, userID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClauses := []string{}
	args := []interface{}{}

	for k, v := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", k))
		args = append(args, v)
	}

	// Always bump updated_at
	setClauses = append(setClauses, fmt.Sprintf("%s = ?", constants.FieldUpdatedAt))
	args = append(args, time.Now())

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", constants.TableUser, strings.Join(setClauses, ", "), constants.FieldID)
	args = append(args, userID)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Deactivate marks a user inactive. Orbit never hard-deletes users: payouts
// and audit rows reference them forever.
func (r *UserRepository) Deactivate(ctx context.Context, userID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = 0, %s = NOW() WHERE %s = ?",
		constants.TableUser, constants.FieldUserIsActive, constants.FieldUpdatedAt, constants.FieldID)
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

const userColumns = "id, email, name, first_name, last_name, role, is_active, r, r_min, r_max, base_salary, last_login_at, created_at, updated_at"

func scanUser(scan func(dest ...interface{}) error) (*models.User, error) {
	var u models.User
	var firstName, lastName sql.NullString
	var lastLogin sql.NullTime

	err := scan(&u.ID, &u.Email, &u.Name, &firstName, &lastName, &u.Role, &u.IsActive,
		&u.R, &u.RMin, &u.RMax, &u.BaseSalary, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}

	u.FirstName = firstName.String
	u.LastName = lastName.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

// GetUserByID fetches a user or nil when absent.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1", userColumns, constants.TableUser, constants.FieldID)
	row := r.db.QueryRowContext(ctx, query, userID)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetUserByEmail fetches a user by email or nil when absent.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1", userColumns, constants.TableUser, constants.FieldEmail)
	row := r.db.QueryRowContext(ctx, query, email)
	u, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// FindAll retrieves all users, newest first.
func (r *UserRepository) FindAll(ctx context.Context) ([]*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC", userColumns, constants.TableUser, constants.FieldCreatedAt)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserWithPassword extends User with the stored hash for auth checks.
type UserWithPassword struct {
	*models.User
	PasswordHash string
}

// FindUserByEmailWithPassword retrieves a user and their password hash by
// email. Returns nil without error when no user exists.
func (r *UserRepository) FindUserByEmailWithPassword(ctx context.Context, email string) (*UserWithPassword, error) {
	query := fmt.Sprintf("SELECT %s, password FROM %s WHERE %s = ? LIMIT 1", userColumns, constants.TableUser, constants.FieldEmail)

	var u models.User
	var firstName, lastName sql.NullString
	var lastLogin sql.NullTime
	var password sql.NullString

	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.Name, &firstName, &lastName, &u.Role, &u.IsActive,
		&u.R, &u.RMin, &u.RMax, &u.BaseSalary, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
		&password,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	u.FirstName = firstName.String
	u.LastName = lastName.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}

	result := &UserWithPassword{User: &u}
	if password.Valid {
		result.PasswordHash = password.String
	}
	return result, nil
}

// FindUserByIDWithPassword retrieves a user's hash by ID for password change.
func (r *UserRepository) FindUserByIDWithPassword(ctx context.Context, userID string) (*UserWithPassword, error) {
	query := fmt.Sprintf("SELECT id, password FROM %s WHERE id = ? LIMIT 1", constants.TableUser)

	var u models.User
	var password sql.NullString

	err := r.db.QueryRowContext(ctx, query, userID).Scan(&u.ID, &password)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	result := &UserWithPassword{User: &u}
	if password.Valid {
		result.PasswordHash = password.String
	}
	return result, nil
}

// UpdatePassword updates the user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := fmt.Sprintf("UPDATE %s SET password = ?, updated_at = NOW() WHERE id = ?", constants.TableUser)
	_, err := r.db.ExecContext(ctx, query, passwordHash, userID)
	return err
}

// TouchLastLogin stamps a successful login.
func (r *UserRepository) TouchLastLogin(ctx context.Context, userID string) error {
	query := fmt.Sprintf("UPDATE %s SET %s = NOW() WHERE %s = ?",
		constants.TableUser, constants.FieldUserLastLogin, constants.FieldID)
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
