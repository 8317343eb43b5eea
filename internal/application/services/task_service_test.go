package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitapp/backend/internal/infrastructure/database"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	apperrors "github.com/orbitapp/backend/pkg/errors"
)

func newTaskService(t *testing.T) (*TaskService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	conn := database.NewFromDB(db)
	users := persistence.NewUserRepository(db)
	outbox := persistence.NewOutboxRepository(db)
	audit := NewAuditService(persistence.NewAuditRepository(db))
	tm := persistence.NewTransactionManager(conn)
	orgs := NewOrganizationService(
		persistence.NewOrganizationRepository(db), users, outbox, tm, audit)
	projects := NewProjectService(persistence.NewProjectRepository(db), orgs, audit)

	svc := NewTaskService(persistence.NewTaskRepository(db), projects, outbox, tm, audit)
	return svc, mock
}

func openTaskRows(status string, assignee interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "project_id", "title", "description", "status", "assignee_id",
		"value", "v0", "p0", "beta", "gamma", "k",
		"due_date", "submitted_at", "completed_at", "created_at", "updated_at",
	}).AddRow(
		"t1", "p1", "Install cabinets", "", status, assignee,
		1000.0, 400.0, 0.5, 2.0, 0.7, 3,
		nil, nil, nil, now, now)
}

func taskProjectRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "organization_id", "name", "description", "status", "manager_id", "budget", "created_at", "updated_at",
	}).AddRow("p1", "org1", "Kitchen remodel", "", "active", "mgr1", 50000.0, now, now)
}

func TestTaskService_Assign(t *testing.T) {
	svc, mock := newTaskService(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(openTaskRows("open", nil))
	mock.ExpectQuery("SELECT level FROM task_access").
		WillReturnRows(sqlmock.NewRows([]string{"level"}))
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WithArgs("p1").
		WillReturnRows(taskProjectRows())
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WithArgs("p1").
		WillReturnRows(taskProjectRows())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET assignee_id").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(openTaskRows("assigned", "worker1"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	actor := &auth.UserSession{ID: "admin1", Role: "admin"}
	task, err := svc.Assign(ctx, actor, "t1", "worker1")
	require.NoError(t, err)
	assert.Equal(t, "assigned", task.Status)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, "worker1", *task.AssigneeID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskService_Update_ValueBelowFloor(t *testing.T) {
	svc, mock := newTaskService(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(openTaskRows("open", nil))
	mock.ExpectQuery("SELECT level FROM task_access").
		WillReturnRows(sqlmock.NewRows([]string{"level"}))
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WithArgs("p1").
		WillReturnRows(taskProjectRows())
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WithArgs("p1").
		WillReturnRows(taskProjectRows())

	value := 100.0
	actor := &auth.UserSession{ID: "admin1", Role: "admin"}
	_, err := svc.Update(context.Background(), actor, "t1", UpdateTaskRequest{Value: &value})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatus(err))
}

func TestTaskService_Update_InReview(t *testing.T) {
	svc, mock := newTaskService(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(openTaskRows("in_review", "worker1"))
	mock.ExpectQuery("SELECT level FROM task_access").
		WillReturnRows(sqlmock.NewRows([]string{"level"}))
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WithArgs("p1").
		WillReturnRows(taskProjectRows())
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WithArgs("p1").
		WillReturnRows(taskProjectRows())

	title := "New title"
	actor := &auth.UserSession{ID: "admin1", Role: "admin"}
	_, err := svc.Update(context.Background(), actor, "t1", UpdateTaskRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatus(err))
}
