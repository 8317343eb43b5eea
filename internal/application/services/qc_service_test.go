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

func newQCService(t *testing.T) (*QCService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	// A single pool connection surfaces any statement that escapes the open
	// transaction: it would block on the pinned connection until the context
	// deadline instead of silently running outside the tx.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	conn := database.NewFromDB(db)
	outbox := persistence.NewOutboxRepository(db)
	audit := NewAuditService(persistence.NewAuditRepository(db))
	payouts := NewPayoutService(persistence.NewPayoutRepository(db), outbox, audit)

	svc := NewQCService(
		persistence.NewQCRepository(db),
		persistence.NewTaskRepository(db),
		persistence.NewProjectRepository(db),
		payouts, outbox,
		persistence.NewTransactionManager(conn), audit)
	return svc, mock
}

func qcTaskRows(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "project_id", "title", "description", "status", "assignee_id",
		"value", "v0", "p0", "beta", "gamma", "k",
		"due_date", "submitted_at", "completed_at", "created_at", "updated_at",
	}).AddRow(
		"t1", "p1", "Install cabinets", "", status, "worker1",
		1000.0, 400.0, 0.5, 2.0, 0.7, 3,
		nil, now, nil, now, now)
}

func qcProjectRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "organization_id", "name", "description", "status", "manager_id", "budget", "created_at", "updated_at",
	}).AddRow("p1", "org1", "Kitchen remodel", "", "active", "mgr1", 50000.0, now, now)
}

func qcReviewRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "task_id", "reviewer_id", "pass_number", "score", "weight", "passed", "notes", "created_at",
	}).AddRow("r1", "t1", "qc1", 1, 0.9, 1.0, true, "", time.Now())
}

func TestQCService_Decide_Approve(t *testing.T) {
	svc, mock := newQCService(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(qcTaskRows("in_review"))
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WithArgs("p1").
		WillReturnRows(qcProjectRows())
	mock.ExpectQuery("SELECT (.+) FROM qc_reviews WHERE task_id").
		WithArgs("t1").
		WillReturnRows(qcReviewRows())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET completed_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Worker plus one reviewer.
	mock.ExpectExec("INSERT INTO payouts").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO payouts").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(qcTaskRows("approved"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	actor := &auth.UserSession{ID: "qc1", Role: "quality_control"}
	task, err := svc.Decide(ctx, actor, "t1", true)
	require.NoError(t, err)
	assert.Equal(t, "approved", task.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQCService_Decide_Reject(t *testing.T) {
	svc, mock := newQCService(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(qcTaskRows("in_review"))
	mock.ExpectQuery("SELECT (.+) FROM projects WHERE id").
		WithArgs("p1").
		WillReturnRows(qcProjectRows())
	mock.ExpectQuery("SELECT (.+) FROM qc_reviews WHERE task_id").
		WithArgs("t1").
		WillReturnRows(qcReviewRows())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tasks SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(qcTaskRows("rejected"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	actor := &auth.UserSession{ID: "qc1", Role: "quality_control"}
	task, err := svc.Decide(ctx, actor, "t1", false)
	require.NoError(t, err)
	assert.Equal(t, "rejected", task.Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQCService_Decide_NotInReview(t *testing.T) {
	svc, mock := newQCService(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(qcTaskRows("submitted"))

	actor := &auth.UserSession{ID: "qc1", Role: "quality_control"}
	_, err := svc.Decide(context.Background(), actor, "t1", true)
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatus(err))
}

func TestQCService_RecordPass_OwnTask(t *testing.T) {
	svc, mock := newQCService(t)

	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(qcTaskRows("submitted"))

	actor := &auth.UserSession{ID: "worker1", Role: "quality_control"}
	_, err := svc.RecordPass(context.Background(), actor, RecordPassRequest{TaskID: "t1", Score: 0.8, Passed: true})
	require.Error(t, err)
	assert.Equal(t, 400, apperrors.GetHTTPStatus(err))
}
