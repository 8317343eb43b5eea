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
	apperrors "github.com/orbitapp/backend/pkg/errors"
)

func newContractService(t *testing.T) (*ContractService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn := database.NewFromDB(db)
	users := persistence.NewUserRepository(db)
	outbox := persistence.NewOutboxRepository(db)
	audit := NewAuditService(persistence.NewAuditRepository(db))
	orgs := NewOrganizationService(
		persistence.NewOrganizationRepository(db), users, outbox,
		persistence.NewTransactionManager(conn), audit)

	svc := NewContractService(persistence.NewContractRepository(db), users,
		persistence.NewTaskRepository(db), orgs, outbox, audit)
	return svc, mock
}

func pendingContractRows(signToken string, expiresAt time.Time) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "organization_id", "party_a_id", "party_b_email", "party_b_user_id",
		"title", "body", "pdf_path", "status", "sign_token", "sign_token_expires_at",
		"submit_token", "signed_at", "signer_name", "signer_ip", "created_at", "updated_at",
	}).AddRow(
		"c1", "org1", "sender1", "jordan@example.com", nil,
		"Renovation agreement", "Scope of work...", nil, "pending_signature", signToken, expiresAt,
		nil, nil, nil, nil, now, now)
}

func TestContractService_Sign(t *testing.T) {
	svc, mock := newContractService(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT (.+) FROM contracts WHERE sign_token").
		WithArgs("tok123").
		WillReturnRows(pendingContractRows("tok123", time.Now().Add(time.Hour)))
	// Counterparty has no account yet.
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("jordan@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("UPDATE contracts SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	result, err := svc.Sign(ctx, "tok123", SignRequest{SignerName: "Jordan Lee"}, "203.0.113.9")
	require.NoError(t, err)
	assert.Equal(t, "active", result.Status)
	assert.NotEmpty(t, result.SubmitToken)
	assert.Equal(t, "/submit/"+result.SubmitToken, result.SubmitURL)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractService_Sign_ExpiredToken(t *testing.T) {
	svc, mock := newContractService(t)

	mock.ExpectQuery("SELECT (.+) FROM contracts WHERE sign_token").
		WithArgs("tok123").
		WillReturnRows(pendingContractRows("tok123", time.Now().Add(-time.Minute)))

	_, err := svc.Sign(context.Background(), "tok123", SignRequest{SignerName: "Jordan Lee"}, "203.0.113.9")
	require.Error(t, err)
	assert.Equal(t, 410, apperrors.GetHTTPStatus(err))
}

// A spent link still resolves; the status guard reports it gone rather than
// missing.
func TestContractService_Sign_SpentToken(t *testing.T) {
	svc, mock := newContractService(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "party_a_id", "party_b_email", "party_b_user_id",
		"title", "body", "pdf_path", "status", "sign_token", "sign_token_expires_at",
		"submit_token", "signed_at", "signer_name", "signer_ip", "created_at", "updated_at",
	}).AddRow(
		"c1", "org1", "sender1", "jordan@example.com", nil,
		"Renovation agreement", "Scope of work...", nil, "active", "tok123", now.Add(time.Hour),
		"sub456", now, "Jordan Lee", "203.0.113.9", now, now)

	mock.ExpectQuery("SELECT (.+) FROM contracts WHERE sign_token").
		WithArgs("tok123").
		WillReturnRows(rows)

	_, err := svc.Sign(context.Background(), "tok123", SignRequest{SignerName: "Jordan Lee"}, "203.0.113.9")
	require.Error(t, err)
	assert.Equal(t, 410, apperrors.GetHTTPStatus(err))
}

func TestContractService_Sign_UnknownToken(t *testing.T) {
	svc, mock := newContractService(t)

	mock.ExpectQuery("SELECT (.+) FROM contracts WHERE sign_token").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Sign(context.Background(), "missing", SignRequest{SignerName: "Jordan Lee"}, "203.0.113.9")
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.GetHTTPStatus(err))
}

func activeContractRows(submitToken, partyBUserID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "organization_id", "party_a_id", "party_b_email", "party_b_user_id",
		"title", "body", "pdf_path", "status", "sign_token", "sign_token_expires_at",
		"submit_token", "signed_at", "signer_name", "signer_ip", "created_at", "updated_at",
	}).AddRow(
		"c1", "org1", "sender1", "jordan@example.com", partyBUserID,
		"Renovation agreement", "Scope of work...", nil, "active", "tok123", now.Add(time.Hour),
		submitToken, now, "Jordan Lee", "203.0.113.9", now, now)
}

// Delivering a task the contractor has not started yet starts and submits it
// in one step.
func TestContractService_SubmitWork_AssignedTask(t *testing.T) {
	svc, mock := newContractService(t)

	mock.ExpectQuery("SELECT (.+) FROM contracts WHERE submit_token").
		WithArgs("sub456").
		WillReturnRows(activeContractRows("sub456", "worker1"))
	mock.ExpectQuery("SELECT (.+) FROM tasks WHERE id").
		WithArgs("t1").
		WillReturnRows(qcTaskRows("assigned"))
	// assigned -> in_progress, then in_progress -> submitted.
	mock.ExpectExec("UPDATE tasks SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET submitted_at").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := svc.SubmitWork(context.Background(), "sub456", "t1", "Cabinets installed, photos attached")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContractService_Sign_LosesRace(t *testing.T) {
	svc, mock := newContractService(t)

	mock.ExpectQuery("SELECT (.+) FROM contracts WHERE sign_token").
		WithArgs("tok123").
		WillReturnRows(pendingContractRows("tok123", time.Now().Add(time.Hour)))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("jordan@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	// Another request signed the contract between the read and the update.
	mock.ExpectExec("UPDATE contracts SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := svc.Sign(context.Background(), "tok123", SignRequest{SignerName: "Jordan Lee"}, "203.0.113.9")
	require.Error(t, err)
	assert.Equal(t, 409, apperrors.GetHTTPStatus(err))
}
