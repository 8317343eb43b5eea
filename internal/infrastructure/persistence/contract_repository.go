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

type ContractRepository struct {
	db *sql.DB
}

func NewContractRepository(db *sql.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = "id, organization_id, party_a_id, party_b_email, party_b_user_id, title, body, pdf_path, status, sign_token, sign_token_expires_at, submit_token, signed_at, signer_name, signer_ip, created_at, updated_at"

func scanContract(scan func(dest ...interface{}) error) (*models.Contract, error) {
	var c models.Contract
	var partyBUser, pdfPath, signToken, submitToken, signerName, signerIP sql.NullString
	var tokenExpires, signedAt sql.NullTime

	err := scan(&c.ID, &c.OrganizationID, &c.PartyAID, &c.PartyBEmail, &partyBUser,
		&c.Title, &c.Body, &pdfPath, &c.Status, &signToken, &tokenExpires, &submitToken,
		&signedAt, &signerName, &signerIP, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if partyBUser.Valid {
		s := partyBUser.String
		c.PartyBUserID = &s
	}
	c.PDFPath = pdfPath.String
	c.SignToken = signToken.String
	c.SubmitToken = submitToken.String
	c.SignerName = signerName.String
	c.SignerIP = signerIP.String
	if tokenExpires.Valid {
		t := tokenExpires.Time
		c.SignTokenExpiresAt = &t
	}
	if signedAt.Valid {
		t := signedAt.Time
		c.SignedAt = &t
	}
	return &c, nil
}

func (r *ContractRepository) Create(ctx context.Context, c *models.Contract) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, organization_id, party_a_id, party_b_email, title, body, pdf_path, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`,
		constants.TableContract)
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.OrganizationID, c.PartyAID, c.PartyBEmail, c.Title, c.Body, c.PDFPath, c.Status)
	return err
}

func (r *ContractRepository) GetByID(ctx context.Context, id string) (*models.Contract, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", contractColumns, constants.TableContract)
	row := r.db.QueryRowContext(ctx, query, id)
	c, err := scanContract(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetBySignToken looks up a contract by its public signing token.
func (r *ContractRepository) GetBySignToken(ctx context.Context, token string) (*models.Contract, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		contractColumns, constants.TableContract, constants.FieldContractSignToken)
	row := r.db.QueryRowContext(ctx, query, token)
	c, err := scanContract(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetBySubmitToken looks up a contract by its public work-submission token.
func (r *ContractRepository) GetBySubmitToken(ctx context.Context, token string) (*models.Contract, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? LIMIT 1",
		contractColumns, constants.TableContract, constants.FieldContractSubmitToken)
	row := r.db.QueryRowContext(ctx, query, token)
	c, err := scanContract(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *ContractRepository) Update(ctx context.Context, contractID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	setClauses := []string{}
	args := []interface{}{}
	for k, v := range updates {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", k))
		args = append(args, v)
	}
	setClauses = append(setClauses, fmt.Sprintf("%s = ?", constants.FieldUpdatedAt))
	args = append(args, time.Now())

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		constants.TableContract, strings.Join(setClauses, ", "), constants.FieldID)
	args = append(args, contractID)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// UpdateStatusIf moves a contract to a new status only if it is still in the
// expected one. Extra column updates ride along in the same statement so sign
// and decline are single atomic writes.
func (r *ContractRepository) UpdateStatusIf(ctx context.Context, contractID, from, to string, extra map[string]interface{}) (bool, error) {
	setClauses := []string{"status = ?", "updated_at = NOW()"}
	args := []interface{}{to}
	for k, v := range extra {
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", k))
		args = append(args, v)
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND status = ?",
		constants.TableContract, strings.Join(setClauses, ", "))
	args = append(args, contractID, from)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ContractRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.Contract, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE organization_id = ? ORDER BY created_at DESC",
		contractColumns, constants.TableContract)
	return r.queryContracts(ctx, query, orgID)
}

// ListForCounterparty returns contracts addressed to an email, for the
// onboarded contractor's own view.
func (r *ContractRepository) ListForCounterparty(ctx context.Context, email string) ([]*models.Contract, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY created_at DESC",
		contractColumns, constants.TableContract, constants.FieldContractPartyBEmail)
	return r.queryContracts(ctx, query, email)
}

func (r *ContractRepository) queryContracts(ctx context.Context, query string, args ...interface{}) ([]*models.Contract, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contracts := make([]*models.Contract, 0)
	for rows.Next() {
		c, err := scanContract(rows.Scan)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// ExpirePendingBefore reverts pending_signature contracts whose sign token
// expired to draft and clears the stale token. Returns the affected IDs so
// the scheduler can notify the senders.
func (r *ContractRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	selectQuery := fmt.Sprintf("SELECT id FROM %s WHERE status = ? AND %s < ?",
		constants.TableContract, constants.FieldContractTokenExpires)

	rows, err := r.db.QueryContext(ctx, selectQuery, string(constants.ContractPendingSignature), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return ids, nil
	}

	updateQuery := fmt.Sprintf(`
		UPDATE %s SET status = ?, sign_token = NULL, sign_token_expires_at = NULL, updated_at = NOW()
		WHERE status = ? AND %s < ?`,
		constants.TableContract, constants.FieldContractTokenExpires)
	_, err = r.db.ExecContext(ctx, updateQuery,
		string(constants.ContractDraft), string(constants.ContractPendingSignature), cutoff)
	return ids, err
}

// CountSignedForEmail counts active contracts a counterparty has signed.
func (r *ContractRepository) CountSignedForEmail(ctx context.Context, email string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ? AND signed_at IS NOT NULL",
		constants.TableContract, constants.FieldContractPartyBEmail)
	err := r.db.QueryRowContext(ctx, query, email).Scan(&n)
	return n, err
}
