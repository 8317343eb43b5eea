package services

import (
	"context"
	"strings"
	"time"

	"github.com/orbitapp/backend/internal/domain/events"
	"github.com/orbitapp/backend/internal/domain/models"
	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/utils"
)

// ContractService manages the contract lifecycle including the public
// token-based signing and submission flows.
type ContractService struct {
	contracts *persistence.ContractRepository
	users     *persistence.UserRepository
	tasks     *persistence.TaskRepository
	orgs      *OrganizationService
	outbox    *persistence.OutboxRepository
	audit     *AuditService
}

func NewContractService(contracts *persistence.ContractRepository, users *persistence.UserRepository,
	tasks *persistence.TaskRepository, orgs *OrganizationService, outbox *persistence.OutboxRepository,
	audit *AuditService) *ContractService {
	return &ContractService{contracts: contracts, users: users, tasks: tasks, orgs: orgs, outbox: outbox, audit: audit}
}

// CreateContractRequest starts a draft contract.
type CreateContractRequest struct {
	OrganizationID string `json:"organization_id" binding:"required"`
	PartyBEmail    string `json:"party_b_email" binding:"required"`
	Title          string `json:"title" binding:"required"`
	Body           string `json:"body" binding:"required"`
}

func (s *ContractService) Create(ctx context.Context, actor *auth.UserSession, req CreateContractRequest) (*models.Contract, error) {
	if err := s.orgs.RequireOrgRole(ctx, actor, req.OrganizationID,
		constants.RoleAdmin, constants.RoleSales, constants.RoleProjectManager); err != nil {
		return nil, err
	}
	if !auth.IsValidEmail(req.PartyBEmail) {
		return nil, apperrors.NewValidationError("party_b_email", "invalid email address")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewValidationError("title", "contract title is required")
	}

	contract := &models.Contract{
		ID:             utils.GenerateID(),
		OrganizationID: req.OrganizationID,
		PartyAID:       actor.ID,
		PartyBEmail:    strings.ToLower(strings.TrimSpace(req.PartyBEmail)),
		Title:          strings.TrimSpace(req.Title),
		Body:           req.Body,
		Status:         string(constants.ContractDraft),
	}
	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, apperrors.NewInternalError("failed to create contract", err)
	}

	s.audit.Log(ctx, req.OrganizationID, actor.ID, "contract.created", "contract", contract.ID, contract.Title)
	return contract, nil
}

// UpdateDraftRequest edits a contract that has not yet been sent.
type UpdateDraftRequest struct {
	Title       *string `json:"title"`
	Body        *string `json:"body"`
	PartyBEmail *string `json:"party_b_email"`
}

// UpdateDraft edits a draft. Once sent for signature the text is frozen.
func (s *ContractService) UpdateDraft(ctx context.Context, actor *auth.UserSession, contractID string, req UpdateDraftRequest) (*models.Contract, error) {
	contract, err := s.Get(ctx, actor, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != string(constants.ContractDraft) {
		return nil, apperrors.NewValidationError("status", "only drafts can be edited")
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, apperrors.NewValidationError("title", "contract title is required")
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Body != nil {
		updates["body"] = *req.Body
	}
	if req.PartyBEmail != nil {
		if !auth.IsValidEmail(*req.PartyBEmail) {
			return nil, apperrors.NewValidationError("party_b_email", "invalid email address")
		}
		updates["party_b_email"] = strings.ToLower(strings.TrimSpace(*req.PartyBEmail))
	}
	if len(updates) == 0 {
		return contract, nil
	}

	if err := s.contracts.Update(ctx, contractID, updates); err != nil {
		return nil, apperrors.NewInternalError("failed to update contract", err)
	}
	s.audit.Log(ctx, contract.OrganizationID, actor.ID, "contract.updated", "contract", contractID, "")
	return s.contracts.GetByID(ctx, contractID)
}

func (s *ContractService) Get(ctx context.Context, actor *auth.UserSession, contractID string) (*models.Contract, error) {
	contract, err := s.contracts.GetByID(ctx, contractID)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load contract", err)
	}
	if contract == nil {
		return nil, apperrors.NewNotFoundError("contract", contractID)
	}
	if contract.PartyAID != actor.ID && contract.PartyBEmail != strings.ToLower(actor.Email) {
		if err := s.orgs.RequireOrgRole(ctx, actor, contract.OrganizationID,
			constants.RoleAdmin, constants.RoleSales, constants.RoleProjectManager); err != nil {
			return nil, err
		}
	}
	return contract, nil
}

func (s *ContractService) ListByOrganization(ctx context.Context, actor *auth.UserSession, orgID string) ([]*models.Contract, error) {
	if err := s.orgs.RequireOrgRole(ctx, actor, orgID,
		constants.RoleAdmin, constants.RoleSales, constants.RoleProjectManager); err != nil {
		return nil, err
	}
	return s.contracts.ListByOrganization(ctx, orgID)
}

// ListMine returns contracts addressed to the caller's email.
func (s *ContractService) ListMine(ctx context.Context, actor *auth.UserSession) ([]*models.Contract, error) {
	return s.contracts.ListForCounterparty(ctx, strings.ToLower(actor.Email))
}

// SendResult carries the freshly minted sign link material back to the
// sender. The token appears here once and is never serialized again.
type SendResult struct {
	Contract  *models.Contract `json:"contract"`
	SignToken string           `json:"sign_token"`
	SignURL   string           `json:"sign_url"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// Send moves a draft to pending_signature and mints the public sign token.
// Re-sending an expired draft mints a fresh token.
func (s *ContractService) Send(ctx context.Context, actor *auth.UserSession, contractID string) (*SendResult, error) {
	contract, err := s.Get(ctx, actor, contractID)
	if err != nil {
		return nil, err
	}

	from := constants.ContractStatus(contract.Status)
	if !constants.CanTransitionContract(from, constants.ContractPendingSignature) {
		return nil, apperrors.NewTransitionError("contract", contract.Status,
			string(constants.ContractPendingSignature), allowedContractTargets(from))
	}

	token, err := utils.GenerateURLToken(32)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to mint sign token", err)
	}
	expiresAt := nowFunc().Add(constants.SignTokenLifetime)

	moved, err := s.contracts.UpdateStatusIf(ctx, contractID, contract.Status,
		string(constants.ContractPendingSignature), map[string]interface{}{
			constants.FieldContractSignToken:    token,
			constants.FieldContractTokenExpires: expiresAt,
		})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to send contract", err)
	}
	if !moved {
		return nil, apperrors.NewConflictError("contract", "status", contract.Status)
	}

	if err := s.outbox.Enqueue(ctx, nil, events.ContractSent, events.Payload{
		OrganizationID: contract.OrganizationID,
		ActorID:        actor.ID,
		ObjectID:       contractID,
		ObjectType:     "contract",
		RecipientIDs:   []string{contract.PartyAID},
		Title:          "Contract sent for signature",
		Body:           contract.Title,
		Link:           "/contracts/" + contractID,
	}); err != nil {
		return nil, apperrors.NewInternalError("failed to enqueue event", err)
	}

	s.audit.Log(ctx, contract.OrganizationID, actor.ID, "contract.sent", "contract", contractID, contract.PartyBEmail)
	contract.Status = string(constants.ContractPendingSignature)
	return &SendResult{
		Contract:  contract,
		SignToken: token,
		SignURL:   "/contract/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// PublicView is what an unauthenticated signer sees. No IDs, no tokens.
type PublicView struct {
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	PartyBEmail string     `json:"party_b_email"`
	Status      string     `json:"status"`
	HasPDF      bool       `json:"has_pdf"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// GetBySignToken resolves a public signing link. Expired or spent tokens
// report 410 so the caller can ask the sender for a fresh link.
func (s *ContractService) GetBySignToken(ctx context.Context, token string) (*PublicView, error) {
	contract, err := s.lookupSignable(ctx, token)
	if err != nil {
		return nil, err
	}
	return &PublicView{
		Title:       contract.Title,
		Body:        contract.Body,
		PartyBEmail: contract.PartyBEmail,
		Status:      contract.Status,
		HasPDF:      contract.PDFPath != "",
		ExpiresAt:   contract.SignTokenExpiresAt,
	}, nil
}

// SignRequest carries the counterparty's signature.
type SignRequest struct {
	SignerName string `json:"signer_name" binding:"required"`
}

// SignResult returns the submit token minted at signature time; it is the
// signer's credential for delivering work later.
type SignResult struct {
	Status      string `json:"status"`
	SubmitToken string `json:"submit_token"`
	SubmitURL   string `json:"submit_url"`
}

// Sign executes the public signature: the contract becomes active and a
// submit token is minted. A revisited signing link reports 410. If the
// signer's email already has an account the contract links to it.
func (s *ContractService) Sign(ctx context.Context, token string, req SignRequest, signerIP string) (*SignResult, error) {
	if strings.TrimSpace(req.SignerName) == "" {
		return nil, apperrors.NewValidationError("signer_name", "signer name is required")
	}

	contract, err := s.lookupSignable(ctx, token)
	if err != nil {
		return nil, err
	}

	submitToken, err := utils.GenerateURLToken(32)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to mint submit token", err)
	}

	// The sign token stays on the row so a revisited link resolves and the
	// status guard reports it gone instead of missing.
	updates := map[string]interface{}{
		constants.FieldContractSignedAt:    nowFunc(),
		"signer_name":                      strings.TrimSpace(req.SignerName),
		"signer_ip":                        signerIP,
		constants.FieldContractSubmitToken: submitToken,
	}

	// Onboard: link to an existing account by email when there is one.
	user, err := s.users.GetUserByEmail(ctx, contract.PartyBEmail)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up counterparty", err)
	}
	if user != nil {
		updates["party_b_user_id"] = user.ID
	}

	moved, err := s.contracts.UpdateStatusIf(ctx, contract.ID, contract.Status,
		string(constants.ContractActive), updates)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to sign contract", err)
	}
	if !moved {
		return nil, apperrors.NewConflictError("contract", "status", contract.Status)
	}

	if err := s.outbox.Enqueue(ctx, nil, events.ContractSigned, events.Payload{
		OrganizationID: contract.OrganizationID,
		ObjectID:       contract.ID,
		ObjectType:     "contract",
		RecipientIDs:   []string{contract.PartyAID},
		Title:          "Contract signed",
		Body:           contract.Title + " signed by " + req.SignerName,
		Link:           "/contracts/" + contract.ID,
	}); err != nil {
		return nil, apperrors.NewInternalError("failed to enqueue event", err)
	}

	s.audit.Log(ctx, contract.OrganizationID, "", "contract.signed", "contract", contract.ID, signerIP)
	return &SignResult{
		Status:      string(constants.ContractActive),
		SubmitToken: submitToken,
		SubmitURL:   "/submit/" + submitToken,
	}, nil
}

// Decline executes the public decline. Terminal.
func (s *ContractService) Decline(ctx context.Context, token, reason string) error {
	contract, err := s.lookupSignable(ctx, token)
	if err != nil {
		return err
	}

	moved, err := s.contracts.UpdateStatusIf(ctx, contract.ID, contract.Status,
		string(constants.ContractDeclined), nil)
	if err != nil {
		return apperrors.NewInternalError("failed to decline contract", err)
	}
	if !moved {
		return apperrors.NewConflictError("contract", "status", contract.Status)
	}

	if err := s.outbox.Enqueue(ctx, nil, events.ContractDeclined, events.Payload{
		OrganizationID: contract.OrganizationID,
		ObjectID:       contract.ID,
		ObjectType:     "contract",
		RecipientIDs:   []string{contract.PartyAID},
		Title:          "Contract declined",
		Body:           strings.TrimSpace(contract.Title + " " + reason),
		Link:           "/contracts/" + contract.ID,
	}); err != nil {
		return apperrors.NewInternalError("failed to enqueue event", err)
	}

	s.audit.Log(ctx, contract.OrganizationID, "", "contract.declined", "contract", contract.ID, reason)
	return nil
}

// SubmissionView is what the submit link shows before delivery. Tasks lists
// the contractor's open work when their email is linked to an account.
type SubmissionView struct {
	Title       string         `json:"title"`
	PartyBEmail string         `json:"party_b_email"`
	Status      string         `json:"status"`
	Tasks       []*models.Task `json:"tasks,omitempty"`
}

// GetBySubmitToken resolves the public work-submission link. Only active
// contracts accept submissions.
func (s *ContractService) GetBySubmitToken(ctx context.Context, token string) (*SubmissionView, error) {
	contract, err := s.lookupSubmittable(ctx, token)
	if err != nil {
		return nil, err
	}

	view := &SubmissionView{
		Title:       contract.Title,
		PartyBEmail: contract.PartyBEmail,
		Status:      contract.Status,
	}
	if contract.PartyBUserID != nil {
		all, err := s.tasks.ListByAssignee(ctx, *contract.PartyBUserID)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to list contractor tasks", err)
		}
		for _, t := range all {
			switch constants.TaskStatus(t.Status) {
			case constants.TaskAssigned, constants.TaskInProgress:
				view.Tasks = append(view.Tasks, t)
			}
		}
	}
	return view, nil
}

// SubmitWork records a delivery against an active contract and notifies the
// org-side party. When taskID names one of the contractor's assigned or
// in-progress tasks it is moved to submitted as part of the delivery.
func (s *ContractService) SubmitWork(ctx context.Context, token, taskID, message string) error {
	contract, err := s.lookupSubmittable(ctx, token)
	if err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return apperrors.NewValidationError("message", "a delivery message is required")
	}

	if taskID != "" {
		if err := s.submitContractTask(ctx, contract, taskID); err != nil {
			return err
		}
	}

	if err := s.outbox.Enqueue(ctx, nil, events.TaskSubmitted, events.Payload{
		OrganizationID: contract.OrganizationID,
		ObjectID:       contract.ID,
		ObjectType:     "contract",
		RecipientIDs:   []string{contract.PartyAID},
		Title:          "Work delivered on contract",
		Body:           contract.Title + ": " + strings.TrimSpace(message),
		Link:           "/contracts/" + contract.ID,
	}); err != nil {
		return apperrors.NewInternalError("failed to enqueue event", err)
	}

	s.audit.Log(ctx, contract.OrganizationID, "", "contract.work_submitted", "contract", contract.ID, "")
	return nil
}

// Dispute flags an active contract; Resolve returns it to active.
func (s *ContractService) Dispute(ctx context.Context, actor *auth.UserSession, contractID string) error {
	return s.adminTransition(ctx, actor, contractID, constants.ContractActive, constants.ContractDisputed, "contract.disputed")
}

func (s *ContractService) Resolve(ctx context.Context, actor *auth.UserSession, contractID string) error {
	return s.adminTransition(ctx, actor, contractID, constants.ContractDisputed, constants.ContractActive, "contract.resolved")
}

func (s *ContractService) adminTransition(ctx context.Context, actor *auth.UserSession, contractID string,
	from, to constants.ContractStatus, action string) error {
	contract, err := s.Get(ctx, actor, contractID)
	if err != nil {
		return err
	}
	if constants.ContractStatus(contract.Status) != from {
		return apperrors.NewTransitionError("contract", contract.Status, string(to),
			allowedContractTargets(constants.ContractStatus(contract.Status)))
	}
	moved, err := s.contracts.UpdateStatusIf(ctx, contractID, string(from), string(to), nil)
	if err != nil {
		return apperrors.NewInternalError("failed to update contract", err)
	}
	if !moved {
		return apperrors.NewConflictError("contract", "status", contract.Status)
	}
	s.audit.Log(ctx, contract.OrganizationID, actor.ID, action, "contract", contractID, "")
	return nil
}

// AttachPDF records the stored document path on a draft contract.
func (s *ContractService) AttachPDF(ctx context.Context, actor *auth.UserSession, contractID, path string) error {
	contract, err := s.Get(ctx, actor, contractID)
	if err != nil {
		return err
	}
	if contract.Status != string(constants.ContractDraft) {
		return apperrors.NewValidationError("status", "documents can only be attached to drafts")
	}
	if err := s.contracts.Update(ctx, contractID, map[string]interface{}{"pdf_path": path}); err != nil {
		return apperrors.NewInternalError("failed to attach document", err)
	}
	return nil
}

// ExpireStale reverts pending contracts with expired sign tokens and notifies
// their senders. Called by the scheduler.
func (s *ContractService) ExpireStale(ctx context.Context) (int, error) {
	ids, err := s.contracts.ExpirePendingBefore(ctx, nowFunc())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		contract, err := s.contracts.GetByID(ctx, id)
		if err != nil || contract == nil {
			continue
		}
		if err := s.outbox.Enqueue(ctx, nil, events.ContractExpired, events.Payload{
			OrganizationID: contract.OrganizationID,
			ObjectID:       id,
			ObjectType:     "contract",
			RecipientIDs:   []string{contract.PartyAID},
			Title:          "Signature link expired",
			Body:           contract.Title,
			Link:           "/contracts/" + id,
		}); err != nil {
			return len(ids), err
		}
	}
	return len(ids), nil
}

// lookupSignable resolves a sign token into a pending contract, mapping
// missing tokens to 404 and stale ones to 410.
func (s *ContractService) lookupSignable(ctx context.Context, token string) (*models.Contract, error) {
	contract, err := s.contracts.GetBySignToken(ctx, token)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up contract", err)
	}
	if contract == nil {
		return nil, apperrors.NewNotFoundError("signing link", "")
	}
	if contract.Status != string(constants.ContractPendingSignature) {
		return nil, apperrors.NewGoneError("signing link")
	}
	if contract.SignTokenExpiresAt != nil && contract.SignTokenExpiresAt.Before(nowFunc()) {
		return nil, apperrors.NewGoneError("signing link")
	}
	return contract, nil
}

func (s *ContractService) lookupSubmittable(ctx context.Context, token string) (*models.Contract, error) {
	contract, err := s.contracts.GetBySubmitToken(ctx, token)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up contract", err)
	}
	if contract == nil {
		return nil, apperrors.NewNotFoundError("submission link", "")
	}
	if contract.Status != string(constants.ContractActive) {
		return nil, apperrors.NewGoneError("submission link")
	}
	return contract, nil
}

// submitContractTask moves one of the counterparty's assigned or in-progress
// tasks to submitted as part of a public delivery.
func (s *ContractService) submitContractTask(ctx context.Context, contract *models.Contract, taskID string) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return apperrors.NewInternalError("failed to load task", err)
	}
	if task == nil || contract.PartyBUserID == nil ||
		task.AssigneeID == nil || *task.AssigneeID != *contract.PartyBUserID {
		return apperrors.NewNotFoundError("task", taskID)
	}

	// Delivering an assigned task starts it first.
	if constants.TaskStatus(task.Status) == constants.TaskAssigned {
		if _, err := s.tasks.UpdateStatusIf(ctx, nil, taskID,
			string(constants.TaskAssigned), string(constants.TaskInProgress)); err != nil {
			return apperrors.NewInternalError("failed to start task", err)
		}
	}

	moved, err := s.tasks.UpdateStatusIf(ctx, nil, taskID,
		string(constants.TaskInProgress), string(constants.TaskSubmitted))
	if err != nil {
		return apperrors.NewInternalError("failed to submit task", err)
	}
	if !moved {
		return apperrors.NewTransitionError("task", task.Status, string(constants.TaskSubmitted),
			allowedTaskTargets(constants.TaskStatus(task.Status)))
	}
	if err := s.tasks.Update(ctx, nil, taskID, map[string]interface{}{
		constants.FieldTaskSubmittedAt: nowFunc(),
	}); err != nil {
		return apperrors.NewInternalError("failed to stamp submission", err)
	}
	return nil
}

func allowedContractTargets(from constants.ContractStatus) []string {
	targets := constants.ContractTransitions[from]
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = string(t)
	}
	return out
}
