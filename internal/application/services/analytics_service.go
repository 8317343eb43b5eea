package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/orbitapp/backend/internal/infrastructure/persistence"
	"github.com/orbitapp/backend/pkg/auth"
	"github.com/orbitapp/backend/pkg/constants"
	apperrors "github.com/orbitapp/backend/pkg/errors"
	"github.com/orbitapp/backend/pkg/utils"
)

// AnalyticsService serves dashboards, raw admin queries and exports.
type AnalyticsService struct {
	analytics *persistence.AnalyticsRepository
	orgs      *OrganizationService
	validator *SecurityValidator
	audit     *AuditService
}

func NewAnalyticsService(analytics *persistence.AnalyticsRepository, orgs *OrganizationService,
	validator *SecurityValidator, audit *AuditService) *AnalyticsService {
	return &AnalyticsService{analytics: analytics, orgs: orgs, validator: validator, audit: audit}
}

// Overview returns the org dashboard headline block.
func (s *AnalyticsService) Overview(ctx context.Context, actor *auth.UserSession, orgID string) (*persistence.Overview, error) {
	if err := s.orgs.RequireOrgRole(ctx, actor, orgID,
		constants.RoleAdmin, constants.RoleProjectManager, constants.RoleSales); err != nil {
		return nil, err
	}
	return s.analytics.Overview(ctx, orgID)
}

// Earnings returns the caller's monthly earnings series.
func (s *AnalyticsService) Earnings(ctx context.Context, actor *auth.UserSession, months int) ([]*persistence.EarningsBucket, error) {
	return s.analytics.EarningsByMonth(ctx, actor.ID, months)
}

// Throughput returns weekly approved/rejected counts for an org.
func (s *AnalyticsService) Throughput(ctx context.Context, actor *auth.UserSession, orgID string, weeks int) ([]*persistence.ThroughputBucket, error) {
	if err := s.orgs.RequireOrgRole(ctx, actor, orgID,
		constants.RoleAdmin, constants.RoleProjectManager); err != nil {
		return nil, err
	}
	return s.analytics.ThroughputByWeek(ctx, orgID, weeks)
}

// QCSummary returns per-reviewer outcomes for an org.
func (s *AnalyticsService) QCSummary(ctx context.Context, actor *auth.UserSession, orgID string) ([]*persistence.QCSummary, error) {
	if err := s.orgs.RequireOrgRole(ctx, actor, orgID,
		constants.RoleAdmin, constants.RoleProjectManager, constants.RoleQualityControl); err != nil {
		return nil, err
	}
	return s.analytics.QCSummaries(ctx, orgID)
}

// QueryResult is a raw admin query result.
type QueryResult struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Query runs an admin-authored SELECT after validation, capped to maxRows.
func (s *AnalyticsService) Query(ctx context.Context, actor *auth.UserSession, query string) (*QueryResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.NewPermissionError("run", "analytics query")
	}
	if err := s.validator.Validate(query); err != nil {
		return nil, apperrors.NewValidationError("query", err.Error())
	}

	safe := s.validator.EnforceLimit(query, constants.MaxPageSize)
	columns, rows, err := s.analytics.RunQuery(ctx, safe)
	if err != nil {
		return nil, apperrors.NewInternalError("query execution failed", err)
	}

	s.audit.Log(ctx, "", actor.ID, "analytics.query", "query", "", query)
	return &QueryResult{Columns: columns, Rows: rows}, nil
}

// Export renders a query result as csv or json bytes plus a content type.
func (s *AnalyticsService) Export(ctx context.Context, actor *auth.UserSession, query, format string) ([]byte, string, error) {
	result, err := s.Query(ctx, actor, query)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case "json", "":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, "", apperrors.NewInternalError("failed to encode export", err)
		}
		return data, "application/json", nil

	case "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(result.Columns); err != nil {
			return nil, "", apperrors.NewInternalError("failed to encode export", err)
		}
		for _, row := range result.Rows {
			record := make([]string, len(row))
			for i, v := range row {
				record[i] = formatCell(v)
			}
			if err := w.Write(record); err != nil {
				return nil, "", apperrors.NewInternalError("failed to encode export", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", apperrors.NewInternalError("failed to encode export", err)
		}
		return buf.Bytes(), "text/csv", nil

	default:
		return nil, "", apperrors.NewValidationError("format", "format must be csv or json")
	}
}

// formatCell renders a single export value. Times print as RFC3339,
// numerics without the float artifact %v would add, everything else through
// fmt.
func formatCell(v interface{}) string {
	if v == nil {
		return ""
	}
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	if f, err := utils.ToFloat(v); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprintf("%v", v)
}
