package services

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/orbitapp/backend/pkg/constants"
)

// SecurityValidator vets admin-authored analytics SQL before it reaches the
// database. Only a single SELECT over the allowlisted tables survives.
type SecurityValidator struct {
	allowedTables map[string]bool
}

func NewSecurityValidator() *SecurityValidator {
	return &SecurityValidator{allowedTables: constants.AnalyticsQueryableTables()}
}

// tableCollector walks the AST gathering every referenced table name,
// including those buried in subqueries and joins.
type tableCollector struct {
	tables []string
}

func (c *tableCollector) Enter(in ast.Node) (ast.Node, bool) {
	if name, ok := in.(*ast.TableName); ok {
		c.tables = append(c.tables, name.Name.L)
	}
	return in, false
}

func (c *tableCollector) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}

// Validate parses the query and enforces the read-only contract: exactly one
// statement, a SELECT at the top, no SELECT ... INTO, no locking reads, and
// every referenced table on the allowlist.
func (v *SecurityValidator) Validate(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("query is empty")
	}

	p := parser.New()
	stmts, _, err := p.ParseSQL(trimmed)
	if err != nil {
		return fmt.Errorf("SQL syntax error: %v", err)
	}
	if len(stmts) != 1 {
		return fmt.Errorf("exactly one statement is allowed, got %d", len(stmts))
	}

	var sel *ast.SelectStmt
	switch stmt := stmts[0].(type) {
	case *ast.SelectStmt:
		sel = stmt
	case *ast.SetOprStmt:
		// UNION/INTERSECT/EXCEPT read like SELECTs; tables are still checked
		// by the collector below.
	default:
		return fmt.Errorf("only SELECT statements are allowed")
	}

	if sel != nil {
		if sel.SelectIntoOpt != nil {
			return fmt.Errorf("SELECT ... INTO is not allowed")
		}
		if sel.LockInfo != nil && sel.LockInfo.LockType != ast.SelectLockNone {
			return fmt.Errorf("locking reads are not allowed")
		}
	}

	collector := &tableCollector{}
	stmts[0].Accept(collector)
	if len(collector.tables) == 0 {
		return fmt.Errorf("query must read from at least one table")
	}
	for _, table := range collector.tables {
		if !v.allowedTables[table] {
			return fmt.Errorf("table '%s' is not queryable", table)
		}
	}
	return nil
}

// EnforceLimit wraps the validated query so at most maxRows come back,
// without disturbing any LIMIT the author wrote inside.
func (v *SecurityValidator) EnforceLimit(query string, maxRows int) string {
	if maxRows <= 0 {
		maxRows = constants.MaxPageSize
	}
	return fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", strings.TrimRight(strings.TrimSpace(query), ";"), maxRows)
}
