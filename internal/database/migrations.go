package database

import (
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
)

type index struct {
	table   string
	name    string
	columns []string
}

// Every listing is filtered by tenant first, so the composite indexes lead
// with tenant_id.
var indexes = []index{
	{"tasks", "idx_tasks_tenant_status", []string{"tenant_id", "status"}},
	{"tasks", "idx_tasks_tenant_assignee", []string{"tenant_id", "assignee_id"}},
	{"tasks", "idx_tasks_project_created", []string{"project_id", "created_at"}},
	{"projects", "idx_projects_tenant_created", []string{"tenant_id", "created_at"}},
	{"users", "idx_users_tenant_role", []string{"tenant_id", "role"}},
	{"audit_logs", "idx_audit_logs_tenant_created", []string{"tenant_id", "created_at"}},
	{"project_members", "idx_project_members_user", []string{"user_id"}},
}

// AddIndexes adds performance-critical indexes to the database. Existing
// indexes are left alone, so it is safe to run on every start.
func AddIndexes(db *gorm.DB) error {
	m := db.Migrator()
	for _, idx := range indexes {
		if m.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, strings.Join(idx.columns, ", "))
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
		slog.Debug("created index", "index", idx.name, "table", idx.table)
	}
	return nil
}
