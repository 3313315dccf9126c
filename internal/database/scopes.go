package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/taskhub-api/internal/utils"
)

// Paginate applies a page request to a GORM query
func Paginate(page utils.Page) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(page.Offset()).Limit(page.Size)
	}
}

// ForTenant restricts a query on table to rows of a single tenant.
func ForTenant(table string, tenantID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".tenant_id = ?", tenantID)
	}
}
