// Package policy implements row-level expense visibility: employees see
// their own expenses, managers additionally see their direct reports' (one
// level, no transitive chain), admins see the whole company. Nothing ever
// crosses a company boundary.
package policy

import (
	"github.com/bwmarrin/snowflake"
	userdomain "github.com/smallbiznis/expensio/internal/user/domain"
	"github.com/smallbiznis/expensio/pkg/tenantctx"
	"gorm.io/gorm"
)

// CanView decides single-expense access. ownerManagerID is the owner's
// manager at read time. Company equality must already hold; repositories
// scope every lookup by company id.
func CanView(actor tenantctx.Principal, ownerID snowflake.ID, ownerManagerID *snowflake.ID) bool {
	switch userdomain.Role(actor.Role) {
	case userdomain.RoleAdmin:
		return true
	case userdomain.RoleManager:
		if ownerID == actor.UserID {
			return true
		}
		return ownerManagerID != nil && *ownerManagerID == actor.UserID
	default:
		return ownerID == actor.UserID
	}
}

// CanModify decides who may update or delete an expense. Owners modify their
// own; admins modify any in their company.
func CanModify(actor tenantctx.Principal, ownerID snowflake.ID) bool {
	if userdomain.Role(actor.Role) == userdomain.RoleAdmin {
		return true
	}
	return ownerID == actor.UserID
}

// Scope returns a gorm scope restricting an expense query to the rows the
// actor may list.
func Scope(actor tenantctx.Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch userdomain.Role(actor.Role) {
		case userdomain.RoleAdmin:
			return db
		case userdomain.RoleManager:
			return db.Where(
				"expenses.user_id = ? OR expenses.user_id IN (SELECT id FROM users WHERE manager_id = ? AND company_id = ?)",
				actor.UserID, actor.UserID, actor.CompanyID,
			)
		default:
			return db.Where("expenses.user_id = ?", actor.UserID)
		}
	}
}
