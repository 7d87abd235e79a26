package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sac-service/internal/domain"
	apperrors "github.com/spec-kit/sac-service/pkg/util/errorutil"
)

// Action names a capability checked before serving a screen or mutation.
type Action string

const (
	ActionCasesView           Action = "cases.view"
	ActionCasesCreate         Action = "cases.create"
	ActionCasesUpdateStatus   Action = "cases.update_status"
	ActionAlertsView          Action = "alerts.view"
	ActionDashboardSupervisor Action = "dashboard.supervisor"
	ActionDashboardManager    Action = "dashboard.manager"
	ActionAgentsView          Action = "agents.view"
	ActionAgentsManage        Action = "agents.manage"
	ActionCategoriesView      Action = "categories.view"
)

var allActions = []Action{
	ActionCasesView,
	ActionCasesCreate,
	ActionCasesUpdateStatus,
	ActionAlertsView,
	ActionDashboardSupervisor,
	ActionDashboardManager,
	ActionAgentsView,
	ActionAgentsManage,
	ActionCategoriesView,
}

var capabilities = map[domain.Role]map[Action]bool{
	domain.RoleAgent: {
		ActionCasesView:         true,
		ActionCasesCreate:       true,
		ActionCasesUpdateStatus: true,
		ActionAlertsView:        true,
		ActionCategoriesView:    true,
	},
	domain.RoleSupervisor: {
		ActionCasesView:           true,
		ActionCasesCreate:         true,
		ActionCasesUpdateStatus:   true,
		ActionAlertsView:          true,
		ActionDashboardSupervisor: true,
		ActionAgentsView:          true,
		ActionAgentsManage:        true,
		ActionCategoriesView:      true,
	},
	domain.RoleManager: {
		ActionCasesView:           true,
		ActionCasesCreate:         true,
		ActionCasesUpdateStatus:   true,
		ActionAlertsView:          true,
		ActionDashboardSupervisor: true,
		ActionDashboardManager:    true,
		ActionAgentsView:          true,
		ActionAgentsManage:        true,
		ActionCategoriesView:      true,
	},
}

// Can reports whether role may perform action. Unknown roles can do nothing.
func Can(role domain.Role, action Action) bool {
	return capabilities[role][action]
}

// Capabilities lists the actions granted to role in a stable order.
func Capabilities(role domain.Role) []Action {
	out := make([]Action, 0, len(allActions))
	for _, action := range allActions {
		if Can(role, action) {
			out = append(out, action)
		}
	}
	return out
}

// RequireCapability rejects callers whose role lacks action.
func RequireCapability(action Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !Can(principal.Role, action) {
			return apperrors.NewForbidden("role " + string(principal.Role) + " cannot " + string(action))
		}
		return c.Next()
	}
}
