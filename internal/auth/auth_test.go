package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/sac-service/internal/domain"
	"github.com/spec-kit/sac-service/internal/repository/memory"
	apperrors "github.com/spec-kit/sac-service/pkg/util/errorutil"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, expiresAt, err := tm.GenerateToken("usr-1", domain.RoleSupervisor)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 2*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", claims.Subject)
	assert.Equal(t, domain.RoleSupervisor, claims.Role)

	_, err = NewTokenManager("other", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpiredAndRoleless(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, err := tm.GenerateToken("usr-1", domain.RoleAgent)
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 1).ParseToken(expired)
	assert.Error(t, err)

	roleless, _, err := NewTokenManager("secret", 1).GenerateToken("usr-1", domain.Role("admin"))
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 1).ParseToken(roleless)
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("agente123", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "agente123"))
	assert.Error(t, ComparePassword(hash, "wrong"))

	hash, err = Hasher(0)("x")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestCan(t *testing.T) {
	tests := []struct {
		role   domain.Role
		action Action
		want   bool
	}{
		{domain.RoleAgent, ActionCasesUpdateStatus, true},
		{domain.RoleAgent, ActionDashboardSupervisor, false},
		{domain.RoleAgent, ActionAgentsManage, false},
		{domain.RoleSupervisor, ActionDashboardSupervisor, true},
		{domain.RoleSupervisor, ActionAgentsManage, true},
		{domain.RoleSupervisor, ActionDashboardManager, false},
		{domain.RoleManager, ActionDashboardManager, true},
		{domain.Role("admin"), ActionCasesView, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Can(tt.role, tt.action), "%s %s", tt.role, tt.action)
	}

	assert.Len(t, Capabilities(domain.RoleManager), len(allActions))
	assert.Len(t, Capabilities(domain.RoleSupervisor), len(allActions)-1)
	assert.Equal(t, []Action{ActionCasesView, ActionCasesCreate, ActionCasesUpdateStatus, ActionAlertsView, ActionCategoriesView},
		Capabilities(domain.RoleAgent))
}

func newTestApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()
	users := memory.NewUserRepository()
	require.NoError(t, users.Create(context.Background(), &domain.User{ID: "usr-agent", Name: "Laura", Role: domain.RoleAgent}))
	require.NoError(t, users.Create(context.Background(), &domain.User{ID: "usr-sup", Name: "Marta", Role: domain.RoleSupervisor}))

	tokens := NewTokenManager("secret", 5)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	mw := NewAuthMiddleware(tokens, users)
	app.Get("/dashboard", mw.Handle, RequireCapability(ActionDashboardSupervisor), func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.Actor())
	})
	return app, tokens
}

func TestMiddleware(t *testing.T) {
	app, tokens := newTestApp(t)

	call := func(header string) (int, string) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		buf := make([]byte, 64)
		n, _ := resp.Body.Read(buf)
		return resp.StatusCode, string(buf[:n])
	}

	status, _ := call("")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call("Token abc")
	assert.Equal(t, http.StatusUnauthorized, status)

	ghost, _, err := tokens.GenerateToken("usr-ghost", domain.RoleManager)
	require.NoError(t, err)
	status, _ = call("Bearer " + ghost)
	assert.Equal(t, http.StatusUnauthorized, status)

	agent, _, err := tokens.GenerateToken("usr-agent", domain.RoleAgent)
	require.NoError(t, err)
	status, body := call("Bearer " + agent)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, body)

	sup, _, err := tokens.GenerateToken("usr-sup", domain.RoleSupervisor)
	require.NoError(t, err)
	status, body = call("Bearer " + sup)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Marta", body)
}

func TestPrincipal_Actor(t *testing.T) {
	var p *Principal
	assert.Equal(t, "system", p.Actor())
	assert.Equal(t, "a@x", (&Principal{User: &domain.User{Email: "a@x"}}).Actor())
}
