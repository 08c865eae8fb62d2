package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
)

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CorrelationID(), AuthMiddleware())
	chain := append(handlers, func(c *gin.Context) {
		ctx := c.Request.Context()
		tenantId, _ := utils.GetTenantIdFromContext(ctx)
		role, _ := utils.GetRoleFromContext(ctx)
		correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
		c.JSON(http.StatusOK, gin.H{
			"tenant_id":      tenantId,
			"role":           role,
			"is_admin":       utils.IsAdminContext(ctx),
			"correlation_id": correlationId,
		})
	})
	r.GET("/whoami", chain...)
	return r
}

func signed(t *testing.T, claim utils.JwtCustomClaim) string {
	t.Helper()
	token, err := utils.JwtGenerate(claim, time.Hour)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	return token
}

func doRequest(r http.Handler, token string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_PangkalanIsTenantScoped(t *testing.T) {
	r := newTestRouter(RequireAuth())
	w := doRequest(r, signed(t, utils.JwtCustomClaim{UserId: 3, UserName: "siti", TenantId: 12, Role: "pangkalan"}), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{`"tenant_id":12`, `"role":"PANGKALAN"`, `"is_admin":false`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
}

func TestAuthMiddleware_AgentBypassesTenantScope(t *testing.T) {
	r := newTestRouter(RequireAuth())
	w := doRequest(r, signed(t, utils.JwtCustomClaim{UserId: 1, Role: "AGENT"}), nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"is_admin":true`) {
		t.Fatalf("expected agent to be admin scoped, got %d %s", w.Code, w.Body.String())
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	r := newTestRouter(RequireAuth())

	if w := doRequest(r, "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := doRequest(r, "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", w.Code)
	}
	noTenant := signed(t, utils.JwtCustomClaim{UserId: 3, Role: "PANGKALAN"})
	if w := doRequest(r, noTenant, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for pangkalan without tenant, got %d", w.Code)
	}
	unknown := signed(t, utils.JwtCustomClaim{UserId: 3, Role: "CONSUMER", TenantId: 1})
	if w := doRequest(r, unknown, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown role, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	r := newTestRouter(RequireAuth(), RequireRole(models.RoleAdmin))
	pangkalan := signed(t, utils.JwtCustomClaim{UserId: 3, TenantId: 12, Role: "PANGKALAN"})
	if w := doRequest(r, pangkalan, nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	admin := signed(t, utils.JwtCustomClaim{UserId: 1, Role: "ADMIN"})
	if w := doRequest(r, admin, nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}
}

func TestCorrelationID(t *testing.T) {
	r := newTestRouter()
	w := doRequest(r, "", map[string]string{HeaderCorrelationID: "abc-123"})
	if got := w.Header().Get(HeaderCorrelationID); got != "abc-123" {
		t.Fatalf("expected correlation id echoed, got %q", got)
	}
	if !strings.Contains(w.Body.String(), `"correlation_id":"abc-123"`) {
		t.Fatalf("expected correlation id in context, got %s", w.Body.String())
	}
	if generated := doRequest(r, "", nil).Header().Get(HeaderCorrelationID); generated == "" {
		t.Fatalf("expected a generated correlation id")
	}
}
