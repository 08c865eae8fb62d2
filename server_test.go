package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/mmdatafocus/lpg_backend/workflow"
	"gorm.io/gorm"
)

func testRouter(ready bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return newRouter(func() bool { return ready })
}

func bearer(t *testing.T, role models.Role, tenantId int) string {
	t.Helper()
	token, err := utils.JwtGenerate(utils.JwtCustomClaim{
		UserId:   7,
		UserName: "tester",
		TenantId: tenantId,
		Role:     string(role),
	}, time.Hour)
	if err != nil {
		t.Fatalf("JwtGenerate: %v", err)
	}
	return "Bearer " + token
}

func do(r *gin.Engine, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthzBypassesReadiness(t *testing.T) {
	w := do(testRouter(false), http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
}

func TestNotReadyReturns503(t *testing.T) {
	w := do(testRouter(false), http.MethodGet, "/api/v1/orders", "", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestApiRequiresToken(t *testing.T) {
	w := do(testRouter(true), http.MethodGet, "/api/v1/orders", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	w := do(testRouter(true), http.MethodGet, "/nope", "", "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "route not found") {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestCorrelationHeaderEchoed(t *testing.T) {
	r := testRouter(true)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Correlation-ID"); got != "abc-123" {
		t.Fatalf("X-Correlation-ID = %q", got)
	}
}

func TestCorsPreflightAllowsIdempotencyKey(t *testing.T) {
	t.Setenv("GO_ENV", "")
	r := testRouter(true)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://pangkalan.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Idempotency-Key")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	allowed := strings.ToLower(w.Header().Get("Access-Control-Allow-Headers"))
	if !strings.Contains(allowed, "idempotency-key") {
		t.Fatalf("Access-Control-Allow-Headers = %q (status %d)", allowed, w.Code)
	}
}

func TestDistributorOnlyRoutesRejectPangkalan(t *testing.T) {
	r := testRouter(true)
	auth := bearer(t, models.RolePangkalan, 3)
	cases := []struct{ method, path, body string }{
		{http.MethodPost, "/api/v1/tenants", `{"name":"x"}`},
		{http.MethodPost, "/api/v1/allocations/plans/generate", `{"month":"2024-08","product_id":1}`},
		{http.MethodDelete, "/api/v1/stock/movements/1", ""},
		{http.MethodGet, "/api/v1/reports/stock-drift", ""},
	}
	for _, tc := range cases {
		w := do(r, tc.method, tc.path, auth, tc.body)
		if w.Code != http.StatusForbidden {
			t.Fatalf("%s %s: status = %d, want 403", tc.method, tc.path, w.Code)
		}
	}
}

func TestBadRequestsAreRejectedBeforeStorage(t *testing.T) {
	r := testRouter(true)
	auth := bearer(t, models.RoleAgent, 0)
	cases := []struct {
		name, method, path, body string
	}{
		{"non numeric id", http.MethodGet, "/api/v1/orders/abc", ""},
		{"unknown status", http.MethodPost, "/api/v1/orders/1/transition", `{"status":"BOGUS"}`},
		{"missing status", http.MethodPost, "/api/v1/orders/1/transition", `{}`},
		{"paid without flag", http.MethodPost, "/api/v1/orders/1/paid", `{}`},
		{"bad plan date", http.MethodPost, "/api/v1/allocations/plans", `{"tenant_id":1,"date":"2024-13-45","product_id":1}`},
		{"bad month", http.MethodGet, "/api/v1/reports/monthly?month=2024/08", ""},
		{"bad tenant filter", http.MethodGet, "/api/v1/reports/monthly?month=2024-08&tenant_id=x", ""},
		{"bad scope", http.MethodGet, "/api/v1/stock/balance?scope_id=-1&product_id=1", ""},
		{"bad tenant path", http.MethodPost, "/api/v1/stock/tenants/0/receive", `{"product_id":1,"qty":1}`},
		{"non numeric product", http.MethodGet, "/api/v1/products/x", ""},
		{"resolve without input", http.MethodGet, "/api/v1/products/resolve", ""},
		{"malformed quota", http.MethodPut, "/api/v1/tenants/1/quota", `{"monthly_quota":"many"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.method, tc.path, auth, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (%s)", w.Code, w.Body.String())
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	validationErr := utils.ValidateStruct(&models.NewTenant{})
	if validationErr == nil {
		t.Fatalf("expected validation error for empty tenant")
	}
	cases := []struct {
		err  error
		want int
	}{
		{&models.NotFoundError{Resource: "order", Id: 9}, http.StatusNotFound},
		{utils.ErrorRecordNotFound, http.StatusNotFound},
		{fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{&models.InvalidTransitionError{From: models.OrderStatusDraft, To: models.OrderStatusShipped}, http.StatusConflict},
		{&models.AlreadyTerminalError{OrderId: 1, Status: models.OrderStatusCompleted}, http.StatusConflict},
		{fmt.Errorf("%w: order is shipped", models.ErrInvalidTransition), http.StatusConflict},
		{workflow.ErrIdempotencyInProgress, http.StatusConflict},
		{&models.InsufficientStockError{TenantId: 1, ProductId: 1, Available: 2, Requested: 5}, http.StatusUnprocessableEntity},
		{&models.InvalidQuantityError{Field: "qty", Qty: -1}, http.StatusBadRequest},
		{&models.UnresolvedProductError{Input: "99kg"}, http.StatusBadRequest},
		{validationErr, http.StatusBadRequest},
		{utils.ErrorTenantRequired, http.StatusBadRequest},
		{fmt.Errorf("%w: 12", utils.ErrorInvalidPhone), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := errorStatus(tc.err); got != tc.want {
			t.Fatalf("errorStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRespondErrorBodies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/stock", func(c *gin.Context) {
		respondError(c, "test", &models.InsufficientStockError{TenantId: 1, ProductId: 2, Available: 3, Requested: 10})
	})
	r.GET("/internal", func(c *gin.Context) {
		respondError(c, "test", errors.New("dsn leaked"))
	})

	w := do(r, http.MethodGet, "/stock", "", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, `"available":3`) || !strings.Contains(body, `"requested":10`) {
		t.Fatalf("body = %s", body)
	}

	w = do(r, http.MethodGet, "/internal", "", "")
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "dsn leaked") {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("splitAndTrim = %v", got)
	}
	if splitAndTrim("  ") != nil {
		t.Fatalf("blank input should yield nil")
	}
}
