package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/sirupsen/logrus"
)

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func reportCacheTTL() time.Duration {
	// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func logSlowReport(ctx context.Context, name string, started time.Time, extra logrus.Fields) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	tenantId, _ := utils.GetTenantIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(extra).WithFields(logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"tenant_id":      tenantId,
		"correlation_id": cid,
	}).Warn("slow_report")
}

// rollupCacheKey covers every input that changes the result; the caller's tenant is
// already folded into tenantId by the time this is built.
func rollupCacheKey(month models.YearMonth, tenantId *int, productId *int) string {
	return fmt.Sprintf("report:rollup:%s:%d:%d", month.String(), utils.DereferencePtr(tenantId), utils.DereferencePtr(productId))
}

func cacheGet[T any](ctx context.Context, key string, dest *T) bool {
	raw, ok, err := config.GetRedisValue(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func cacheSet(ctx context.Context, key string, obj any, ttl time.Duration) {
	b, err := json.Marshal(obj)
	if err != nil {
		return
	}
	if err := config.SetRedisValue(ctx, key, b, ttl); err != nil {
		config.LogError(config.GetLogger(), "reportCache.go", "cacheSet", "SetRedisValue", key, err)
	}
}
