package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/mmdatafocus/lpg_backend/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	tenantID := flag.Int("tenant-id", 0, "Optional: rebuild only one tenant. If 0, rebuilds every tenant key found in the ledger.")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing keys and continue rebuilding others")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	ctx := utils.WithSkipTenantScope(context.Background())
	ctx = utils.SetUserNameInContext(ctx, "StockRebuild")

	summary, err := workflow.RebuildTenantStocks(ctx, logger, *tenantID, *continueOnError)
	fmt.Printf("keys=%d changed=%d failed=%d\n", summary.Keys, summary.Changed, summary.Failed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
		os.Exit(1)
	}
	if summary.Failed > 0 {
		os.Exit(2)
	}
}
