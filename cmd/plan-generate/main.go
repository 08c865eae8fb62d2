package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/mmdatafocus/lpg_backend/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	from := flag.String("from", "", "Required: first month (YYYY-MM)")
	to := flag.String("to", "", "Optional: last month (YYYY-MM). Defaults to --from.")
	productIDs := flag.String("product-ids", "", "Optional: comma-separated product ids. Defaults to the catalog default product.")
	channel := flag.String("channel", string(models.AllocationChannelNormal), "Allocation channel (NORMAL/DISCRETIONARY)")
	overwrite := flag.Bool("overwrite", false, "Delete existing plan rows for the month and product before generating")
	flag.Parse()

	fromMonth, err := models.ParseYearMonth(strings.TrimSpace(*from))
	if err != nil {
		fmt.Fprintf(os.Stderr, "--from: %v\n", err)
		os.Exit(1)
	}
	toMonth := fromMonth
	if strings.TrimSpace(*to) != "" {
		if toMonth, err = models.ParseYearMonth(strings.TrimSpace(*to)); err != nil {
			fmt.Fprintf(os.Stderr, "--to: %v\n", err)
			os.Exit(1)
		}
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	ctx := utils.WithSkipTenantScope(context.Background())
	ctx = utils.SetUserNameInContext(ctx, "PlanGenerate")
	models.SetAuditSink(models.DefaultAuditSink())

	ids, err := parseIds(*productIDs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "--product-ids: %v\n", err)
		os.Exit(1)
	}
	if len(ids) == 0 {
		catalog, err := models.LoadProductCatalog(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
			os.Exit(1)
		}
		def, ok := catalog.Default()
		if !ok {
			fmt.Fprintln(os.Stderr, "no default product; pass --product-ids")
			os.Exit(1)
		}
		ids = []int{def.ID}
	}

	results, err := workflow.RunPlanGeneration(ctx, logger, workflow.PlanGenerationJob{
		From:       fromMonth,
		To:         toMonth,
		ProductIds: ids,
		Channel:    models.AllocationChannel(strings.ToUpper(strings.TrimSpace(*channel))),
		Overwrite:  *overwrite,
	})
	for _, r := range results {
		fmt.Printf("month=%s product=%d tenants=%d created=%d skipped=%d deleted=%d\n",
			r.Month, r.ProductId, r.Tenants, r.RowsCreated, r.RowsSkipped, r.RowsDeleted)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan generation failed: %v\n", err)
		os.Exit(1)
	}
}

func parseIds(csv string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid product id %q", part)
		}
		ids = append(ids, id)
	}
	return utils.UniqueSlice(ids), nil
}
