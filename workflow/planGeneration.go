package workflow

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/lpg_backend/config"
	"github.com/mmdatafocus/lpg_backend/models"
	"github.com/mmdatafocus/lpg_backend/utils"
	"github.com/sirupsen/logrus"
)

type PlanGenerationJob struct {
	From       models.YearMonth
	To         models.YearMonth
	ProductIds []int
	Channel    models.AllocationChannel
	Overwrite  bool
}

// MonthsBetween returns from..to inclusive; empty when to is before from.
func MonthsBetween(from models.YearMonth, to models.YearMonth) []models.YearMonth {
	var months []models.YearMonth
	cur := from.FirstDay()
	end := to.FirstDay()
	for !cur.After(end) {
		months = append(months, models.YearMonthOf(cur))
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// RunPlanGeneration generates plans month by month and product by product.
// Reruns without Overwrite only fill gaps, so a failed run can simply be restarted.
func RunPlanGeneration(ctx context.Context, logger *logrus.Logger, job PlanGenerationJob) ([]*models.PlanGenerationResult, error) {
	if logger == nil {
		logger = config.GetLogger()
	}
	if len(job.ProductIds) == 0 {
		return nil, fmt.Errorf("plan generation: at least one product is required")
	}
	months := MonthsBetween(job.From, job.To)
	if len(months) == 0 {
		return nil, fmt.Errorf("plan generation: empty month range %s..%s", job.From, job.To)
	}

	ctx = utils.WithSkipTenantScope(ctx)
	var results []*models.PlanGenerationResult
	for _, month := range months {
		for _, productId := range job.ProductIds {
			result, err := models.AutoGeneratePlan(ctx, models.GeneratePlanInput{
				Month:     month,
				ProductId: productId,
				Channel:   job.Channel,
				Overwrite: job.Overwrite,
			})
			if err != nil {
				config.LogError(logger, "planGeneration.go", "RunPlanGeneration", "generate", map[string]any{
					"month":      month.String(),
					"product_id": productId,
				}, err)
				return results, err
			}
			logger.WithFields(logrus.Fields{
				"month":        result.Month,
				"product_id":   result.ProductId,
				"tenants":      result.Tenants,
				"rows_created": result.RowsCreated,
				"rows_skipped": result.RowsSkipped,
				"rows_deleted": result.RowsDeleted,
			}).Info("plan.generate.done")
			results = append(results, result)
		}
	}
	return results, nil
}
