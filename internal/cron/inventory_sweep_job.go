package cron

import (
	"context"
	"fmt"

	"github.com/abdul-hamid-achik/luzimarket-backend/internal/inventory"
	"github.com/abdul-hamid-achik/luzimarket-backend/pkg/logger"
)

type stockSweeper interface {
	CheckLevels(ctx context.Context) (*inventory.SweepResult, error)
}

// InventorySweepJobParams configure the stock level sweep.
type InventorySweepJobParams struct {
	Logger  *logger.Logger
	Sweeper stockSweeper
}

// NewInventorySweepJob builds the job that scans active products for low or
// exhausted stock and raises vendor alerts.
func NewInventorySweepJob(params InventorySweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("inventory sweeper required")
	}
	return &inventorySweepJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
	}, nil
}

type inventorySweepJob struct {
	logg    *logger.Logger
	sweeper stockSweeper
}

func (j *inventorySweepJob) Name() string { return "inventory-sweep" }

func (j *inventorySweepJob) Run(ctx context.Context) error {
	result, err := j.sweeper.CheckLevels(ctx)
	if err != nil {
		return fmt.Errorf("inventory sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"products_scanned":     result.Scanned,
		"alerts_raised":        result.Alerted,
		"alerts_debounced":     result.Skipped,
		"products_deactivated": result.Deactivated,
	})
	j.logg.Info(logCtx, "inventory sweep complete")
	return nil
}
