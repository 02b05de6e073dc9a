package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/comanda-pos/comanda-pos/internal/jobs"
	"github.com/comanda-pos/comanda-pos/internal/stock"
)

// LowStockScanJob walks the inventory and reports components that have fallen
// below their minimum stock. Alerts dedupe through Redis so a component that
// stays low does not page on every scan.
type LowStockScanJob struct {
	Stock    stock.LowStockLister
	Redis    *redis.Client
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	AlertTTL time.Duration
}

// NewLowStockScanJob wires dependencies for the scan handler.
func NewLowStockScanJob(lister stock.LowStockLister, rdb *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics, alertTTL time.Duration) *LowStockScanJob {
	if alertTTL <= 0 {
		alertTTL = 6 * time.Hour
	}
	return &LowStockScanJob{Stock: lister, Redis: rdb, Logger: logger, Metrics: metrics, AlertTTL: alertTTL}
}

// Handle processes TaskTypeLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stock == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	components, err := j.Stock.ListBelowMinimum(ctx)
	if err != nil {
		resultErr = err
		j.Logger.Error("low stock scan failed", slog.Any("error", err))
		return resultErr
	}
	j.Metrics.SetLowStockComponents(len(components))

	alerted := 0
	for _, c := range components {
		if !payload.Force && j.alreadyAlerted(ctx, c.ID) {
			continue
		}
		j.Logger.Warn("component below minimum stock",
			slog.Int64("component_id", c.ID),
			slog.String("name", c.Name),
			slog.String("current_stock", c.CurrentStock.String()),
			slog.String("minimum_stock", c.MinimumStock.String()),
		)
		alerted++
	}

	j.Logger.Info("low stock scan complete",
		slog.Int("below_minimum", len(components)),
		slog.Int("alerted", alerted),
	)
	return resultErr
}

// alreadyAlerted marks the component as alerted and reports whether an alert
// was already recorded inside the dedupe window. Redis being down degrades to
// alerting every run rather than suppressing alerts.
func (j *LowStockScanJob) alreadyAlerted(ctx context.Context, componentID int64) bool {
	if j.Redis == nil {
		return false
	}
	key := fmt.Sprintf("comanda:lowstock:%d", componentID)
	set, err := j.Redis.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), j.AlertTTL).Result()
	if err != nil {
		j.Logger.Warn("low stock dedupe unavailable", slog.Any("error", err))
		return false
	}
	return !set
}
