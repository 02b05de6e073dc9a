package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLowStockScan is the task type for the periodic low-stock scan.
	TaskTypeLowStockScan = "stock:low_stock_scan"
)

// LowStockScanPayload configures a low-stock scan run.
type LowStockScanPayload struct {
	// Force skips the alert dedupe window and re-reports every shortage.
	Force bool `json:"force"`
}

// NewLowStockScanTask constructs an Asynq task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockScan, data), nil
}
