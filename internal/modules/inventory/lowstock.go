package inventory

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/georgemunganga/printa-retail/internal/events"
)

// LowStockReport lists the products at or below the reorder point.
type LowStockReport struct {
	Threshold  int       `json:"threshold"`
	LowStock   []Product `json:"low_stock"`
	OutOfStock []Product `json:"out_of_stock"`
}

func (r LowStockReport) Empty() bool { return len(r.LowStock) == 0 && len(r.OutOfStock) == 0 }

// BuildLowStockReport classifies c against threshold.
func BuildLowStockReport(c Catalog, threshold int) LowStockReport {
	return LowStockReport{
		Threshold:  threshold,
		LowStock:   c.Filter(StatusLowStock, threshold),
		OutOfStock: c.Filter(StatusOutOfStock, threshold),
	}
}

// LowStockJob publishes a low-stock report on a cron schedule. It implements cron.Job.
type LowStockJob struct {
	snap      *Snapshot
	pub       events.Publisher
	threshold int
	log       *zap.Logger
}

func NewLowStockJob(snap *Snapshot, pub events.Publisher, threshold int, log *zap.Logger) *LowStockJob {
	return &LowStockJob{snap: snap, pub: pub, threshold: threshold, log: log}
}

// Schedule registers the job on c.
func (j *LowStockJob) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddJob(spec, j)
}

func (j *LowStockJob) Run() {
	if !j.snap.Loaded() {
		return
	}
	report := BuildLowStockReport(j.snap.Catalog(), j.threshold)
	if report.Empty() {
		return
	}
	j.log.Info("low stock report",
		zap.Int("low_stock", len(report.LowStock)),
		zap.Int("out_of_stock", len(report.OutOfStock)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := j.pub.Publish(ctx, events.LowStock, report); err != nil {
		j.log.Warn("failed to publish low stock report", zap.Error(err))
	}
}
