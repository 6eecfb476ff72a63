package operationlog

import (
	"context"
	"fmt"
	"time"

	"github.com/goback/backoffice/pkg/config"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Retention 按保留天数定期清理操作日志
type Retention struct {
	store *Store
	days  int
	spec  string
	now   func() time.Time
}

// NewRetention 创建清理任务，days <= 0 时不清理
func NewRetention(store *Store, cfg *config.AuditConfig) *Retention {
	spec := cfg.CleanupSpec
	if spec == "" {
		spec = "0 3 * * *"
	}
	return &Retention{store: store, days: cfg.RetentionDays, spec: spec, now: time.Now}
}

// Run 阻塞运行直至 ctx 取消，可作为 lifecycle.Runner
func (r *Retention) Run(ctx context.Context) error {
	if r.days <= 0 {
		<-ctx.Done()
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(r.spec, func() { r.Sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid audit cleanup spec %q: %w", r.spec, err)
	}
	c.Start()
	logger.Info("操作日志清理任务已启动", zap.String("spec", r.spec), zap.Int("retentionDays", r.days))

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Sweep 立即执行一次清理
func (r *Retention) Sweep(ctx context.Context) {
	cutoff := r.now().AddDate(0, 0, -r.days)
	n, err := r.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		logger.Error("操作日志清理失败", zap.Time("cutoff", cutoff), zap.Error(err))
		return
	}
	if n > 0 {
		logger.Info("操作日志清理完成", zap.Time("cutoff", cutoff), zap.Int64("rows", n))
	}
}
