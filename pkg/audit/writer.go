package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goback/backoffice/pkg/config"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/pkg/metrics"
	"go.uber.org/zap"
)

// Options 写入器参数
type Options struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// OptionsFrom 从配置生成写入器参数
func OptionsFrom(cfg *config.AuditConfig) Options {
	return Options{
		QueueSize:    cfg.QueueSize,
		Workers:      cfg.Workers,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
}

func (o *Options) normalize() {
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
}

// Writer 操作日志异步写入器。
// Submit 从不阻塞请求路径：队列满或已关闭时丢弃记录并告警。
// 写入失败只记录日志，不重试，也不回传给调用方。
type Writer struct {
	store   Store
	opts    Options
	metrics *metrics.Metrics

	queue chan *Record
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool
}

// NewWriter 创建写入器，需调用 Start 启动消费协程
func NewWriter(store Store, opts Options, m *metrics.Metrics) *Writer {
	opts.normalize()
	return &Writer{
		store:   store,
		opts:    opts,
		metrics: m,
		queue:   make(chan *Record, opts.QueueSize),
	}
}

// Start 启动消费协程，重复调用无效
func (w *Writer) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true
	for i := 0; i < w.opts.Workers; i++ {
		w.wg.Add(1)
		go w.consume()
	}
}

// Submit 投递一条已完成的记录
func (w *Writer) Submit(rec *Record) {
	if rec == nil {
		return
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.drop(rec, "writer closed")
		return
	}
	select {
	case w.queue <- rec:
		w.metrics.AuditQueue(len(w.queue))
	default:
		w.drop(rec, "queue full")
	}
}

func (w *Writer) drop(rec *Record, reason string) {
	w.metrics.AuditRecord(metrics.AuditDropped)
	logger.Warn("操作日志已丢弃",
		zap.String("reason", reason),
		zap.Int64("userId", rec.UserID),
		zap.String("module", rec.Module),
		zap.String("method", rec.Method),
		zap.Int("status", rec.Status),
	)
}

func (w *Writer) consume() {
	defer w.wg.Done()
	for rec := range w.queue {
		w.metrics.AuditQueue(len(w.queue))
		w.persist(rec)
	}
}

func (w *Writer) persist(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), w.opts.WriteTimeout)
	defer cancel()

	err := w.save(ctx, rec)
	if err != nil {
		w.metrics.AuditRecord(metrics.AuditFailed)
		logger.Error("操作日志写入失败",
			zap.Error(err),
			zap.Int64("userId", rec.UserID),
			zap.String("username", rec.Username),
			zap.String("module", rec.Module),
			zap.String("operation", rec.Operation),
			zap.Int("status", rec.Status),
		)
		return
	}
	w.metrics.AuditRecord(metrics.AuditPersisted)
}

func (w *Writer) save(ctx context.Context, rec *Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in audit store: %v", r)
		}
	}()
	return w.store.Save(ctx, rec)
}

// Close 停止接收新记录并等待队列排空，ctx 到期时放弃剩余记录
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	close(w.queue)
	w.mu.Unlock()

	if !started {
		// 未启动时就地写入剩余记录
		w.wg.Add(1)
		go w.consume()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.Warn("操作日志队列未排空", zap.Int("remaining", len(w.queue)))
		return ctx.Err()
	}
}
