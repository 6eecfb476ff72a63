// Package lifecycle 管理单节点服务的启动、后台任务与优雅关闭。
//
// 启动顺序: OnStart 钩子 → 监听端口 → 启动后台任务 → OnReady 钩子。
// 收到 SIGINT/SIGTERM 或任一任务出错时: 停止 HTTP 服务 → OnStop 钩子（按注册顺序）。
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/goback/backoffice/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Event 生命周期状态
type Event string

const (
	EventStarting Event = "starting" // 服务启动中
	EventReady    Event = "ready"    // 服务就绪（可接收请求）
	EventStopping Event = "stopping" // 服务停止中
	EventStopped  Event = "stopped"  // 服务已停止
)

// Hook 生命周期钩子
type Hook func(ctx context.Context) error

// Runner 后台任务，ctx 取消后应尽快返回
type Runner func(ctx context.Context) error

// ServiceOptions 服务配置选项
type ServiceOptions struct {
	Name            string        // 服务名称
	Address         string        // 监听地址
	ShutdownTimeout time.Duration // 关闭超时
}

// Service 服务包装器
type Service struct {
	opts     ServiceOptions
	app      *fiber.App
	listener net.Listener
	state    atomic.Value

	onStart []Hook
	onReady []Hook
	onStop  []Hook
	runners []Runner
}

// NewService 创建服务
func NewService(opts ServiceOptions, app *fiber.App) *Service {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &Service{opts: opts, app: app}
	s.state.Store(EventStopped)
	return s
}

// State 当前状态
func (s *Service) State() Event {
	return s.state.Load().(Event)
}

func (s *Service) setState(e Event) {
	s.state.Store(e)
	logger.Info("service state changed",
		zap.String("service", s.opts.Name),
		zap.String("state", string(e)),
	)
}

// OnStart 注册启动钩子
func (s *Service) OnStart(fn Hook) { s.onStart = append(s.onStart, fn) }

// OnReady 注册就绪钩子
func (s *Service) OnReady(fn Hook) { s.onReady = append(s.onReady, fn) }

// OnStop 注册停止钩子
func (s *Service) OnStop(fn Hook) { s.onStop = append(s.onStop, fn) }

// Go 注册后台任务
func (s *Service) Go(fn Runner) { s.runners = append(s.runners, fn) }

// Run 运行服务直到 ctx 取消、收到退出信号或任一任务失败
func (s *Service) Run(ctx context.Context) error {
	if s.app == nil {
		return errors.New("lifecycle: fiber app is required")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.setState(EventStarting)
	for _, fn := range s.onStart {
		if err := fn(ctx); err != nil {
			return fmt.Errorf("start hook: %w", err)
		}
	}

	ln := s.listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", s.opts.Address); err != nil {
			return fmt.Errorf("listen %s: %w", s.opts.Address, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("服务启动",
			zap.String("service", s.opts.Name),
			zap.String("address", ln.Addr().String()),
		)
		if err := s.app.Listener(ln); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	for _, fn := range s.runners {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	var readyErr error
	for _, fn := range s.onReady {
		if readyErr = fn(gctx); readyErr != nil {
			readyErr = fmt.Errorf("ready hook: %w", readyErr)
			cancel()
			break
		}
	}
	if readyErr == nil {
		s.setState(EventReady)
	}

	err := g.Wait()
	if readyErr != nil {
		return readyErr
	}
	return err
}

// shutdown 先停止接收请求，再依次执行停止钩子
func (s *Service) shutdown() error {
	s.setState(EventStopping)
	logger.Info("正在关闭服务...", zap.String("service", s.opts.Name))

	var errs []error
	if err := s.app.ShutdownWithTimeout(s.opts.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	for _, fn := range s.onStop {
		if err := fn(ctx); err != nil {
			logger.Error("停止钩子执行失败", zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.setState(EventStopped)
	return errors.Join(errs...)
}
