package lifecycle

import (
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Builder 服务构建器 - 链式调用创建服务
type Builder struct {
	opts     ServiceOptions
	app      *fiber.App
	listener net.Listener
	onStart  []Hook
	onReady  []Hook
	onStop   []Hook
	runners  []Runner
}

// NewBuilder 创建服务构建器
func NewBuilder(name string) *Builder {
	return &Builder{opts: ServiceOptions{Name: name}}
}

// WithAddress 设置监听地址
func (b *Builder) WithAddress(addr string) *Builder {
	b.opts.Address = addr
	return b
}

// WithListener 使用已创建的监听器，优先于地址
func (b *Builder) WithListener(ln net.Listener) *Builder {
	b.listener = ln
	return b
}

// WithShutdownTimeout 设置关闭超时
func (b *Builder) WithShutdownTimeout(d time.Duration) *Builder {
	b.opts.ShutdownTimeout = d
	return b
}

// WithApp 设置Fiber应用
func (b *Builder) WithApp(app *fiber.App) *Builder {
	b.app = app
	return b
}

// OnStart 添加启动钩子
func (b *Builder) OnStart(fn Hook) *Builder {
	b.onStart = append(b.onStart, fn)
	return b
}

// OnReady 添加就绪钩子
func (b *Builder) OnReady(fn Hook) *Builder {
	b.onReady = append(b.onReady, fn)
	return b
}

// OnStop 添加停止钩子
func (b *Builder) OnStop(fn Hook) *Builder {
	b.onStop = append(b.onStop, fn)
	return b
}

// Go 添加后台任务
func (b *Builder) Go(fn Runner) *Builder {
	b.runners = append(b.runners, fn)
	return b
}

// Build 构建服务
func (b *Builder) Build() *Service {
	svc := NewService(b.opts, b.app)
	svc.listener = b.listener
	for _, fn := range b.onStart {
		svc.OnStart(fn)
	}
	for _, fn := range b.onReady {
		svc.OnReady(fn)
	}
	for _, fn := range b.onStop {
		svc.OnStop(fn)
	}
	for _, fn := range b.runners {
		svc.Go(fn)
	}
	return svc
}
