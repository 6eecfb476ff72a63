package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goback/backoffice/pkg/audit"
	"github.com/goback/backoffice/pkg/auth"
	"github.com/goback/backoffice/pkg/config"
	"github.com/goback/backoffice/pkg/database"
	"github.com/goback/backoffice/pkg/lifecycle"
	"github.com/goback/backoffice/pkg/logger"
	"github.com/goback/backoffice/pkg/metrics"
	"github.com/goback/backoffice/pkg/middleware"
	"github.com/goback/backoffice/pkg/router"
	"github.com/goback/backoffice/services/admin/internal/account"
	"github.com/goback/backoffice/services/admin/internal/menu"
	"github.com/goback/backoffice/services/admin/internal/model"
	"github.com/goback/backoffice/services/admin/internal/operationlog"
	"github.com/goback/backoffice/services/admin/internal/permission"
	"github.com/goback/backoffice/services/admin/internal/policy"
	"github.com/goback/backoffice/services/admin/internal/profile"
	"github.com/goback/backoffice/services/admin/internal/role"
	"github.com/goback/backoffice/services/admin/internal/seed"
	"github.com/goback/backoffice/services/admin/internal/user"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const serviceName = "backoffice-admin"

func main() {
	// 加载配置
	if err := config.Init(os.Getenv("CONFIG_FILE")); err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}
	logger.Info("数据库迁移完成")

	rdb, err := database.OpenRedis(&cfg.Redis)
	if err != nil {
		logger.Fatal("初始化Redis失败", zap.Error(err))
	}

	basePath := cfg.Server.HTTP.BasePath
	digest := auth.NewBcryptDigest(bcrypt.DefaultCost)

	seedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = seed.Run(seedCtx, db, digest, basePath)
	cancel()
	if err != nil {
		logger.Fatal("初始化数据失败", zap.Error(err))
	}

	codec, err := auth.NewTokenCodec(&cfg.JWT)
	if err != nil {
		logger.Fatal("初始化令牌失败", zap.Error(err))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	// 接口权限
	var (
		enforcer       *auth.Enforcer
		policyEnforcer policy.Enforcer
	)
	if cfg.Casbin.Enabled {
		enforcer, err = auth.NewEnforcer(db)
		if err != nil {
			logger.Fatal("初始化Casbin失败", zap.Error(err))
		}
		policyEnforcer = enforcer
	}
	loader := policy.NewLoader(db, policyEnforcer, m)

	// 仓储
	userRepo := user.NewRepository(db)
	roleRepo := role.NewRepository(db)
	permRepo := permission.NewRepository(db)
	menuRepo := menu.NewRepository(db)
	logStore := operationlog.NewStore(db)

	// 操作日志异步写入
	writer := audit.NewWriter(logStore, audit.OptionsFrom(&cfg.Audit), m)
	retention := operationlog.NewRetention(logStore, &cfg.Audit)

	limiter := auth.NewLoginLimiter(database.NewCache(rdb.Client, cfg.Redis.Prefix), &cfg.Login)
	accountCtrl, err := account.NewController(userRepo, roleRepo, permRepo, codec, digest, limiter, m)
	if err != nil {
		logger.Fatal("初始化登录失败", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		ErrorHandler:          middleware.ErrorHandler,
		BodyLimit:             cfg.Server.HTTP.BodyLimit,
		ReadTimeout:           time.Duration(cfg.Server.HTTP.ReadTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.Server.HTTP.WriteTimeout) * time.Second,
		DisableStartupMessage: !cfg.IsDev(),
	})

	// 全局中间件
	app.Use(middleware.Recovery(), middleware.RequestID(), middleware.Cors())
	if m != nil {
		app.Use(m.Middleware())
		app.Get(cfg.Metrics.Path, m.Handler())
	}

	// 健康检查
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": serviceName,
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// 认证 → 审计 → 接口权限，审计在权限校验之前，被拒绝的修改请求同样留痕
	api := app.Group(basePath,
		middleware.Authenticate(codec, account.NewFinder(userRepo), basePath+account.LoginPath, m),
		middleware.OperationLogAfter(writer),
		middleware.OperationLogBefore(basePath),
	)
	if enforcer != nil {
		api.Use(middleware.RequirePermission(enforcer,
			basePath+"/auth",
			basePath+"/user/permissions",
			basePath+"/profile",
		))
	}

	router.Register(api,
		accountCtrl,
		user.NewController(userRepo, roleRepo, digest, loader, m),
		role.NewController(roleRepo, permRepo, loader, m),
		permission.NewController(permRepo, loader),
		menu.NewController(menuRepo),
		profile.NewController(userRepo, digest),
		operationlog.NewController(logStore),
	)

	svc := lifecycle.NewBuilder(serviceName).
		WithAddress(cfg.Server.HTTP.Addr()).
		WithApp(app).
		OnStart(func(ctx context.Context) error {
			writer.Start()
			return loader.Sync(ctx)
		}).
		Go(retention.Run).
		OnStop(writer.Close).
		OnStop(func(context.Context) error { return rdb.Close() }).
		OnStop(func(context.Context) error { return database.Close(db) }).
		Build()

	if err := svc.Run(context.Background()); err != nil {
		logger.Fatal("服务运行失败", zap.Error(err))
	}
}
