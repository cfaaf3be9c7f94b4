package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"fixit/backend/config"
	"fixit/backend/internal/api/handler"
	"fixit/backend/internal/api/router"
	"fixit/backend/internal/repository"
	"fixit/backend/internal/service"
	"fixit/backend/pkg/database"
	"fixit/backend/pkg/jwt"
	applogger "fixit/backend/pkg/logger"
	"fixit/backend/pkg/ratelimit"
	"fixit/backend/pkg/redis"
	"fixit/backend/pkg/sse"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，限流将退回内存后端", zap.Error(err))
		rdb = nil
	}

	// 4.1 选择限流后端
	var limiter ratelimit.Limiter
	var memLimiter *ratelimit.MemoryLimiter
	if cfg.RateLimit.Backend == "redis" && rdb != nil {
		limiter = ratelimit.NewRedisLimiter(rdb, logger)
		logger.Info("限流后端: redis")
	} else {
		memLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.SweepInterval)
		limiter = memLimiter
		logger.Info("限流后端: memory")
	}

	// 5. 初始化 JWT 管理器与通知 Hub
	jwtMgr := jwt.NewManager(&cfg.Auth)
	hub := sse.NewHub(cfg.SSE.ChannelBuffer)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwtMgr, hub, logger)
	h := handler.NewHandler(cfg, svc, hub)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, limiter, hub, logger)

	// 8. 启动调度器（与手动触发入口共用同一条幂等路径，
	//    多实例部署时各实例的触发互不冲突）
	var cronRunner *cron.Cron
	if cfg.Scheduler.Enabled {
		cronRunner = cron.New()
		expr := fmt.Sprintf("@every %s", cfg.Scheduler.Interval)
		if _, err := cronRunner.AddFunc(expr, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Scheduler.Interval)
			defer cancel()
			if _, _, err := svc.Schedule.RunOnce(ctx, time.Now()); err != nil {
				logger.Error("定时调度执行失败", zap.Error(err))
			}
		}); err != nil {
			logger.Fatal("注册定时调度失败", zap.Error(err))
		}
		cronRunner.Start()
		logger.Info("保养调度器已启动", zap.Duration("interval", cfg.Scheduler.Interval))
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	// WriteTimeout 置零：SSE 长连接不能被写超时切断
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     engine,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	// 先停调度器，避免关闭期间又生成工单
	if cronRunner != nil {
		<-cronRunner.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止内存限流器的清扫协程
	if memLimiter != nil {
		memLimiter.Close()
	}

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
