// OrderService 主程序
// 功能：购物车管理、购物车转订单、订单查询与状态变更
// 架构：DDD + MySQL 事务 Outbox + Redis 旁路缓存
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/shopmetrics/internal/order/application"
	entitycache "github.com/wyfcoding/shopmetrics/internal/order/infrastructure/cache"
	"github.com/wyfcoding/shopmetrics/internal/order/infrastructure/observability"
	"github.com/wyfcoding/shopmetrics/internal/order/infrastructure/persistence/mysql"
	httphandler "github.com/wyfcoding/shopmetrics/internal/order/interfaces/http"
	"github.com/wyfcoding/shopmetrics/pkg/cache"
	"github.com/wyfcoding/shopmetrics/pkg/config"
	"github.com/wyfcoding/shopmetrics/pkg/db"
	"github.com/wyfcoding/shopmetrics/pkg/logger"
	"github.com/wyfcoding/shopmetrics/pkg/metrics"
	"github.com/wyfcoding/shopmetrics/pkg/middleware"
	"github.com/wyfcoding/shopmetrics/pkg/ratelimit"
	"github.com/wyfcoding/shopmetrics/pkg/trace"
	"github.com/wyfcoding/shopmetrics/pkg/utils"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func main() {
	configPath := flag.String("config", "configs/order/config.toml", "path to config file")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger.Info(ctx, "Starting OrderService",
		"service", cfg.ServiceName,
		"version", cfg.Version,
		"environment", cfg.Environment,
	)

	// 3. 初始化追踪
	if cfg.Tracing.Enabled {
		shutdown, err := trace.InitTracer(cfg.ServiceName, cfg.Tracing.CollectorEndpoint, cfg.Tracing.SamplingRate)
		if err != nil {
			logger.Error(ctx, "Failed to initialize tracer", "error", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()
			logger.Info(ctx, "Tracer initialized", "endpoint", cfg.Tracing.CollectorEndpoint)
		}
	}

	// 4. 初始化数据库
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize database", "error", err)
	}
	defer database.Close()

	// 5. 初始化 Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "Failed to initialize Redis", "error", err)
	}
	defer redisCache.Close()

	// 6. 初始化限流器
	rateLimiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())

	// 7. 初始化指标
	metricsInstance := metrics.New("order")
	if err := metricsInstance.Register(); err != nil {
		logger.Fatal(ctx, "Failed to register metrics", "error", err)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "Failed to start metrics HTTP server", "error", err)
		}
	}
	observer := observability.NewPrometheusObserver(metricsInstance)

	// 8. 初始化仓储与应用服务
	uow := mysql.NewUnitOfWork(database)
	cartRepo := mysql.NewCartRepository(database.DB)
	orderRepo := mysql.NewOrderRepository(database.DB)
	catalog := mysql.NewProductCatalog(database.DB)
	entityCache := entitycache.NewController(redisCache,
		time.Duration(cfg.Cache.TTLSeconds)*time.Second,
		time.Duration(cfg.Cache.OpTimeoutMillis)*time.Millisecond,
	)
	idGen := utils.NewSnowflakeID(1)

	cartService := application.NewCartService(cartRepo, catalog, entityCache, observer, idGen,
		time.Duration(cfg.Cart.TTLHours)*time.Hour)
	orderService := application.NewOrderService(uow, orderRepo, entityCache, observer, idGen)

	// 9. 启动过期购物车清扫
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	go runCartSweeper(sweepCtx, cartService, time.Duration(cfg.Cart.SweepIntervalSeconds)*time.Second)

	// 10. 创建并启动 HTTP 服务器
	httpServer := createHTTPServer(cfg, cartService, orderService, rateLimiter, database, redisCache)
	go func() {
		logger.Info(ctx, "Starting HTTP server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server error", "error", err)
		}
	}()

	// 11. 优雅关停
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info(ctx, "Shutting down OrderService")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP server shutdown error", "error", err)
	}

	logger.Info(ctx, "OrderService stopped")
}

// runCartSweeper 周期清扫超期购物车
func runCartSweeper(ctx context.Context, carts *application.CartService, interval time.Duration) {
	logger.Info(ctx, "Cart sweeper started", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Cart sweeper stopped")
			return
		case <-ticker.C:
			if _, err := carts.SweepExpiredCarts(ctx); err != nil {
				logger.Error(ctx, "Cart sweep failed", "error", err)
			}
		}
	}
}

// createHTTPServer 创建 HTTP 服务器
func createHTTPServer(
	cfg *config.Config,
	cartService *application.CartService,
	orderService *application.OrderService,
	rateLimiter ratelimit.RateLimiter,
	database *db.DB,
	redisCache *cache.RedisCache,
) *http.Server {
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.GinLoggingMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.RateLimitMiddleware(rateLimiter, cfg.RateLimit))

	handler := httphandler.NewHandler(cartService, orderService)
	handler.RegisterRoutes(router.Group("/api"))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.ServiceName,
			"timestamp": time.Now().Unix(),
		})
	})
	router.GET("/ready", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(checkCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready", "reason": "database"})
			return
		}
		if err := redisCache.Ping(checkCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unready", "reason": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
}
