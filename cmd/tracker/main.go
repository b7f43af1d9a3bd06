package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/25angel/aida-trade/internal/alerts"
	"github.com/25angel/aida-trade/internal/api"
	"github.com/25angel/aida-trade/internal/config"
	gateway "github.com/25angel/aida-trade/internal/exchange"
	"github.com/25angel/aida-trade/internal/metrics"
	"github.com/25angel/aida-trade/internal/portfolio"
	"github.com/25angel/aida-trade/internal/prefs"
	"github.com/25angel/aida-trade/internal/prices"
	"github.com/25angel/aida-trade/internal/store"
	"github.com/25angel/aida-trade/internal/tracker"
	"github.com/25angel/aida-trade/internal/watchdog"
)

var (
	configFile = flag.String("config", "configs/config.yaml", "配置文件路径")
	logLevel   = flag.String("log", "", "日志级别 (debug, info, warn, error)，覆盖配置文件")
)

func main() {
	flag.Parse()

	// 单实例锁实现，防止多进程启动
	lockFile := "/tmp/aida_tracker.lock"
	lock, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		log.Fatal().Err(err).Msg("创建锁文件失败")
	}
	err = syscall.Flock(int(lock.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		log.Fatal().Msg("已有一个tracker进程在运行")
	}
	defer func() {
		syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)
		lock.Close()
		os.Remove(lockFile)
	}()

	// 加载配置
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("加载配置失败")
	}

	// 设置日志：命令行优先于配置文件
	level := cfg.Global.LogLevel
	if *logLevel != "" {
		level = *logLevel
	}
	setupLogger(level)

	log.Info().
		Str("symbol", cfg.Feed.Symbol).
		Str("interval", cfg.Feed.Interval).
		Msg("aida行情追踪器启动中...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化Store
	st := store.NewStore()

	// 加载偏好设置（唯一落盘状态）
	pf, err := prefs.Load(cfg.Global.PrefsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Global.PrefsPath).Msg("加载偏好失败")
	}

	// 创建REST客户端
	restURL := cfg.Feed.RestEndpoint
	if restURL == "" {
		restURL = gateway.BybitRestEndpoint
	}
	rest := &gateway.BybitRESTClient{
		BaseURL:    restURL,
		HTTPClient: gateway.NewDefaultHTTPClient(),
		Limiter:    gateway.NewCompositeLimiter(5, 10, 50, 400),
		Retry:      gateway.DefaultRetryConfig(),
	}

	// 创建WebSocket客户端
	ws := gateway.NewBybitWSClient(cfg.Feed.WSEndpoint)

	// 价格服务与模拟账户
	priceSvc := prices.NewService(rest, cfg.GetPriceTTL())
	sim := portfolio.NewSimulator(seedFromConfig(cfg), priceSvc)

	// 告警管理器
	alertMgr := alerts.NewManager(cfg.Alerts, cfg.GetAlertCooldown())

	// 启动Prometheus监控
	if _, err := metrics.StartMetricsServer(cfg.Global.MetricsPort); err != nil {
		log.Error().Err(err).Msg("启动监控服务器失败")
	}

	// 连接交易所并创建Tracker
	if err := ws.Connect(ctx); err != nil {
		log.Fatal().Err(err).Msg("连接行情WebSocket失败")
	}

	trk := tracker.NewTracker(cfg, st, sim, alertMgr, ws)
	if err := trk.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("启动Tracker失败")
	}

	// 看门狗：只监控不自愈
	wd := watchdog.NewWatchdog(watchdog.Config{}, rest, st, trk)
	wd.Start(ctx)

	// 启动HTTP API
	apiSrv := api.NewServer(st, sim, pf, ws, cfg.Feed.Symbol)
	if _, err := apiSrv.Start(cfg.Global.APIPort); err != nil {
		log.Fatal().Err(err).Msg("启动HTTP API失败")
	}

	log.Info().Msg("aida行情追踪器启动完成")

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	log.Info().Msg("收到退出信号，正在关闭...")

	cancel()
	wd.Stop()
	trk.Stop()

	log.Info().Msg("aida行情追踪器已关闭")
}

// seedFromConfig 把配置中的初始资金转换为模拟账户种子
func seedFromConfig(cfg *config.Config) portfolio.Seed {
	holdings := make(map[string]decimal.Decimal, len(cfg.Portfolio.Holdings))
	for coin, qty := range cfg.Portfolio.Holdings {
		holdings[coin] = decimal.NewFromFloat(qty)
	}
	return portfolio.Seed{
		QuoteCurrency:  cfg.Portfolio.QuoteCurrency,
		FundingBalance: decimal.NewFromFloat(cfg.Portfolio.FundingBalance),
		UnifiedBalance: decimal.NewFromFloat(cfg.Portfolio.UnifiedBalance),
		Holdings:       holdings,
	}
}

// setupLogger 设置日志
func setupLogger(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
