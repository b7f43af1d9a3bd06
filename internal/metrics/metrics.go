package metrics

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// 行情指标
	LastPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "aida_last_price",
			Help: "最新成交价",
		},
		[]string{"symbol"},
	)

	KlineCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aida_kline_count_total",
			Help: "收到的kline推送条数",
		},
		[]string{"symbol", "confirmed"},
	)

	WSMessageCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aida_ws_message_count_total",
			Help: "WebSocket消息数量（按类型统计）",
		},
		[]string{"type"}, // type: kline, op, dropped
	)

	FeedConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aida_feed_connected",
			Help: "WebSocket行情连接状态 (1=已连接, 0=断开)",
		},
	)

	FeedStale = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aida_feed_stale",
			Help: "行情是否停滞 (1=停滞)",
		},
	)

	// 价格缓存指标
	PriceCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aida_price_cache_hits_total",
			Help: "价格缓存命中次数",
		},
		[]string{"symbol"},
	)

	PriceCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aida_price_cache_misses_total",
			Help: "价格缓存未命中次数",
		},
		[]string{"symbol"},
	)

	RESTLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aida_rest_latency_seconds",
			Help:    "REST请求延迟",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"endpoint"},
	)

	// 模拟账户指标
	PortfolioEquity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aida_portfolio_equity",
			Help: "模拟账户总权益",
		},
	)

	PortfolioRealizedPNL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aida_portfolio_realized_pnl",
			Help: "模拟账户已实现盈亏",
		},
	)

	PortfolioUnrealizedPNL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "aida_portfolio_unrealized_pnl",
			Help: "模拟账户未实现盈亏",
		},
	)

	// 告警指标
	AlertTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aida_alert_triggered_total",
			Help: "价格告警触发次数",
		},
		[]string{"symbol", "direction"},
	)

	// 系统指标
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aida_api_request_duration_seconds",
			Help:    "HTTP API请求耗时",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aida_error_count_total",
			Help: "错误计数",
		},
		[]string{"type", "symbol"},
	)
)

func init() {
	// 注册所有指标
	prometheus.MustRegister(
		LastPrice,
		KlineCount,
		WSMessageCount,
		FeedConnected,
		FeedStale,
		PriceCacheHits,
		PriceCacheMisses,
		RESTLatency,
		PortfolioEquity,
		PortfolioRealizedPNL,
		PortfolioUnrealizedPNL,
		AlertTriggered,
		APIRequestDuration,
		ErrorCount,
	)
}

// StartMetricsServer 启动Prometheus监控服务器，并返回实际监听端口
func StartMetricsServer(port int) (int, error) {
	if port < 0 {
		port = 0
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("listen on %s failed: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port

	log.Info().Int("port", actualPort).Msg("启动Prometheus监控服务器")

	go func() {
		if err := http.Serve(listener, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Prometheus服务器启动失败")
		}
	}()

	return actualPort, nil
}

// RecordKline 记录一条kline推送
func RecordKline(symbol string, confirmed bool) {
	label := "false"
	if confirmed {
		label = "true"
	}
	KlineCount.WithLabelValues(symbol, label).Inc()
	WSMessageCount.WithLabelValues("kline").Inc()
}

// RecordError 记录错误
func RecordError(errType, symbol string) {
	ErrorCount.WithLabelValues(errType, symbol).Inc()
}

// RecordAlert 记录告警触发
func RecordAlert(symbol, direction string) {
	AlertTriggered.WithLabelValues(symbol, direction).Inc()
}

// UpdatePortfolioMetrics 更新模拟账户指标
func UpdatePortfolioMetrics(equity, realized, unrealized float64) {
	PortfolioEquity.Set(equity)
	PortfolioRealizedPNL.Set(realized)
	PortfolioUnrealizedPNL.Set(unrealized)
}
