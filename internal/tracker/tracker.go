package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/25angel/aida-trade/internal/alerts"
	"github.com/25angel/aida-trade/internal/config"
	gateway "github.com/25angel/aida-trade/internal/exchange"
	"github.com/25angel/aida-trade/internal/metrics"
	"github.com/25angel/aida-trade/internal/portfolio"
	"github.com/25angel/aida-trade/internal/store"
)

// Tracker 核心运行器：订阅单一kline频道，推送进入store，
// 周期性为模拟账户估值并刷新指标。
type Tracker struct {
	cfg    *config.Config
	store  *store.Store
	sim    *portfolio.Simulator
	alerts *alerts.Manager
	ws     gateway.WSClient

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopped  bool
	mu       sync.Mutex
}

// NewTracker 创建Tracker实例。ws 必须是已连接的客户端。
func NewTracker(
	cfg *config.Config,
	st *store.Store,
	sim *portfolio.Simulator,
	alertMgr *alerts.Manager,
	ws gateway.WSClient,
) *Tracker {
	return &Tracker{
		cfg:      cfg,
		store:    st,
		sim:      sim,
		alerts:   alertMgr,
		ws:       ws,
		stopChan: make(chan struct{}),
	}
}

// OnKline 处理一条kline推送
func (t *Tracker) OnKline(k *gateway.Kline) {
	t.store.ApplyKline(k)
	metrics.RecordKline(k.Symbol, k.Confirm)
	metrics.LastPrice.WithLabelValues(k.Symbol).Set(k.Close)

	if t.alerts != nil {
		t.alerts.OnKline(k)
	}
}

// FeedStale 行情停滞通知（watchdog回调）
func (t *Tracker) FeedStale(reason string) {
	metrics.FeedStale.Set(1)
	log.Warn().Str("reason", reason).Msg("行情标记为停滞")
}

// FeedRecovered 行情恢复通知（watchdog回调）
func (t *Tracker) FeedRecovered(reason string) {
	metrics.FeedStale.Set(0)
	log.Info().Str("reason", reason).Msg("行情停滞解除")
}

// Start 启动Tracker
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return fmt.Errorf("tracker已停止，无法重新启动")
	}
	t.mu.Unlock()

	symbol := t.cfg.Feed.Symbol
	interval := t.cfg.Feed.Interval

	t.store.InitSymbol(symbol, interval, 120)

	// 唯一一次订阅：单频道是本客户端的硬约束
	log.Info().Str("symbol", symbol).Str("interval", interval).Msg("正在订阅kline频道...")
	if err := t.ws.Subscribe(symbol, interval); err != nil {
		return fmt.Errorf("订阅失败: %w", err)
	}
	metrics.FeedConnected.Set(1)

	t.wg.Add(1)
	go t.runFeed()

	t.wg.Add(1)
	go t.runValuation(ctx)

	t.wg.Add(1)
	go t.runGlobalMonitor(ctx)

	log.Info().Msg("Tracker启动完成")
	return nil
}

// Stop 停止Tracker
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.mu.Unlock()

	close(t.stopChan)
	_ = t.ws.Close()
	t.wg.Wait()

	log.Info().Msg("Tracker已停止")
}

// runFeed 运行读取循环。循环退出（读错误或对端关闭）后只记录并
// 翻转连接指标，不做任何重连：进程由运维重启。
func (t *Tracker) runFeed() {
	defer t.wg.Done()

	err := t.ws.Run(t)
	metrics.FeedConnected.Set(0)
	if err != nil {
		metrics.RecordError("ws_run", t.cfg.Feed.Symbol)
		log.Error().Err(err).Msg("行情读取循环退出")
		return
	}
	log.Info().Msg("行情读取循环正常结束")
}

// runValuation 周期性为模拟账户估值并刷新指标
func (t *Tracker) runValuation(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.cfg.GetValuationInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopChan:
			return
		case <-ticker.C:
			if err := t.valuate(ctx); err != nil {
				log.Error().Err(err).Msg("账户估值失败")
				metrics.RecordError("valuation", t.cfg.Feed.Symbol)
			}
		}
	}
}

func (t *Tracker) valuate(ctx context.Context) error {
	valCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	equity, err := t.sim.Equity(valCtx)
	if err != nil {
		return err
	}
	unrealized, err := t.sim.UnrealizedPNL(valCtx)
	if err != nil {
		return err
	}
	realized := t.sim.RealizedPNL()

	metrics.UpdatePortfolioMetrics(
		equity.InexactFloat64(),
		realized.InexactFloat64(),
		unrealized.InexactFloat64(),
	)
	return nil
}

// runGlobalMonitor 定期输出运行状态
func (t *Tracker) runGlobalMonitor(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopChan:
			return
		case <-ticker.C:
			t.logStatus()
		}
	}
}

func (t *Tracker) logStatus() {
	symbol := t.cfg.Feed.Symbol
	connected := t.ws.IsConnected()
	if connected {
		metrics.FeedConnected.Set(1)
	} else {
		metrics.FeedConnected.Set(0)
	}

	age, hasData := t.store.LastUpdateAge(symbol)
	event := log.Info().
		Str("symbol", symbol).
		Bool("connected", connected).
		Float64("last_price", t.store.GetLastPrice(symbol))
	if hasData {
		event = event.Dur("last_update_age", age)
	}
	event.Msg("运行状态")
}
