package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/25angel/aida-trade/internal/store"
	"github.com/rs/zerolog/log"
)

// RestPinger 定义REST心跳能力
type RestPinger interface {
	Ping(ctx context.Context) error
}

// Hooks 行情状态变化时的通知回调。只做通知与降级标记，
// 不做任何重连动作：连接断开后由运维手动重启进程。
type Hooks interface {
	FeedStale(reason string)
	FeedRecovered(reason string)
}

// Config 看门狗配置
type Config struct {
	RestPingInterval      time.Duration
	RestFailureThreshold  int
	RestRecoveryThreshold int

	FeedCheckInterval     time.Duration
	FeedStaleThreshold    time.Duration
	FeedFailureThreshold  int
	FeedRecoveryThreshold int
}

func (c *Config) normalize() {
	if c.RestPingInterval <= 0 {
		c.RestPingInterval = 15 * time.Second
	}
	if c.RestFailureThreshold <= 0 {
		c.RestFailureThreshold = 3
	}
	if c.RestRecoveryThreshold <= 0 {
		c.RestRecoveryThreshold = 2
	}
	if c.FeedCheckInterval <= 0 {
		c.FeedCheckInterval = 5 * time.Second
	}
	if c.FeedStaleThreshold <= 0 {
		// kline推送在每根K线内持续刷新，正常情况下间隔远小于此
		c.FeedStaleThreshold = 30 * time.Second
	}
	if c.FeedFailureThreshold <= 0 {
		c.FeedFailureThreshold = 3
	}
	if c.FeedRecoveryThreshold <= 0 {
		c.FeedRecoveryThreshold = 2
	}
}

// Watchdog 监控REST可达性与行情推送新鲜度
type Watchdog struct {
	cfg   Config
	rest  RestPinger
	store *store.Store
	hooks Hooks

	cancel context.CancelFunc
	wg     sync.WaitGroup

	restFailures   int
	restRecoveries int
	restUnhealthy  bool

	feedFailures   int
	feedRecoveries int
	feedStale      bool
}

// NewWatchdog 创建看门狗
func NewWatchdog(cfg Config, rest RestPinger, st *store.Store, hooks Hooks) *Watchdog {
	cfg.normalize()
	return &Watchdog{
		cfg:   cfg,
		rest:  rest,
		store: st,
		hooks: hooks,
	}
}

// Start 启动看门狗
func (w *Watchdog) Start(ctx context.Context) {
	if w.store == nil || w.hooks == nil {
		log.Warn().Msg("watchdog 未启用：缺少 store 或 hooks")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	if w.rest != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runRestLoop(childCtx)
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runFeedLoop(childCtx)
	}()
}

// Stop 停止看门狗
func (w *Watchdog) Stop() {
	if w.cancel != nil {
		w.cancel()
		w.wg.Wait()
	}
}

func (w *Watchdog) runRestLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.RestPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.rest.Ping(ctx); err != nil {
				w.restFailures++
				w.restRecoveries = 0
				log.Error().Err(err).Msg("REST心跳失败")
				if w.restFailures >= w.cfg.RestFailureThreshold && !w.restUnhealthy {
					w.restUnhealthy = true
					log.Error().Msg("REST连续失败，价格估值可能失真")
				}
			} else {
				if w.restUnhealthy {
					w.restRecoveries++
					if w.restRecoveries >= w.cfg.RestRecoveryThreshold {
						w.restUnhealthy = false
						log.Info().Msg("REST恢复正常")
					}
				}
				w.restFailures = 0
			}
		}
	}
}

func (w *Watchdog) runFeedLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.FeedCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			staleSymbols := w.detectStaleSymbols()
			if len(staleSymbols) > 0 {
				w.feedFailures++
				w.feedRecoveries = 0
				if w.feedFailures >= w.cfg.FeedFailureThreshold && !w.feedStale {
					w.feedStale = true
					log.Error().
						Strs("symbols", staleSymbols).
						Dur("stale_threshold", w.cfg.FeedStaleThreshold).
						Msg("行情长时间无推送，标记为停滞")
					w.hooks.FeedStale("feed_stale")
				}
			} else {
				w.feedFailures = 0
				if w.feedStale {
					w.feedRecoveries++
					if w.feedRecoveries >= w.cfg.FeedRecoveryThreshold {
						w.feedStale = false
						log.Info().Msg("行情推送恢复")
						w.hooks.FeedRecovered("feed_recovered")
					}
				}
			}
		}
	}
}

func (w *Watchdog) detectStaleSymbols() []string {
	var stale []string

	for _, symbol := range w.store.GetAllSymbols() {
		age, ok := w.store.LastUpdateAge(symbol)
		if !ok {
			// 尚未收到任何推送：交给连接状态指标反映，不算停滞
			continue
		}
		if age > w.cfg.FeedStaleThreshold {
			stale = append(stale, symbol)
		}
	}
	return stale
}
