package prices

import (
	"context"
	"sync"
	"time"

	gateway "github.com/25angel/aida-trade/internal/exchange"
	"github.com/25angel/aida-trade/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Fetcher 价格查询后端，由 gateway 的 REST 客户端实现。
type Fetcher interface {
	GetTicker(ctx context.Context, symbol string) (*gateway.Ticker, error)
}

// Service 时间戳门控的价格透传缓存：未过期直接命中，过期才回源。
type Service struct {
	mu    sync.RWMutex
	rest  Fetcher
	ttl   time.Duration
	cache map[string]gateway.Ticker
}

// NewService 创建价格服务
func NewService(rest Fetcher, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Service{
		rest:  rest,
		ttl:   ttl,
		cache: make(map[string]gateway.Ticker),
	}
}

// GetPrice 获取最新成交价；缓存新鲜时不发起请求。
func (s *Service) GetPrice(ctx context.Context, symbol string) (float64, error) {
	t, err := s.GetTicker(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return t.LastPrice, nil
}

// GetTicker 获取完整ticker；回源失败但存在过期缓存时降级返回旧值。
func (s *Service) GetTicker(ctx context.Context, symbol string) (*gateway.Ticker, error) {
	s.mu.RLock()
	cached, ok := s.cache[symbol]
	s.mu.RUnlock()

	if ok && time.Since(cached.FetchedAt) < s.ttl {
		metrics.PriceCacheHits.WithLabelValues(symbol).Inc()
		return &cached, nil
	}
	metrics.PriceCacheMisses.WithLabelValues(symbol).Inc()

	start := time.Now()
	fresh, err := s.rest.GetTicker(ctx, symbol)
	metrics.RESTLatency.WithLabelValues("tickers").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordError("price_fetch", symbol)
		if ok {
			// 旧值降级：行情过期好过完全没有
			log.Warn().Err(err).Str("symbol", symbol).Msg("价格回源失败，返回过期缓存")
			return &cached, nil
		}
		return nil, err
	}

	s.mu.Lock()
	s.cache[symbol] = *fresh
	s.mu.Unlock()

	metrics.LastPrice.WithLabelValues(symbol).Set(fresh.LastPrice)
	return fresh, nil
}

// Invalidate 强制过期某个交易对的缓存。
func (s *Service) Invalidate(symbol string) {
	s.mu.Lock()
	delete(s.cache, symbol)
	s.mu.Unlock()
}
