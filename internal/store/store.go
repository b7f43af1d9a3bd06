package store

import (
	"math"
	"sync"
	"time"

	gateway "github.com/25angel/aida-trade/internal/exchange"
	"github.com/rs/zerolog/log"
)

// SymbolState 单个交易对的行情状态，仅驻留内存。
type SymbolState struct {
	Mu sync.RWMutex

	Symbol    string
	Interval  string
	LastKline gateway.Kline // 最近一根K线（可能未收盘）
	LastPrice float64
	LastUpdate time.Time // 最近一次WS推送时间

	// 收盘价历史（环形缓冲，仅收录已确认K线）
	CloseHistory      []float64
	CloseHistoryIndex int
	CloseHistorySize  int

	// 统计信息
	KlineCount     int64 // 收到的推送条数
	ConfirmedCount int64 // 已收盘K线条数
}

// Store 行情状态存储。不落盘：持久化仅限偏好设置，由 prefs 包负责。
type Store struct {
	mu      sync.RWMutex
	symbols map[string]*SymbolState
}

// NewStore 创建新的存储实例
func NewStore() *Store {
	return &Store{
		symbols: make(map[string]*SymbolState),
	}
}

// InitSymbol 初始化交易对状态
func (s *Store) InitSymbol(symbol, interval string, closeHistorySize int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.symbols[symbol]; exists {
		return
	}

	s.symbols[symbol] = &SymbolState{
		Symbol:           symbol,
		Interval:         interval,
		CloseHistory:     make([]float64, closeHistorySize),
		CloseHistorySize: closeHistorySize,
	}

	log.Info().Str("symbol", symbol).Str("interval", interval).Msg("交易对状态初始化完成")
}

// GetSymbolState 获取交易对状态（只读）
func (s *Store) GetSymbolState(symbol string) *SymbolState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.symbols[symbol]
}

// ApplyKline 应用一条K线推送：刷新最新价，收盘K线进入历史缓冲。
func (s *Store) ApplyKline(k *gateway.Kline) {
	s.mu.RLock()
	state := s.symbols[k.Symbol]
	s.mu.RUnlock()

	if state == nil {
		log.Warn().Str("symbol", k.Symbol).Msg("交易对未初始化，推送丢弃")
		return
	}

	state.Mu.Lock()
	defer state.Mu.Unlock()

	state.LastKline = *k
	state.LastPrice = k.Close
	state.LastUpdate = time.Now()
	state.KlineCount++

	if k.Confirm {
		state.ConfirmedCount++
		state.CloseHistory[state.CloseHistoryIndex] = k.Close
		state.CloseHistoryIndex = (state.CloseHistoryIndex + 1) % state.CloseHistorySize
	}
}

// GetLastPrice 获取最新价格；无数据时返回 0。
func (s *Store) GetLastPrice(symbol string) float64 {
	s.mu.RLock()
	state := s.symbols[symbol]
	s.mu.RUnlock()

	if state == nil {
		return 0
	}

	state.Mu.RLock()
	defer state.Mu.RUnlock()
	return state.LastPrice
}

// GetLastKline 获取最近一根K线的副本；无数据时第二个返回值为 false。
func (s *Store) GetLastKline(symbol string) (gateway.Kline, bool) {
	s.mu.RLock()
	state := s.symbols[symbol]
	s.mu.RUnlock()

	if state == nil {
		return gateway.Kline{}, false
	}

	state.Mu.RLock()
	defer state.Mu.RUnlock()
	if state.KlineCount == 0 {
		return gateway.Kline{}, false
	}
	return state.LastKline, true
}

// LastUpdateAge 距离上一次推送的时长；从未推送时返回 0 和 false。
func (s *Store) LastUpdateAge(symbol string) (time.Duration, bool) {
	s.mu.RLock()
	state := s.symbols[symbol]
	s.mu.RUnlock()

	if state == nil {
		return 0, false
	}

	state.Mu.RLock()
	defer state.Mu.RUnlock()
	if state.LastUpdate.IsZero() {
		return 0, false
	}
	return time.Since(state.LastUpdate), true
}

// ChangePct 基于收盘价缓冲计算区间涨跌幅（最早有效值到最新值）。
func (s *Store) ChangePct(symbol string) float64 {
	s.mu.RLock()
	state := s.symbols[symbol]
	s.mu.RUnlock()

	if state == nil {
		return 0
	}

	state.Mu.RLock()
	defer state.Mu.RUnlock()

	var first, last float64
	// 从最老的位置开始找第一个有效收盘价
	for i := 0; i < state.CloseHistorySize; i++ {
		idx := (state.CloseHistoryIndex + i) % state.CloseHistorySize
		if state.CloseHistory[idx] > 0 {
			if first == 0 {
				first = state.CloseHistory[idx]
			}
			last = state.CloseHistory[idx]
		}
	}

	if first == 0 || last == 0 {
		return 0
	}
	return (last - first) / first * 100
}

// PriceStdDev 计算收盘价标准差
func (s *Store) PriceStdDev(symbol string) float64 {
	s.mu.RLock()
	state := s.symbols[symbol]
	s.mu.RUnlock()

	if state == nil {
		return 0
	}

	state.Mu.RLock()
	defer state.Mu.RUnlock()

	// 计算均值
	var sum float64
	count := 0
	for _, price := range state.CloseHistory {
		if price > 0 {
			sum += price
			count++
		}
	}

	if count == 0 {
		return 0
	}

	mean := sum / float64(count)

	// 计算标准差
	var variance float64
	for _, price := range state.CloseHistory {
		if price > 0 {
			diff := price - mean
			variance += diff * diff
		}
	}

	return math.Sqrt(variance / float64(count))
}

// GetAllSymbols 获取所有交易对列表
func (s *Store) GetAllSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.symbols))
	for symbol := range s.symbols {
		symbols = append(symbols, symbol)
	}
	return symbols
}
