package portfolio

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PriceLookup 估值时使用的价格查询，通常由 prices.Service 实现。
type PriceLookup interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

// Seed 模拟账户的初始资金配置。
type Seed struct {
	QuoteCurrency  string             // 计价货币，如 USDT
	FundingBalance decimal.Decimal    // 资金账户余额
	UnifiedBalance decimal.Decimal    // 统一账户余额
	Holdings       map[string]decimal.Decimal // 币种 -> 数量
}

// Summary 对外展示的账户概览。
type Summary struct {
	QuoteCurrency  string  `json:"quoteCurrency"`
	FundingBalance string  `json:"fundingBalance"`
	UnifiedBalance string  `json:"unifiedBalance"`
	Equity         string  `json:"equity"`
	RealizedPNL    string  `json:"realizedPnl"`
	UnrealizedPNL  string  `json:"unrealizedPnl"`
	Hidden         bool    `json:"hidden"`
}

// Simulator 模拟投资组合：余额、持仓与盈亏全部为演示用途的合成数据。
// 所有读写经由互斥锁，不落盘。
type Simulator struct {
	mu sync.RWMutex

	quote     string
	funding   decimal.Decimal
	unified   decimal.Decimal
	holdings  map[string]decimal.Decimal
	realized  decimal.Decimal
	costBasis decimal.Decimal // 初始权益，未实现盈亏以此为基准

	lookup PriceLookup
}

// NewSimulator 创建模拟账户；costBasis 以首次估值为基准延迟确定。
func NewSimulator(seed Seed, lookup PriceLookup) *Simulator {
	quote := seed.QuoteCurrency
	if quote == "" {
		quote = "USDT"
	}
	holdings := make(map[string]decimal.Decimal, len(seed.Holdings))
	for coin, qty := range seed.Holdings {
		if qty.IsPositive() {
			holdings[coin] = qty
		}
	}
	return &Simulator{
		quote:    quote,
		funding:  seed.FundingBalance,
		unified:  seed.UnifiedBalance,
		holdings: holdings,
		lookup:   lookup,
	}
}

// FundingBalance 资金账户余额
func (s *Simulator) FundingBalance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.funding
}

// UnifiedBalance 统一账户余额
func (s *Simulator) UnifiedBalance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unified
}

// RealizedPNL 累计已实现盈亏
func (s *Simulator) RealizedPNL() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.realized
}

// SetFundingBalance 覆盖资金账户余额（演示用）。
func (s *Simulator) SetFundingBalance(v decimal.Decimal) {
	s.mu.Lock()
	s.funding = v
	s.mu.Unlock()
}

// SetUnifiedBalance 覆盖统一账户余额（演示用）。
func (s *Simulator) SetUnifiedBalance(v decimal.Decimal) {
	s.mu.Lock()
	s.unified = v
	s.mu.Unlock()
}

// AddRealizedPNL 累加已实现盈亏，同步进入统一账户。
func (s *Simulator) AddRealizedPNL(delta decimal.Decimal) {
	s.mu.Lock()
	s.realized = s.realized.Add(delta)
	s.unified = s.unified.Add(delta)
	s.mu.Unlock()
}

// Transfer 在资金账户与统一账户之间划转；余额不足返回错误。
func (s *Simulator) Transfer(amount decimal.Decimal, toUnified bool) error {
	if !amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if toUnified {
		if s.funding.LessThan(amount) {
			return fmt.Errorf("funding balance %s insufficient for transfer %s", s.funding, amount)
		}
		s.funding = s.funding.Sub(amount)
		s.unified = s.unified.Add(amount)
	} else {
		if s.unified.LessThan(amount) {
			return fmt.Errorf("unified balance %s insufficient for transfer %s", s.unified, amount)
		}
		s.unified = s.unified.Sub(amount)
		s.funding = s.funding.Add(amount)
	}

	log.Info().
		Str("amount", amount.String()).
		Bool("to_unified", toUnified).
		Msg("账户间划转完成")
	return nil
}

// Holdings 返回持仓副本。
func (s *Simulator) Holdings() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(s.holdings))
	for coin, qty := range s.holdings {
		out[coin] = qty
	}
	return out
}

// Equity 估算总权益：两个余额桶加上按最新价折算的持仓市值。
func (s *Simulator) Equity(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	total := s.funding.Add(s.unified)
	quote := s.quote
	holdings := make(map[string]decimal.Decimal, len(s.holdings))
	for coin, qty := range s.holdings {
		holdings[coin] = qty
	}
	s.mu.RUnlock()

	for coin, qty := range holdings {
		price, err := s.lookup.GetPrice(ctx, coin+quote)
		if err != nil {
			return decimal.Zero, fmt.Errorf("value holding %s: %w", coin, err)
		}
		total = total.Add(qty.Mul(decimal.NewFromFloat(price)))
	}

	s.mu.Lock()
	if s.costBasis.IsZero() {
		// 首次成功估值作为未实现盈亏基准
		s.costBasis = total
	}
	s.mu.Unlock()

	return total, nil
}

// UnrealizedPNL 当前权益相对基准的差值。
func (s *Simulator) UnrealizedPNL(ctx context.Context) (decimal.Decimal, error) {
	equity, err := s.Equity(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	s.mu.RLock()
	basis := s.costBasis
	s.mu.RUnlock()
	return equity.Sub(basis), nil
}

// Snapshot 汇总当前账户概览；hidden 为真时金额以掩码展示。
func (s *Simulator) Snapshot(ctx context.Context, hidden bool) (Summary, error) {
	equity, err := s.Equity(ctx)
	if err != nil {
		return Summary{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	unrealized := equity.Sub(s.costBasis)
	summary := Summary{
		QuoteCurrency:  s.quote,
		FundingBalance: s.funding.StringFixed(2),
		UnifiedBalance: s.unified.StringFixed(2),
		Equity:         equity.StringFixed(2),
		RealizedPNL:    s.realized.StringFixed(2),
		UnrealizedPNL:  unrealized.StringFixed(2),
		Hidden:         hidden,
	}
	if hidden {
		const masked = "****"
		summary.FundingBalance = masked
		summary.UnifiedBalance = masked
		summary.Equity = masked
		summary.RealizedPNL = masked
		summary.UnrealizedPNL = masked
	}
	return summary, nil
}
