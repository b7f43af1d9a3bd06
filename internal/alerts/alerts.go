package alerts

import (
	"fmt"
	"sync"
	"time"

	gateway "github.com/25angel/aida-trade/internal/exchange"
	"github.com/25angel/aida-trade/internal/metrics"
	"github.com/rs/zerolog/log"
)

// 告警方向
const (
	DirectionAbove = "above"
	DirectionBelow = "below"
)

// Rule 价格告警规则：收盘价越过阈值时触发。
type Rule struct {
	Symbol    string  `mapstructure:"symbol" json:"symbol"`
	Direction string  `mapstructure:"direction" json:"direction"` // above / below
	Threshold float64 `mapstructure:"threshold" json:"threshold"`
}

// Validate 校验规则有效性
func (r *Rule) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("alert rule: symbol 不能为空")
	}
	if r.Direction != DirectionAbove && r.Direction != DirectionBelow {
		return fmt.Errorf("alert rule: direction 必须是 above 或 below")
	}
	if r.Threshold <= 0 {
		return fmt.Errorf("alert rule: threshold 必须 > 0")
	}
	return nil
}

// Manager 告警管理器：只在已收盘K线上评估，触发后进入冷却期。
type Manager struct {
	mu        sync.Mutex
	rules     []Rule
	cooldown  time.Duration
	lastFired map[int]time.Time
}

// NewManager 创建告警管理器
func NewManager(rules []Rule, cooldown time.Duration) *Manager {
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	return &Manager{
		rules:     rules,
		cooldown:  cooldown,
		lastFired: make(map[int]time.Time),
	}
}

// OnKline 在收盘K线上评估全部规则。未收盘的推送直接忽略。
func (m *Manager) OnKline(k *gateway.Kline) {
	if k == nil || !k.Confirm {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i := range m.rules {
		rule := &m.rules[i]
		if rule.Symbol != k.Symbol {
			continue
		}

		crossed := (rule.Direction == DirectionAbove && k.Close >= rule.Threshold) ||
			(rule.Direction == DirectionBelow && k.Close <= rule.Threshold)
		if !crossed {
			continue
		}

		// 冷却期内不重复触发
		if last, ok := m.lastFired[i]; ok && now.Sub(last) < m.cooldown {
			continue
		}
		m.lastFired[i] = now

		log.Warn().
			Str("symbol", k.Symbol).
			Str("direction", rule.Direction).
			Float64("threshold", rule.Threshold).
			Float64("close", k.Close).
			Msg("价格告警触发")
		metrics.RecordAlert(k.Symbol, rule.Direction)
	}
}

// Rules 返回规则副本。
func (m *Manager) Rules() []Rule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}
