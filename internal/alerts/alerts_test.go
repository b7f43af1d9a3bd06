package alerts

import (
	"testing"
	"time"

	gateway "github.com/25angel/aida-trade/internal/exchange"
)

func TestRuleValidate(t *testing.T) {
	valid := Rule{Symbol: "BTCUSDT", Direction: DirectionAbove, Threshold: 100000}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	bad := []Rule{
		{Direction: DirectionAbove, Threshold: 1},
		{Symbol: "BTCUSDT", Direction: "sideways", Threshold: 1},
		{Symbol: "BTCUSDT", Direction: DirectionBelow, Threshold: 0},
	}
	for i, r := range bad {
		if err := r.Validate(); err == nil {
			t.Fatalf("bad rule %d accepted: %+v", i, r)
		}
	}
}

func TestOnKlineFiresAboveThreshold(t *testing.T) {
	m := NewManager([]Rule{
		{Symbol: "BTCUSDT", Direction: DirectionAbove, Threshold: 100000},
	}, time.Minute)

	m.OnKline(&gateway.Kline{Symbol: "BTCUSDT", Close: 100500, Confirm: true})
	if len(m.lastFired) != 1 {
		t.Fatalf("alert did not fire")
	}
}

func TestOnKlineIgnoresUnconfirmed(t *testing.T) {
	m := NewManager([]Rule{
		{Symbol: "BTCUSDT", Direction: DirectionAbove, Threshold: 100000},
	}, time.Minute)

	m.OnKline(&gateway.Kline{Symbol: "BTCUSDT", Close: 200000, Confirm: false})
	if len(m.lastFired) != 0 {
		t.Fatalf("unconfirmed kline should not trigger")
	}
	m.OnKline(nil)
}

func TestOnKlineSymbolMismatch(t *testing.T) {
	m := NewManager([]Rule{
		{Symbol: "ETHUSDT", Direction: DirectionBelow, Threshold: 2000},
	}, time.Minute)

	m.OnKline(&gateway.Kline{Symbol: "BTCUSDT", Close: 1, Confirm: true})
	if len(m.lastFired) != 0 {
		t.Fatalf("other symbol should not trigger")
	}
}

func TestCooldownSuppressesRefire(t *testing.T) {
	m := NewManager([]Rule{
		{Symbol: "BTCUSDT", Direction: DirectionBelow, Threshold: 60000},
	}, time.Hour)

	k := &gateway.Kline{Symbol: "BTCUSDT", Close: 59000, Confirm: true}
	m.OnKline(k)
	first := m.lastFired[0]

	m.OnKline(k)
	if m.lastFired[0] != first {
		t.Fatalf("cooldown did not suppress refire")
	}
}

func TestCooldownExpiry(t *testing.T) {
	m := NewManager([]Rule{
		{Symbol: "BTCUSDT", Direction: DirectionBelow, Threshold: 60000},
	}, time.Minute)

	// 把上次触发时间拨回过去，模拟冷却期已过
	m.lastFired[0] = time.Now().Add(-2 * time.Minute)
	before := m.lastFired[0]

	m.OnKline(&gateway.Kline{Symbol: "BTCUSDT", Close: 59000, Confirm: true})
	if !m.lastFired[0].After(before) {
		t.Fatalf("alert should refire after cooldown")
	}
}

func TestRulesCopy(t *testing.T) {
	m := NewManager([]Rule{
		{Symbol: "BTCUSDT", Direction: DirectionAbove, Threshold: 1},
	}, time.Minute)

	rules := m.Rules()
	rules[0].Threshold = 999
	if m.Rules()[0].Threshold != 1 {
		t.Fatalf("Rules returned a live reference")
	}
}
