package gateway

// BybitWSStub 是一个占位 WebSocket 客户端实现，便于单测/离线演示。
// Run 不会连接网络；调用时注入预置的K线序列模拟推送。
type BybitWSStub struct {
	Klines []*Kline

	symbol    string
	interval  string
	connected bool
	closed    bool
}

func (b *BybitWSStub) Subscribe(symbol, interval string) error {
	if b.symbol != "" {
		return ErrAlreadySubscribed
	}
	b.symbol = symbol
	b.interval = interval
	b.connected = true
	return nil
}

// Run 把预置K线依次回放给 handler，验证 handler 是否能处理。
func (b *BybitWSStub) Run(handler KlineHandler) error {
	if b.symbol == "" {
		return ErrNotSubscribed
	}
	if handler != nil {
		for _, k := range b.Klines {
			if k.Symbol == "" {
				k.Symbol = b.symbol
			}
			if k.Interval == "" {
				k.Interval = b.interval
			}
			handler.OnKline(k)
		}
	}
	b.connected = false
	return nil
}

func (b *BybitWSStub) Close() error {
	b.closed = true
	b.connected = false
	return nil
}

func (b *BybitWSStub) IsConnected() bool {
	return b.connected
}
