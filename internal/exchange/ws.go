package gateway

// KlineHandler 处理 ws 推送。
type KlineHandler interface {
	OnKline(k *Kline)
}

// WSClient 是 ws 连接的抽象。
type WSClient interface {
	Subscribe(symbol, interval string) error
	Run(handler KlineHandler) error
	Close() error
	IsConnected() bool
}
