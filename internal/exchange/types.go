package gateway

import "time"

// Kline represents a single candlestick from the Bybit v5 kline stream
type Kline struct {
	Symbol    string  `json:"symbol"`
	Interval  string  `json:"interval"` // "1", "5", "60", "D" ...
	Start     int64   `json:"start"`    // 区间开始时间 (ms)
	End       int64   `json:"end"`      // 区间结束时间 (ms)
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Turnover  float64 `json:"turnover"`
	Confirm   bool    `json:"confirm"` // true表示该K线已收盘
	Timestamp int64   `json:"timestamp"`
}

// Ticker represents the latest public ticker for a symbol
type Ticker struct {
	Symbol       string    `json:"symbol"`
	LastPrice    float64   `json:"lastPrice"`
	Price24hPcnt float64   `json:"price24hPcnt"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// Topic 构造 kline 订阅主题：kline.{interval}.{symbol}
func Topic(interval, symbol string) string {
	return "kline." + interval + "." + symbol
}

// GatewayError represents a gateway-specific error
type GatewayError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *GatewayError) Error() string {
	return e.Message
}

// Common errors
var (
	ErrNotConnected      = &GatewayError{Code: 503, Message: "websocket not connected"}
	ErrAlreadySubscribed = &GatewayError{Code: 409, Message: "already subscribed to a topic"}
	ErrNotSubscribed     = &GatewayError{Code: 428, Message: "no topic subscribed"}
	ErrRateLimit         = &GatewayError{Code: 429, Message: "rate limit exceeded"}
	ErrTimeout           = &GatewayError{Code: 504, Message: "request timeout"}
)
