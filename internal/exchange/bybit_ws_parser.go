package gateway

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// KlineTopicPrefix kline 主题前缀，匹配该前缀的消息才会转发给 handler。
const KlineTopicPrefix = "kline."

// PushMessage 对应 Bybit v5 public stream 的推送包装。
type PushMessage struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"` // snapshot / delta
	TS    int64           `json:"ts"`
	Data  json.RawMessage `json:"data"`
}

// OpResponse 对应 subscribe/ping 等操作的应答帧。
type OpResponse struct {
	Success bool   `json:"success"`
	RetMsg  string `json:"ret_msg"`
	Op      string `json:"op"`
	ConnID  string `json:"conn_id"`
}

// ErrNotKline 表示该 WS 消息不是 kline 推送，应由调用方静默忽略。
var ErrNotKline = errors.New("ws message is not a kline push")

// klineEntry Bybit v5 kline 推送中的单条数据，价格与成交量均为字符串。
type klineEntry struct {
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	Interval  string `json:"interval"`
	Open      string `json:"open"`
	Close     string `json:"close"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Volume    string `json:"volume"`
	Turnover  string `json:"turnover"`
	Confirm   bool   `json:"confirm"`
	Timestamp int64  `json:"timestamp"`
}

// ParseOpResponse 尝试把消息解析为操作应答帧；不是应答帧时返回 false。
func ParseOpResponse(raw []byte) (OpResponse, bool) {
	var resp OpResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return OpResponse{}, false
	}
	if resp.Op == "" {
		return OpResponse{}, false
	}
	return resp, true
}

// ParseKlinePush 解析 kline 推送，返回消息中携带的所有K线。
// 主题格式为 kline.{interval}.{symbol}；非 kline 主题返回 ErrNotKline。
func ParseKlinePush(raw []byte) ([]*Kline, error) {
	var msg PushMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(msg.Topic, KlineTopicPrefix) {
		return nil, ErrNotKline
	}

	// 从主题中拆出 interval 和 symbol
	parts := strings.SplitN(msg.Topic, ".", 3)
	if len(parts) != 3 {
		return nil, errors.New("malformed kline topic: " + msg.Topic)
	}
	interval, symbol := parts[1], parts[2]

	var entries []klineEntry
	if err := json.Unmarshal(msg.Data, &entries); err != nil {
		return nil, err
	}

	klines := make([]*Kline, 0, len(entries))
	for _, e := range entries {
		klines = append(klines, &Kline{
			Symbol:    symbol,
			Interval:  interval,
			Start:     e.Start,
			End:       e.End,
			Open:      parseFloat(e.Open),
			High:      parseFloat(e.High),
			Low:       parseFloat(e.Low),
			Close:     parseFloat(e.Close),
			Volume:    parseFloat(e.Volume),
			Turnover:  parseFloat(e.Turnover),
			Confirm:   e.Confirm,
			Timestamp: e.Timestamp,
		})
	}
	return klines, nil
}

func parseFloat(v string) float64 {
	if v == "" {
		return 0
	}
	f, _ := strconv.ParseFloat(v, 64)
	return f
}
