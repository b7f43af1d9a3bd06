package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// BybitSpotWSEndpoint Bybit v5 现货公共流端点。
const BybitSpotWSEndpoint = "wss://stream.bybit.com/v5/public/spot"

// subscribeRequest v5 订阅请求帧。
type subscribeRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

// BybitWSClient 单主题 kline 订阅客户端：连接、订阅一次、转发或丢弃。
// 任何读写错误只记录日志并翻转 connected 标志，不做重连（由设计决定交给上层观察）。
type BybitWSClient struct {
	Endpoint     string
	Dialer       *websocket.Dialer
	PingInterval time.Duration
	PongWait     time.Duration

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	topic     string

	stopPing chan struct{}
	pingOnce sync.Once
}

// NewBybitWSClient 创建客户端，使用默认端点与心跳参数。
func NewBybitWSClient(endpoint string) *BybitWSClient {
	if endpoint == "" {
		endpoint = BybitSpotWSEndpoint
	}
	return &BybitWSClient{
		Endpoint:     endpoint,
		Dialer:       websocket.DefaultDialer,
		PingInterval: 20 * time.Second,
		PongWait:     30 * time.Second,
		stopPing:     make(chan struct{}),
	}
}

// Connect 建立 WS 连接并启动心跳协程。
func (c *BybitWSClient) Connect(ctx context.Context) error {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, c.Endpoint, nil)
	if err != nil {
		log.Error().Err(err).Str("endpoint", c.Endpoint).Msg("WS连接失败")
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.pingLoop()

	log.Info().Str("endpoint", c.Endpoint).Msg("WS连接成功")
	return nil
}

// Subscribe 发送唯一一条订阅消息，主题为 kline.{interval}.{symbol}。
// 重复调用返回 ErrAlreadySubscribed：本客户端只维护一个频道。
func (c *BybitWSClient) Subscribe(symbol, interval string) error {
	if symbol == "" || interval == "" {
		return fmt.Errorf("symbol and interval required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.connected {
		return ErrNotConnected
	}
	if c.topic != "" {
		return ErrAlreadySubscribed
	}

	topic := Topic(interval, symbol)
	req := subscribeRequest{Op: "subscribe", Args: []string{topic}}
	if err := c.conn.WriteJSON(req); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("发送订阅消息失败")
		return err
	}

	c.topic = topic
	log.Info().Str("topic", topic).Msg("已发送订阅请求")
	return nil
}

// Run 读取消息循环：kline 推送转发给 handler，应答帧记录日志，其余丢弃。
// 读错误或对端关闭时记录日志、翻转 connected 标志并返回，不重试。
func (c *BybitWSClient) Run(handler KlineHandler) error {
	conn := c.getConn()
	if conn == nil {
		return ErrNotConnected
	}
	c.mu.RLock()
	subscribed := c.topic != ""
	c.mu.RUnlock()
	if !subscribed {
		return ErrNotSubscribed
	}

	_ = conn.SetReadDeadline(time.Now().Add(c.PongWait))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			log.Error().Err(err).Msg("WS读取失败，连接终止")
			c.markDisconnected()
			return err
		}
		// 任何入站消息都视为链路存活
		_ = conn.SetReadDeadline(time.Now().Add(c.PongWait))

		if resp, ok := ParseOpResponse(raw); ok {
			if resp.Op == "pong" || resp.Op == "ping" {
				continue
			}
			if !resp.Success {
				log.Warn().Str("op", resp.Op).Str("ret_msg", resp.RetMsg).Msg("操作应答失败")
			} else {
				log.Debug().Str("op", resp.Op).Msg("操作应答成功")
			}
			continue
		}

		klines, err := ParseKlinePush(raw)
		if err != nil {
			if err != ErrNotKline {
				log.Warn().Err(err).Msg("解析kline推送失败，消息丢弃")
			}
			continue
		}
		if handler == nil {
			continue
		}
		for _, k := range klines {
			handler.OnKline(k)
		}
	}
}

// Close 主动关闭连接并停止心跳。
func (c *BybitWSClient) Close() error {
	c.pingOnce.Do(func() { close(c.stopPing) })

	c.mu.Lock()
	defer c.mu.Unlock()

	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected 是否已连接
func (c *BybitWSClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// pingLoop 按 Bybit 要求定期发送应用层 ping 帧；失败只记录并退出。
func (c *BybitWSClient) pingLoop() {
	ticker := time.NewTicker(c.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopPing:
			return
		case <-ticker.C:
			conn := c.getConn()
			if conn == nil {
				return
			}
			c.mu.Lock()
			err := conn.WriteJSON(subscribeRequest{Op: "ping"})
			c.mu.Unlock()
			if err != nil {
				log.Error().Err(err).Msg("WS心跳发送失败")
				c.markDisconnected()
				return
			}
		}
	}
}

func (c *BybitWSClient) getConn() *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *BybitWSClient) markDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}
