package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

type captureHandler struct {
	klines []*Kline
}

func (h *captureHandler) OnKline(k *Kline) {
	h.klines = append(h.klines, k)
}

func TestStubSingleSubscription(t *testing.T) {
	stub := &BybitWSStub{}

	if err := stub.Subscribe("BTCUSDT", "1"); err != nil {
		t.Fatalf("first subscribe err: %v", err)
	}
	if err := stub.Subscribe("ETHUSDT", "5"); err != ErrAlreadySubscribed {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
}

func TestStubRunRequiresSubscription(t *testing.T) {
	stub := &BybitWSStub{}
	if err := stub.Run(&captureHandler{}); err != ErrNotSubscribed {
		t.Fatalf("expected ErrNotSubscribed, got %v", err)
	}
}

func TestStubReplay(t *testing.T) {
	stub := &BybitWSStub{
		Klines: []*Kline{
			{Close: 100, Confirm: false},
			{Close: 101, Confirm: true},
		},
	}
	if err := stub.Subscribe("BTCUSDT", "1"); err != nil {
		t.Fatalf("subscribe err: %v", err)
	}

	handler := &captureHandler{}
	if err := stub.Run(handler); err != nil {
		t.Fatalf("run err: %v", err)
	}
	if len(handler.klines) != 2 {
		t.Fatalf("expected 2 klines, got %d", len(handler.klines))
	}
	// 回放填充订阅时的 symbol/interval
	if handler.klines[0].Symbol != "BTCUSDT" || handler.klines[0].Interval != "1" {
		t.Fatalf("symbol/interval not filled: %+v", handler.klines[0])
	}
	if stub.IsConnected() {
		t.Fatalf("stub should report disconnected after replay")
	}
}

func TestClientAgainstLocalServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade err: %v", err)
			return
		}
		defer conn.Close()

		// 读取订阅帧并校验主题
		var req subscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			t.Errorf("read subscribe err: %v", err)
			return
		}
		if req.Op != "subscribe" || len(req.Args) != 1 || req.Args[0] != "kline.1.BTCUSDT" {
			t.Errorf("unexpected subscribe frame: %+v", req)
			return
		}

		conn.WriteJSON(map[string]interface{}{"success": true, "op": "subscribe", "ret_msg": ""})
		conn.WriteMessage(websocket.TextMessage, []byte(`{
			"topic":"kline.1.BTCUSDT","type":"snapshot","ts":1,
			"data":[{"start":0,"end":59999,"interval":"1",
				"open":"100","close":"101","high":"102","low":"99",
				"volume":"1","turnover":"100","confirm":true,"timestamp":1}]
		}`))
		// 发送一条非kline推送，客户端应丢弃
		conn.WriteMessage(websocket.TextMessage, []byte(`{"topic":"tickers.BTCUSDT","type":"delta","ts":2,"data":{}}`))
	}))
	defer srv.Close()

	client := NewBybitWSClient("ws" + strings.TrimPrefix(srv.URL, "http"))
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("connect err: %v", err)
	}
	defer client.Close()

	if err := client.Subscribe("BTCUSDT", "1"); err != nil {
		t.Fatalf("subscribe err: %v", err)
	}

	handler := &captureHandler{}
	// 服务端发完消息即关闭连接，Run应返回读错误且不重试
	if err := client.Run(handler); err == nil {
		t.Fatalf("expected read error after server close")
	}
	if client.IsConnected() {
		t.Fatalf("client should flip connected flag after read error")
	}
	if len(handler.klines) != 1 {
		t.Fatalf("expected 1 kline, got %d", len(handler.klines))
	}
	k := handler.klines[0]
	if k.Symbol != "BTCUSDT" || k.Close != 101 || !k.Confirm {
		t.Fatalf("unexpected kline: %+v", k)
	}
}

func TestRealClientRequiresConnection(t *testing.T) {
	client := NewBybitWSClient("")
	if client.Endpoint != BybitSpotWSEndpoint {
		t.Fatalf("default endpoint not applied: %s", client.Endpoint)
	}
	if err := client.Subscribe("BTCUSDT", "1"); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := client.Run(nil); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected from Run, got %v", err)
	}
	if client.IsConnected() {
		t.Fatalf("client should not report connected")
	}
}
