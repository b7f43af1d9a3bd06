package gateway

import "testing"

func TestParseKlinePush(t *testing.T) {
	raw := []byte(`{
		"topic":"kline.5.BTCUSDT",
		"type":"snapshot",
		"ts":1672324988882,
		"data":[{
			"start":1672324800000,
			"end":1672325099999,
			"interval":"5",
			"open":"16649.5",
			"close":"16677",
			"high":"16677",
			"low":"16608",
			"volume":"2.081",
			"turnover":"34666.4005",
			"confirm":false,
			"timestamp":1672324988882
		}]
	}`)
	klines, err := ParseKlinePush(raw)
	if err != nil {
		t.Fatalf("parse err: %v", err)
	}
	if len(klines) != 1 {
		t.Fatalf("expected 1 kline, got %d", len(klines))
	}
	k := klines[0]
	if k.Symbol != "BTCUSDT" || k.Interval != "5" {
		t.Fatalf("unexpected topic split: %s %s", k.Symbol, k.Interval)
	}
	if k.Open != 16649.5 || k.Close != 16677 || k.High != 16677 || k.Low != 16608 {
		t.Fatalf("unexpected OHLC: %+v", k)
	}
	if k.Confirm {
		t.Fatalf("expected unconfirmed kline")
	}
	if k.Start != 1672324800000 || k.End != 1672325099999 {
		t.Fatalf("unexpected window: %d %d", k.Start, k.End)
	}
}

func TestParseKlinePushOtherTopic(t *testing.T) {
	raw := []byte(`{"topic":"tickers.BTCUSDT","type":"delta","ts":1,"data":{}}`)
	_, err := ParseKlinePush(raw)
	if err != ErrNotKline {
		t.Fatalf("expected ErrNotKline, got %v", err)
	}
}

func TestParseKlinePushMalformedTopic(t *testing.T) {
	raw := []byte(`{"topic":"kline.1","type":"snapshot","ts":1,"data":[]}`)
	_, err := ParseKlinePush(raw)
	if err == nil || err == ErrNotKline {
		t.Fatalf("expected malformed topic error, got %v", err)
	}
}

func TestParseOpResponse(t *testing.T) {
	raw := []byte(`{"success":true,"ret_msg":"subscribe","conn_id":"abc123","op":"subscribe"}`)
	resp, ok := ParseOpResponse(raw)
	if !ok {
		t.Fatalf("expected op response")
	}
	if !resp.Success || resp.Op != "subscribe" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// kline 推送不应被识别为应答帧
	push := []byte(`{"topic":"kline.1.BTCUSDT","type":"snapshot","ts":1,"data":[]}`)
	if _, ok := ParseOpResponse(push); ok {
		t.Fatalf("push message misidentified as op response")
	}
}

func TestTopic(t *testing.T) {
	if got := Topic("1", "ETHUSDT"); got != "kline.1.ETHUSDT" {
		t.Fatalf("unexpected topic: %s", got)
	}
}
