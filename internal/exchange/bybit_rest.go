package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// BybitRestEndpoint Bybit v5 公共 REST 端点。
const BybitRestEndpoint = "https://api.bybit.com"

// BybitRESTClient 只访问公共行情端点的简化客户端；HTTPClient 可注入 httptest。
type BybitRESTClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    RateLimiter
	Retry      RetryConfig
}

type tickersResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string `json:"category"`
		List     []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			Price24hPcnt string `json:"price24hPcnt"`
		} `json:"list"`
	} `json:"result"`
}

type serverTimeResp struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		TimeSecond string `json:"timeSecond"`
		TimeNano   string `json:"timeNano"`
	} `json:"result"`
}

// GetTicker 调用 /v5/market/tickers 获取最新成交价。
func (c *BybitRESTClient) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	if c == nil || c.HTTPClient == nil {
		return nil, fmt.Errorf("http client not set")
	}
	if symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}

	query := url.Values{}
	query.Set("category", "spot")
	query.Set("symbol", symbol)

	var resp tickersResp
	if err := c.getJSON(ctx, "/v5/market/tickers", query, &resp); err != nil {
		return nil, err
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("tickers retCode %d: %s", resp.RetCode, resp.RetMsg)
	}
	if len(resp.Result.List) == 0 {
		return nil, fmt.Errorf("empty ticker list for %s", symbol)
	}

	entry := resp.Result.List[0]
	return &Ticker{
		Symbol:       entry.Symbol,
		LastPrice:    parseFloat(entry.LastPrice),
		Price24hPcnt: parseFloat(entry.Price24hPcnt),
		FetchedAt:    time.Now(),
	}, nil
}

// ServerTime 调用 /v5/market/time，可用作REST可达性探测。
func (c *BybitRESTClient) ServerTime(ctx context.Context) (time.Time, error) {
	if c == nil || c.HTTPClient == nil {
		return time.Time{}, fmt.Errorf("http client not set")
	}

	var resp serverTimeResp
	if err := c.getJSON(ctx, "/v5/market/time", nil, &resp); err != nil {
		return time.Time{}, err
	}
	if resp.RetCode != 0 {
		return time.Time{}, fmt.Errorf("time retCode %d: %s", resp.RetCode, resp.RetMsg)
	}

	sec := int64(parseFloat(resp.Result.TimeSecond))
	if sec == 0 {
		return time.Time{}, fmt.Errorf("empty server time")
	}
	return time.Unix(sec, 0), nil
}

// Ping REST 心跳：服务器时间可取即视为可达。
func (c *BybitRESTClient) Ping(ctx context.Context) error {
	_, err := c.ServerTime(ctx)
	return err
}

// getJSON 发起 GET 请求并解析 JSON；经过限速器与重试策略。
func (c *BybitRESTClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return WithRetry(func() error {
		if c.Limiter != nil {
			c.Limiter.Wait()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 300 {
			return fmt.Errorf("GET %s status %d: %s", path, resp.StatusCode, string(body))
		}
		return json.Unmarshal(body, out)
	}, c.Retry)
}
