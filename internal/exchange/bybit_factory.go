package gateway

import (
	"net/http"
	"os"
	"strings"
	"time"
)

// EnvConfig 从环境变量构造 Bybit 客户端端点。
type EnvConfig struct {
	RestURL    string
	WSEndpoint string
}

// LoadEnvConfig 读取端点（可选），若未设置则使用默认。
func LoadEnvConfig() EnvConfig {
	return EnvConfig{
		RestURL:    pick(os.Getenv("BYBIT_REST_URL"), BybitRestEndpoint),
		WSEndpoint: pick(os.Getenv("BYBIT_WS_ENDPOINT"), BybitSpotWSEndpoint),
	}
}

func pick(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// NewDefaultHTTPClient 带超时的默认 http 客户端。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// BuildBybitClients 根据环境变量快速构建 REST/WS 客户端（仅骨架，不发起连接）。
// 调用方可传入自定义 http.Client（带代理/超时），否则使用默认。
func BuildBybitClients(httpCli *http.Client) (*BybitRESTClient, *BybitWSClient) {
	env := LoadEnvConfig()
	if httpCli == nil {
		httpCli = NewDefaultHTTPClient()
	}

	rest := &BybitRESTClient{
		BaseURL:    env.RestURL,
		HTTPClient: httpCli,
		Limiter:    NewTokenBucketLimiter(5, 10),
		Retry:      DefaultRetryConfig(),
	}
	ws := NewBybitWSClient(env.WSEndpoint)
	return rest, ws
}
