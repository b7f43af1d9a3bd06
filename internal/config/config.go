package config

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/25angel/aida-trade/internal/alerts"
)

// Config 全局配置结构
type Config struct {
	Global    GlobalConfig    `mapstructure:"global"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Alerts    []alerts.Rule   `mapstructure:"alerts"`
}

// GlobalConfig 全局配置
type GlobalConfig struct {
	LogLevel             string `mapstructure:"log_level"`              // 日志级别
	MetricsPort          int    `mapstructure:"metrics_port"`           // Prometheus 端口
	APIPort              int    `mapstructure:"api_port"`               // HTTP API 端口
	PrefsPath            string `mapstructure:"prefs_path"`             // 偏好文件路径
	PriceTTLSec          int    `mapstructure:"price_ttl_sec"`          // 价格缓存有效期 (秒)
	ValuationIntervalSec int    `mapstructure:"valuation_interval_sec"` // 组合估值间隔 (秒)
	AlertCooldownSec     int    `mapstructure:"alert_cooldown_sec"`     // 告警冷却时间 (秒)
}

// FeedConfig 行情订阅配置：单交易对、单频道
type FeedConfig struct {
	Symbol       string `mapstructure:"symbol"`        // 订阅交易对 (e.g., BTCUSDT)
	Interval     string `mapstructure:"interval"`      // kline 周期 (1, 5, 60, D ...)
	WSEndpoint   string `mapstructure:"ws_endpoint"`   // WS 端点，空则使用默认
	RestEndpoint string `mapstructure:"rest_endpoint"` // REST 端点，空则使用默认
}

// PortfolioConfig 模拟账户初始配置
type PortfolioConfig struct {
	QuoteCurrency  string             `mapstructure:"quote_currency"`  // 计价货币
	FundingBalance float64            `mapstructure:"funding_balance"` // 资金账户初始余额
	UnifiedBalance float64            `mapstructure:"unified_balance"` // 统一账户初始余额
	Holdings       map[string]float64 `mapstructure:"holdings"`        // 初始持仓: 币种 -> 数量
}

var globalConfig *Config

// 合法的 kline 周期集合（Bybit v5）
var validIntervals = map[string]bool{
	"1": true, "3": true, "5": true, "15": true, "30": true,
	"60": true, "120": true, "240": true, "360": true, "720": true,
	"D": true, "W": true, "M": true,
}

// LoadConfig 加载配置文件
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvPrefix("AIDA")
	// 显式绑定嵌套字段的环境变量（生产推荐）
	viper.BindEnv("feed.ws_endpoint", "BYBIT_WS_ENDPOINT")
	viper.BindEnv("feed.rest_endpoint", "BYBIT_REST_URL")
	viper.BindEnv("global.metrics_port", "AIDA_METRICS_PORT")
	viper.BindEnv("global.api_port", "AIDA_API_PORT")
	viper.BindEnv("global.prefs_path", "AIDA_PREFS_PATH")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 验证配置
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	globalConfig = &cfg

	// 启动热重载监听
	go watchConfig()

	log.Info().Str("path", path).Msg("配置加载成功")
	return &cfg, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	return globalConfig
}

// validateConfig 验证配置有效性
func validateConfig(cfg *Config) error {
	// 行情配置验证
	if cfg.Feed.Symbol == "" {
		return fmt.Errorf("feed.symbol 不能为空")
	}
	if cfg.Feed.Interval == "" {
		cfg.Feed.Interval = "1"
	}
	if !validIntervals[cfg.Feed.Interval] {
		return fmt.Errorf("feed.interval %q 不是合法的 kline 周期", cfg.Feed.Interval)
	}

	// 全局配置验证与默认值
	if cfg.Global.PriceTTLSec == 0 {
		cfg.Global.PriceTTLSec = 10
	}
	if cfg.Global.PriceTTLSec < 1 || cfg.Global.PriceTTLSec > 300 {
		return fmt.Errorf("price_ttl_sec 必须在 1-300 之间")
	}
	if cfg.Global.ValuationIntervalSec == 0 {
		cfg.Global.ValuationIntervalSec = 30
	}
	if cfg.Global.ValuationIntervalSec < 5 || cfg.Global.ValuationIntervalSec > 3600 {
		return fmt.Errorf("valuation_interval_sec 必须在 5-3600 之间")
	}
	if cfg.Global.AlertCooldownSec == 0 {
		cfg.Global.AlertCooldownSec = 600
	}
	if cfg.Global.PrefsPath == "" {
		cfg.Global.PrefsPath = "prefs.json"
	}

	// 模拟账户验证
	if cfg.Portfolio.QuoteCurrency == "" {
		cfg.Portfolio.QuoteCurrency = "USDT"
	}
	if cfg.Portfolio.FundingBalance < 0 {
		return fmt.Errorf("portfolio.funding_balance 不能为负")
	}
	if cfg.Portfolio.UnifiedBalance < 0 {
		return fmt.Errorf("portfolio.unified_balance 不能为负")
	}
	for coin, qty := range cfg.Portfolio.Holdings {
		if coin == "" {
			return fmt.Errorf("portfolio.holdings: 币种不能为空")
		}
		if qty < 0 {
			return fmt.Errorf("portfolio.holdings[%s]: 数量不能为负", coin)
		}
	}

	// 告警规则验证
	for i := range cfg.Alerts {
		if err := cfg.Alerts[i].Validate(); err != nil {
			return fmt.Errorf("alerts[%d]: %w", i, err)
		}
	}

	return nil
}

// watchConfig 监听配置文件变化并热重载
func watchConfig() {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info().Str("file", e.Name).Msg("检测到配置文件变化，正在重载...")

		var newCfg Config
		if err := viper.Unmarshal(&newCfg); err != nil {
			log.Error().Err(err).Msg("重载配置失败")
			return
		}

		if err := validateConfig(&newCfg); err != nil {
			log.Error().Err(err).Msg("新配置验证失败，保持旧配置")
			return
		}

		globalConfig = &newCfg
		log.Info().Msg("配置热重载成功")
	})
}

// GetPriceTTL 获取价格缓存有效期
func (c *Config) GetPriceTTL() time.Duration {
	return time.Duration(c.Global.PriceTTLSec) * time.Second
}

// GetValuationInterval 获取组合估值间隔
func (c *Config) GetValuationInterval() time.Duration {
	return time.Duration(c.Global.ValuationIntervalSec) * time.Second
}

// GetAlertCooldown 获取告警冷却时间
func (c *Config) GetAlertCooldown() time.Duration {
	return time.Duration(c.Global.AlertCooldownSec) * time.Second
}
