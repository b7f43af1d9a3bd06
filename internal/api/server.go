package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	gateway "github.com/25angel/aida-trade/internal/exchange"
	"github.com/25angel/aida-trade/internal/metrics"
	"github.com/25angel/aida-trade/internal/portfolio"
	"github.com/25angel/aida-trade/internal/prefs"
	"github.com/25angel/aida-trade/internal/store"
)

// Server 移动端使用的只读HTTP API。偏好设置是唯一可写入口。
type Server struct {
	store  *store.Store
	sim    *portfolio.Simulator
	prefs  *prefs.Prefs
	ws     gateway.WSClient
	symbol string
}

// NewServer 创建API服务
func NewServer(st *store.Store, sim *portfolio.Simulator, p *prefs.Prefs, ws gateway.WSClient, symbol string) *Server {
	return &Server{
		store:  st,
		sim:    sim,
		prefs:  p,
		ws:     ws,
		symbol: symbol,
	}
}

// Router 构建路由
func (s *Server) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.instrument("/api/health", s.handleHealth))
	mux.HandleFunc("/api/summary", s.instrument("/api/summary", s.handleSummary))
	mux.HandleFunc("/api/balances", s.instrument("/api/balances", s.handleBalances))
	mux.HandleFunc("/api/chart/balance", s.instrument("/api/chart/balance", s.handleChartBalance))
	mux.HandleFunc("/api/chart/pnl", s.instrument("/api/chart/pnl", s.handleChartPNL))
	mux.HandleFunc("/api/klines", s.instrument("/api/klines", s.handleKlines))
	mux.HandleFunc("/api/prefs", s.instrument("/api/prefs", s.handlePrefs))
	return mux
}

// Start 启动API服务器，返回实际监听端口。
func (s *Server) Start(port int) (int, error) {
	if port < 0 {
		port = 0
	}

	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("listen on %s failed: %w", addr, err)
	}

	actualPort := listener.Addr().(*net.TCPAddr).Port
	log.Info().Int("port", actualPort).Msg("启动HTTP API服务器")

	go func() {
		if err := http.Serve(listener, s.Router()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP API服务器退出")
		}
	}()

	return actualPort, nil
}

// instrument 记录访问日志与耗时指标
func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		elapsed := time.Since(start)

		metrics.APIRequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
		log.Debug().
			Str("method", r.Method).
			Str("path", path).
			Dur("elapsed", elapsed).
			Msg("API请求")
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	age, hasData := s.store.LastUpdateAge(s.symbol)
	writeJSON(w, map[string]interface{}{
		"connected":       s.ws != nil && s.ws.IsConnected(),
		"symbol":          s.symbol,
		"has_data":        hasData,
		"last_update_sec": age.Seconds(),
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	hidden := s.prefs.Get().HideBalances
	summary, err := s.sim.Snapshot(r.Context(), hidden)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	hidden := s.prefs.Get().HideBalances

	funding := s.sim.FundingBalance().StringFixed(2)
	unified := s.sim.UnifiedBalance().StringFixed(2)
	if hidden {
		funding = "****"
		unified = "****"
	}
	writeJSON(w, map[string]interface{}{
		"funding": funding,
		"unified": unified,
		"hidden":  hidden,
	})
}

func (s *Server) handleChartBalance(w http.ResponseWriter, r *http.Request) {
	rng := portfolio.ParseRange(r.URL.Query().Get("range"))
	seed := s.prefs.Get().ChartSeed

	base := s.sim.FundingBalance().Add(s.sim.UnifiedBalance()).InexactFloat64()
	series := portfolio.BalanceSeries(base, seed, rng)
	writeJSON(w, map[string]interface{}{
		"range":  rng,
		"series": series,
	})
}

func (s *Server) handleChartPNL(w http.ResponseWriter, r *http.Request) {
	rng := portfolio.ParseRange(r.URL.Query().Get("range"))
	seed := s.prefs.Get().ChartSeed

	base := s.sim.FundingBalance().Add(s.sim.UnifiedBalance()).InexactFloat64()
	current := s.sim.RealizedPNL().InexactFloat64()
	series := portfolio.PNLSeries(current, base*0.05, seed, rng)
	writeJSON(w, map[string]interface{}{
		"range":  rng,
		"series": series,
	})
}

func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = s.symbol
	}

	k, ok := s.store.GetLastKline(symbol)
	if !ok {
		http.Error(w, "no kline data", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]interface{}{
		"kline":      k,
		"change_pct": s.store.ChangePct(symbol),
		"std_dev":    s.store.PriceStdDev(symbol),
	})
}

// prefsUpdate POST /api/prefs 的请求体；两个字段都是可选的。
type prefsUpdate struct {
	HideBalances *bool  `json:"hide_balances"`
	ChartSeed    *int64 `json:"chart_seed"`
}

func (s *Server) handlePrefs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.prefs.Get())
	case http.MethodPost:
		var update prefsUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if update.HideBalances != nil {
			if err := s.prefs.SetHideBalances(*update.HideBalances); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		if update.ChartSeed != nil {
			if *update.ChartSeed == 0 {
				http.Error(w, "chart_seed must be non-zero", http.StatusBadRequest)
				return
			}
			if err := s.prefs.SetChartSeed(*update.ChartSeed); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, s.prefs.Get())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
