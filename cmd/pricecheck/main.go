package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	gateway "github.com/25angel/aida-trade/internal/exchange"
)

func main() {
	symbol := flag.String("symbol", "BTCUSDT", "查询的交易对")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	rest, _ := gateway.BuildBybitClients(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	serverTime, err := rest.ServerTime(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("获取服务器时间失败")
	}
	log.Info().Time("server_time", serverTime).Msg("REST可达")

	ticker, err := rest.GetTicker(ctx, *symbol)
	if err != nil {
		log.Fatal().Err(err).Str("symbol", *symbol).Msg("查询行情失败")
	}

	fmt.Printf("Symbol: %s  LastPrice: %.8g  24hChange: %.4f%%\n",
		ticker.Symbol, ticker.LastPrice, ticker.Price24hPcnt*100)
}
