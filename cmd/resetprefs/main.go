package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/25angel/aida-trade/internal/prefs"
)

func main() {
	path := flag.String("prefs", "prefs.json", "偏好文件路径")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	log.Info().Str("path", *path).Msg("重置偏好设置...")

	p, err := prefs.Load(*path)
	if err != nil {
		log.Fatal().Err(err).Msg("加载偏好失败")
	}

	settings, err := p.Reset()
	if err != nil {
		log.Fatal().Err(err).Msg("重置失败")
	}

	log.Info().
		Bool("hide_balances", settings.HideBalances).
		Int64("chart_seed", settings.ChartSeed).
		Msg("偏好已恢复默认值")
}
