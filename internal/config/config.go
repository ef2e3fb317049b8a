// Package config содержит логику чтения конфигурации кассового сервиса.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации кассового сервиса.
type Config struct {
	RunAddress          string  `env:"RUN_ADDRESS"`
	DatabaseURI         string  `env:"DATABASE_URI"`
	PricelistAddress    string  `env:"PRICELIST_ADDRESS"`
	AuthSecret          string  `env:"AUTH_SECRET"`
	DayBonusThreshold   float64 `env:"DAY_BONUS_THRESHOLD"`
	NightBonusThreshold float64 `env:"NIGHT_BONUS_THRESHOLD"`
	MaxOrderLines       int     `env:"MAX_ORDER_LINES"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных
// окружения. Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.PricelistAddress, "p", "", "supplier pricelist address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")
	flag.Float64Var(&cfg.DayBonusThreshold, "day-threshold", 300, "order total above which day shift level 2 keeps the full bonus")
	flag.Float64Var(&cfg.NightBonusThreshold, "night-threshold", 200, "order total above which night shift level 1 doubles the bonus")
	flag.IntVar(&cfg.MaxOrderLines, "max-lines", 10, "maximum distinct line items per order")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.MaxOrderLines < 1 {
		return nil, fmt.Errorf("max order lines must be positive, got %d", cfg.MaxOrderLines)
	}

	return cfg, nil
}
