package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/docqa/pkg/log"
)

type HarvestConfig struct {
	StartURL  string        `env:"HARVEST_URL"`
	NextID    string        `env:"HARVEST_NEXT_ID" envDefault:"DataTables_Table_0_next"`
	MaxPages  int           `env:"HARVEST_MAX_PAGES" envDefault:"50"`
	Timeout   time.Duration `env:"HARVEST_TIMEOUT" envDefault:"30s"`
	UserAgent string        `env:"HARVEST_USER_AGENT" envDefault:"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"`
}

func NewHarvestConfig(ctx context.Context) *HarvestConfig {
	c := &HarvestConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Harvest config")
	}
	return c
}
