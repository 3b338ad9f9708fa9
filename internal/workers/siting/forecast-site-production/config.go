package forecastsiteproduction

import (
	"fmt"
	"time"

	"h2-siting-workers/internal/common/config"
	"h2-siting-workers/internal/siting/analysis"
)

type Config struct {
	Timeout      time.Duration
	DefaultYears int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:      15 * time.Second,
		DefaultYears: analysis.DefaultForecastYears,
	}
}

func NewConfig(appCfg *config.Config) *Config {
	c := DefaultConfig()
	if appCfg == nil {
		return c
	}
	if w := config.GetWorkerConfig(appCfg, TaskType); w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DefaultYears < 1 || c.DefaultYears > analysis.MaxForecastYears {
		return fmt.Errorf("default years must be between 1 and %d", analysis.MaxForecastYears)
	}
	return nil
}
