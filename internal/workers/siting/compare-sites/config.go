package comparesites

import (
	"fmt"
	"time"

	"h2-siting-workers/internal/common/config"
)

type Config struct {
	Timeout  time.Duration
	MaxSites int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:  30 * time.Second,
		MaxSites: 25,
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
	if c.MaxSites < minSites {
		return fmt.Errorf("max sites must be at least %d", minSites)
	}
	return nil
}
