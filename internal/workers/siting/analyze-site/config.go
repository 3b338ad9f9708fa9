package analyzesite

import (
	"fmt"
	"time"

	"h2-siting-workers/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
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
	return nil
}
