// internal/workers/siting/generate-recommendations/config.go
package generaterecommendations

import (
	"fmt"
	"time"

	"h2-siting-workers/internal/common/config"
)

type Config struct {
	Timeout                   time.Duration
	DefaultMaxRecommendations int
	MaxRecommendations        int
	DefaultMinScore           float64
	DefaultGridResolution     float64
	MinGridResolution         float64
	MaxGridResolution         float64
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:                   120 * time.Second,
		DefaultMaxRecommendations: 10,
		MaxRecommendations:        100,
		DefaultMinScore:           30,
		DefaultGridResolution:     0.5,
		MinGridResolution:         0.05,
		MaxGridResolution:         5,
	}
}

// NewConfig builds the worker config from the scoring and worker sections.
func NewConfig(appCfg *config.Config) *Config {
	c := DefaultConfig()
	if appCfg == nil {
		return c
	}
	if w := config.GetWorkerConfig(appCfg, TaskType); w.Timeout > 0 {
		c.Timeout = config.GetDuration(w.Timeout)
	}
	grid, engine := appCfg.Scoring.Grid, appCfg.Scoring.Engine
	if engine.DefaultMaxRecommendations > 0 {
		c.DefaultMaxRecommendations = engine.DefaultMaxRecommendations
	}
	if engine.MaxRecommendations > 0 {
		c.MaxRecommendations = engine.MaxRecommendations
	}
	if engine.DefaultMinScore > 0 {
		c.DefaultMinScore = engine.DefaultMinScore
	}
	if grid.DefaultResolution > 0 {
		c.DefaultGridResolution = grid.DefaultResolution
	}
	if grid.MinResolution > 0 {
		c.MinGridResolution = grid.MinResolution
	}
	if grid.MaxResolution > 0 {
		c.MaxGridResolution = grid.MaxResolution
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.DefaultMaxRecommendations < 1 || c.DefaultMaxRecommendations > c.MaxRecommendations {
		return fmt.Errorf("default max recommendations %d must be between 1 and %d",
			c.DefaultMaxRecommendations, c.MaxRecommendations)
	}
	if c.MinGridResolution <= 0 || c.DefaultGridResolution < c.MinGridResolution || c.DefaultGridResolution > c.MaxGridResolution {
		return fmt.Errorf("grid resolution bounds invalid: %v <= %v <= %v",
			c.MinGridResolution, c.DefaultGridResolution, c.MaxGridResolution)
	}
	return nil
}
