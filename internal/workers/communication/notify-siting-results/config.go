package notifysitingresults

import (
	"fmt"
	"time"

	"h2-siting-workers/internal/common/config"
	"h2-siting-workers/internal/common/validation"
)

type Config struct {
	Timeout           time.Duration
	SNSEnabled        bool
	TopicARN          string
	EmailEnabled      bool
	FromEmail         string
	DefaultRecipients []string
	// MaxListedSites caps how many sites a message spells out.
	MaxListedSites int
}

func DefaultConfig() *Config {
	return &Config{
		Timeout:        20 * time.Second,
		MaxListedSites: 5,
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
	n := appCfg.Notifications
	c.SNSEnabled = n.SNS.Enabled
	c.TopicARN = n.SNS.TopicARN
	c.EmailEnabled = n.Email.Enabled
	c.FromEmail = n.Email.FromEmail
	c.DefaultRecipients = n.Email.Recipients
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxListedSites <= 0 {
		return fmt.Errorf("max listed sites must be positive")
	}
	if c.SNSEnabled && c.TopicARN == "" {
		return fmt.Errorf("topic ARN is required when SNS is enabled")
	}
	if c.EmailEnabled && !validation.ValidateEmail(c.FromEmail) {
		return fmt.Errorf("valid from email is required when email is enabled")
	}
	return nil
}
