// internal/workers/matching/notify-donor-hospitals/config.go
package notifydonorhospitals

import (
	"time"

	"organmatch/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	MinUrgency   int
	Timeout      time.Duration
}

func LoadConfig(wcfg config.WorkerConfig, ncfg config.NotificationConfig) *Config {
	cfg := &Config{
		EmailEnabled: ncfg.Email.Enabled,
		SMSEnabled:   ncfg.SMS.Enabled,
		MinUrgency:   ncfg.SMS.MinUrgency,
		Timeout:      30 * time.Second,
	}
	if cfg.MinUrgency <= 0 {
		cfg.MinUrgency = 2
	}
	if wcfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wcfg.Timeout)
	}
	return cfg
}
