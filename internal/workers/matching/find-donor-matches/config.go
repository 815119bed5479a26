// internal/workers/matching/find-donor-matches/config.go
package finddonormatches

import (
	"time"

	"organmatch/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := 10 * time.Second
	if wcfg.Timeout > 0 {
		timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return &Config{Timeout: timeout}
}
