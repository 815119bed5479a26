// internal/workers/matching/label-training-pairs/config.go
package labeltrainingpairs

import (
	"time"

	"organmatch/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

// LoadConfig defaults to a long timeout; a batch covers every stored
// donor/receiver pair.
func LoadConfig(wcfg config.WorkerConfig) *Config {
	timeout := 5 * time.Minute
	if wcfg.Timeout > 0 {
		timeout = config.GetDuration(wcfg.Timeout)
	}
	return &Config{Timeout: timeout}
}
