// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Matching      MatchingConfig          `mapstructure:"matching"`
	Reference     ReferenceConfig         `mapstructure:"reference"`
	Model         ModelConfig             `mapstructure:"model"`
	Labeler       LabelerConfig           `mapstructure:"labeler"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Server        ServerConfig            `mapstructure:"server"`
	Tracing       TracingConfig           `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"`
	DonorIndex string   `mapstructure:"donor_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Donor pool backends.
const (
	DonorSourcePostgres      = "postgres"
	DonorSourceElasticsearch = "elasticsearch"
	DonorSourceCSV           = "csv"
)

// MatchingConfig holds the eligibility rules and the ranking cut.
type MatchingConfig struct {
	AgeWindowYears       int     `mapstructure:"age_window_years"`
	MaxDistanceKm        float64 `mapstructure:"max_distance_km"`
	MinHealthScore       int     `mapstructure:"min_health_score"`
	ProbabilityThreshold float64 `mapstructure:"probability_threshold"`
	TopK                 int     `mapstructure:"top_k"`
	DonorSource          string  `mapstructure:"donor_source"`
	DonorCSV             string  `mapstructure:"donor_csv"`
	CacheTTL             int     `mapstructure:"cache_ttl"` // seconds, 0 disables the redis cache
}

type ReferenceConfig struct {
	RegionsFile string `mapstructure:"regions_file"` // empty uses the built-in table
}

// ModelConfig selects the scoring oracle: a remote endpoint when RemoteURL is
// set, otherwise the local artifact.
type ModelConfig struct {
	ArtifactPath    string `mapstructure:"artifact_path"`
	RemoteURL       string `mapstructure:"remote_url"`
	RemoteTimeoutMs int    `mapstructure:"remote_timeout_ms"`
}

type LabelerConfig struct {
	Concurrency           int  `mapstructure:"concurrency"`
	KeepGeographyFailures bool `mapstructure:"keep_geography_failures"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// NotificationConfig holds settings for the notify-donor-hospitals worker.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled    bool `mapstructure:"enabled"`
		MinUrgency int  `mapstructure:"min_urgency"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeoutMs   int    `mapstructure:"read_timeout_ms"`
	WriteTimeoutMs  int    `mapstructure:"write_timeout_ms"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout_ms"`
}

type TracingConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"` // empty disables export
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
