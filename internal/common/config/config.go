// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	Logging        LoggingConfig           `mapstructure:"logging"`
	ContentTesting ContentTestingConfig    `mapstructure:"content_testing"`
	Grader         GraderConfig            `mapstructure:"grader"`
	Notifications  NotificationConfig      `mapstructure:"notifications"`
	Observability  ObservabilityConfig     `mapstructure:"observability"`
	RegistryPath   string                  `mapstructure:"registry_path"`
}

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
	Migrate        bool   `mapstructure:"migrate"`
}

// GetDSN returns the lib/pq connection string.
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
	RunsIndex  string   `mapstructure:"runs_index"`
	CACert     string   `mapstructure:"ca_cert"` // PEM file, empty uses the system pool
	MaxRetries int      `mapstructure:"max_retries"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ContentTestingConfig tunes rematching and batch runs.
type ContentTestingConfig struct {
	PreserveOnSlotChange bool `mapstructure:"preserve_on_slot_change"`
	TreeCacheTTL         int  `mapstructure:"tree_cache_ttl"` // seconds, 0 disables the redis cache
	RunConcurrency       int  `mapstructure:"run_concurrency"`
}

func (c ContentTestingConfig) CacheTTL() time.Duration {
	return time.Duration(c.TreeCacheTTL) * time.Second
}

type GraderConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// NotificationConfig controls failure notifications over SNS and SES.
type NotificationConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Region        string   `mapstructure:"region"`
	SNSTopicARN   string   `mapstructure:"sns_topic_arn"`
	SESFromEmail  string   `mapstructure:"ses_from_email"`
	SESRecipients []string `mapstructure:"ses_recipients"`
}

type ObservabilityConfig struct {
	ServiceName      string  `mapstructure:"service_name"`
	TraceSampleRatio float64 `mapstructure:"trace_sample_ratio"`
	MetricsAddress   string  `mapstructure:"metrics_address"`
}
