package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for querybench. It is built once at startup
// and passed explicitly to the components that need it; nothing reads the
// environment after Load returns.
type Config struct {
	Cluster   ClusterConfig
	Selection SelectionConfig
	Load      LoadConfig
	Generate  GenerateConfig
	Archive   ArchiveConfig
	Log       LogConfig
}

type ClusterConfig struct {
	Endpoint string // OpenSearch base URL, e.g. https://search-domain.us-west-2.es.amazonaws.com
	Username string // Basic auth user; auth is skipped when either credential is empty
	Password string
	Timeout  int  // Per-request timeout in seconds
	Insecure bool // Skip TLS certificate verification (self-signed test domains)
}

type SelectionConfig struct {
	LogType  string // vpc, nfw, cloudtrail, waf, big5, or all
	Language string // ppl, dsl, or both
	QueryDir string // Root of the query store (contains ppl/ and dsl/)
}

type LoadConfig struct {
	Rate     int    // Total requests per second across all queries
	Duration int    // Attack duration in seconds
	Workers  int    // Initial vegeta workers per attack
	Output   string // Stats CSV path ("" = stdout summary only)
}

type GenerateConfig struct {
	Index       string // Target index for bulk ingestion
	Count       int64  // Total documents to synthesize
	BatchSize   int    // Documents per _bulk request
	Workers     int    // Concurrent bulk workers
	Compression string // none, gzip, zstd
	File        string // NDJSON source file (big5 mode)
}

type ArchiveConfig struct {
	S3Bucket    string
	S3Region    string
	S3Endpoint  string // Custom endpoint for MinIO
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool
	Prefix      string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from defaults, optional config file, and environment
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("QUERYBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Short env names operators already export
	v.BindEnv("cluster.endpoint", "QUERYBENCH_CLUSTER_ENDPOINT", "OPENSEARCH_ENDPOINT")
	v.BindEnv("cluster.username", "QUERYBENCH_CLUSTER_USERNAME", "OPENSEARCH_USER")
	v.BindEnv("cluster.password", "QUERYBENCH_CLUSTER_PASSWORD", "OPENSEARCH_PASSWORD")
	v.BindEnv("selection.log_type", "QUERYBENCH_SELECTION_LOG_TYPE", "LOG_TYPE")
	v.BindEnv("selection.language", "QUERYBENCH_SELECTION_LANGUAGE", "QUERY_LANGUAGE")
	v.BindEnv("generate.index", "QUERYBENCH_GENERATE_INDEX", "INDEX_NAME")

	v.SetConfigName("querybench")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/querybench/")
	v.AddConfigPath("$HOME/.querybench/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file is fine, env and defaults cover everything
	}

	cfg := &Config{
		Cluster: ClusterConfig{
			Endpoint: strings.TrimRight(v.GetString("cluster.endpoint"), "/"),
			Username: v.GetString("cluster.username"),
			Password: v.GetString("cluster.password"),
			Timeout:  v.GetInt("cluster.timeout"),
			Insecure: v.GetBool("cluster.insecure"),
		},
		Selection: SelectionConfig{
			LogType:  strings.ToLower(v.GetString("selection.log_type")),
			Language: strings.ToLower(v.GetString("selection.language")),
			QueryDir: v.GetString("selection.query_dir"),
		},
		Load: LoadConfig{
			Rate:     v.GetInt("load.rate"),
			Duration: v.GetInt("load.duration"),
			Workers:  v.GetInt("load.workers"),
			Output:   v.GetString("load.output"),
		},
		Generate: GenerateConfig{
			Index:       v.GetString("generate.index"),
			Count:       v.GetInt64("generate.count"),
			BatchSize:   v.GetInt("generate.batch_size"),
			Workers:     v.GetInt("generate.workers"),
			Compression: v.GetString("generate.compression"),
			File:        v.GetString("generate.file"),
		},
		Archive: ArchiveConfig{
			S3Bucket:    v.GetString("archive.s3_bucket"),
			S3Region:    v.GetString("archive.s3_region"),
			S3Endpoint:  v.GetString("archive.s3_endpoint"),
			S3AccessKey: v.GetString("archive.s3_access_key"),
			S3SecretKey: v.GetString("archive.s3_secret_key"),
			S3PathStyle: v.GetBool("archive.s3_path_style"),
			Prefix:      v.GetString("archive.prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cluster.endpoint", "http://localhost:9200")
	v.SetDefault("cluster.timeout", 30)
	v.SetDefault("cluster.insecure", false)

	v.SetDefault("selection.log_type", "all")
	v.SetDefault("selection.language", "ppl")
	v.SetDefault("selection.query_dir", "queries")

	v.SetDefault("load.rate", 10)
	v.SetDefault("load.duration", 60)
	v.SetDefault("load.workers", 10)
	v.SetDefault("load.output", "performance_stats.csv")

	v.SetDefault("generate.index", "")
	v.SetDefault("generate.count", 1000000)
	v.SetDefault("generate.batch_size", 2000)
	v.SetDefault("generate.workers", 4)
	v.SetDefault("generate.compression", "none")
	v.SetDefault("generate.file", "")

	v.SetDefault("archive.s3_region", "us-east-1")
	v.SetDefault("archive.s3_path_style", false)
	v.SetDefault("archive.prefix", "querybench")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks the cross-field constraints that have to hold before a run
func (c *Config) Validate() error {
	if c.Cluster.Endpoint == "" {
		return fmt.Errorf("cluster endpoint is required (set OPENSEARCH_ENDPOINT)")
	}
	if c.Load.Rate <= 0 {
		return fmt.Errorf("load rate must be positive, got %d", c.Load.Rate)
	}
	if c.Load.Duration <= 0 {
		return fmt.Errorf("load duration must be positive, got %d", c.Load.Duration)
	}
	return nil
}
