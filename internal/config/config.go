package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"providerApiKey" envconfig:"PROVIDER_API_KEY"`
	EmbedModel string `yaml:"providerEmbedModel" envconfig:"PROVIDER_EMBEDDING_MODEL"`
	Endpoint   string `yaml:"providerEndpoint" envconfig:"PROVIDER_ENDPOINT"`
	ProjectID  string `yaml:"providerProjectID" envconfig:"PROVIDER_PROJECT_ID"`
	Location   string `yaml:"providerLocation" envconfig:"PROVIDER_LOCATION"`
	Dim        int    `yaml:"providerDim" envconfig:"EMBED_DIM"`

	OpenSearchURL   string `yaml:"opensearchURL" envconfig:"OPENSEARCH_URL"`
	OpenSearchIndex string `yaml:"opensearchIndex" envconfig:"OPENSEARCH_INDEX"`
	OpenSearchUser  string `yaml:"opensearchUser" envconfig:"OPENSEARCH_USER"`
	OpenSearchPass  string `yaml:"opensearchPass" envconfig:"OPENSEARCH_PASS"`

	RassEngineURL string `yaml:"rassEngineURL" envconfig:"RASS_ENGINE_URL"`
	RassAPIKey    string `yaml:"rassApiKey" envconfig:"RASS_API_KEY"`
	RassPageSize  int    `yaml:"rassPageSize" envconfig:"RASS_PAGE_SIZE"`

	CacheEnabled bool `yaml:"cacheEnabled" envconfig:"CACHE_ENABLED"`
	CacheSize    int  `yaml:"cacheSize" envconfig:"CACHE_SIZE"`
	CacheTTL     int  `yaml:"cacheTTL" envconfig:"CACHE_TTL"`

	DefaultAlgorithm string  `yaml:"defaultAlgorithm" envconfig:"DEFAULT_ALGORITHM"`
	DefaultThreshold float64 `yaml:"defaultThreshold" envconfig:"DEFAULT_THRESHOLD"`

	Database string            `yaml:"database" envconfig:"DB_URL"`
	LogLevel string            `yaml:"logLevel" split_words:"true"`
	Port     int               `yaml:"port" split_words:"true"`
	Auth     AuthSpecification `yaml:"auth"`

	flags *pflag.FlagSet `ignored:"true"`
}

type AuthSpecification struct {
	Enabled   bool   `yaml:"enabled"`
	JwtSecret string `yaml:"jwtSecret" split_words:"true"`
}

const envPrefix = "ISSUESEARCH"

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// Load => defaults < YAML < env < flags.
// configPath may be ""; if so we auto-discover.
func Load(configPath string, fs *pflag.FlagSet) (Specification, error) {
	var cfg Specification

	// set defaults (lowest precedence)
	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	// config file
	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/issuesearch.yaml",
				"config/config.yaml",
				"./issuesearch.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	// flags override everything
	if err := fs.Parse(os.Args[1:]); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	// Minimal sanity
	if strings.TrimSpace(cfg.OpenSearchURL) == "" {
		cfg.OpenSearchURL = "http://opensearch:9200"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DefaultThreshold < 0 || cfg.DefaultThreshold > 1 {
		return Specification{}, fmt.Errorf("default threshold %v out of range [0,1]", cfg.DefaultThreshold)
	}
	return cfg, nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	// If --config is provided on the command line, capture it now so
	// config discovery (which runs before flags.Parse) can use it.
	for i, a := range os.Args {
		if a == "--config" {
			if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", os.Args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("provider", c.Provider, "Embedding provider (local, openai, gemini, jina)")
	fs.String("provider-api-key", c.APIKey, "Provider API key")
	fs.String("provider-embedding-model", c.EmbedModel, "Provider embedding model")
	fs.String("provider-endpoint", c.Endpoint, "Provider endpoint override")
	fs.String("provider-project-id", c.ProjectID, "Provider project ID")
	fs.String("provider-location", c.Location, "Provider location/region")
	fs.Int("embed-dim", c.Dim, "Embedding dimensionality")

	fs.String("opensearch-url", c.OpenSearchURL, "OpenSearch base URL")
	fs.String("opensearch-index", c.OpenSearchIndex, "OpenSearch issue index name")
	fs.String("opensearch-user", c.OpenSearchUser, "OpenSearch basic auth user")
	fs.String("opensearch-pass", c.OpenSearchPass, "OpenSearch basic auth password")

	fs.String("rass-engine-url", c.RassEngineURL, "Remote semantic engine base URL (empty disables)")
	fs.String("rass-api-key", c.RassAPIKey, "Remote semantic engine API key")
	fs.Int("rass-page-size", c.RassPageSize, "Remote semantic engine default page size")

	fs.Bool("cache-enabled", c.CacheEnabled, "Enable the embedding cache")
	fs.Int("cache-size", c.CacheSize, "Embedding cache max entries")
	fs.Int("cache-ttl", c.CacheTTL, "Embedding cache TTL in seconds")

	fs.String("default-algorithm", c.DefaultAlgorithm, "Default search algorithm (semantic|hybrid|lexical)")
	fs.Float64("default-threshold", c.DefaultThreshold, "Default similarity threshold [0,1]")

	fs.String("db-url", c.Database, "Issues database URL (DSN) for classic search")
	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("port", c.Port, "API server port")

	fs.Bool("auth-enabled", c.Auth.Enabled, "Require JWT bearer tokens on the API")
	fs.String("auth-jwt-secret", c.Auth.JwtSecret, "JWT secret for validating tokens")

	// Used later for usage/help
	// create a shallow copy of fs (so Usage can be called safely without mutating caller)
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}
	setFloat := func(name string, dst *float64) {
		if fs.Changed(name) {
			v, _ := fs.GetFloat64(name)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if fs.Changed(name) {
			v, _ := fs.GetBool(name)
			*dst = v
		}
	}

	// (We ignore --config here; it's for discovery.)
	setStr("provider", &c.Provider)
	setStr("provider-api-key", &c.APIKey)
	setStr("provider-embedding-model", &c.EmbedModel)
	setStr("provider-endpoint", &c.Endpoint)
	setStr("provider-project-id", &c.ProjectID)
	setStr("provider-location", &c.Location)
	setInt("embed-dim", &c.Dim)

	setStr("opensearch-url", &c.OpenSearchURL)
	setStr("opensearch-index", &c.OpenSearchIndex)
	setStr("opensearch-user", &c.OpenSearchUser)
	setStr("opensearch-pass", &c.OpenSearchPass)

	setStr("rass-engine-url", &c.RassEngineURL)
	setStr("rass-api-key", &c.RassAPIKey)
	setInt("rass-page-size", &c.RassPageSize)

	setBool("cache-enabled", &c.CacheEnabled)
	setInt("cache-size", &c.CacheSize)
	setInt("cache-ttl", &c.CacheTTL)

	setStr("default-algorithm", &c.DefaultAlgorithm)
	setFloat("default-threshold", &c.DefaultThreshold)

	setStr("db-url", &c.Database)
	setStr("log-level", &c.LogLevel)
	setInt("port", &c.Port)

	setBool("auth-enabled", &c.Auth.Enabled)
	setStr("auth-jwt-secret", &c.Auth.JwtSecret)
}

func setDefaults(c *Specification) {
	c.Provider = "local"
	c.Dim = 1536
	c.OpenSearchURL = "http://opensearch:9200"
	c.OpenSearchIndex = "issues"
	c.RassPageSize = 10
	c.CacheEnabled = true
	c.CacheSize = 1000
	c.CacheTTL = 3600
	c.DefaultAlgorithm = "hybrid"
	c.DefaultThreshold = 0.6
	c.LogLevel = "info"
	c.Port = 8080
	c.Location = "us-central1"
	c.Auth.Enabled = false
}
