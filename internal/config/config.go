package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `json:"server"`
	Redis    RedisConfig    `json:"redis"`
	Registry RegistryConfig `json:"registry"`
	Search   SearchConfig   `json:"search"`
	Pipeline PipelineConfig `json:"pipeline"`
	Log      LogConfig      `json:"log"`
	Security SecurityConfig `json:"security"`
	Browser  BrowserConfig  `json:"browser"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	IdleTimeout  int    `json:"idle_timeout"`
	JobQueueSize int    `json:"job_queue_size"`

	JobRetention time.Duration `json:"job_retention"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"password"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	CacheTTL     time.Duration `json:"cache_ttl"`
}

// RegistryConfig describes the business-directory site the NIF is read from
type RegistryConfig struct {
	BaseURL        string `json:"base_url"`
	NotFoundMarker string `json:"not_found_marker"`
	// SearchPath is the registry's own internal search/query path. Links
	// into it are never accepted as company pages.
	SearchPath string `json:"search_path"`
}

// SearchConfig holds the search-engine fallback configuration
type SearchConfig struct {
	Enabled           bool          `json:"enabled"`
	EngineURL         string        `json:"engine_url"`
	ObstacleMarker    string        `json:"obstacle_marker"`
	ClearanceSelector string        `json:"clearance_selector"`
	ObstacleTimeout   time.Duration `json:"obstacle_timeout"`
	ResultsTimeout    time.Duration `json:"results_timeout"`
	PollInterval      time.Duration `json:"poll_interval"`
}

// DelayRange is a randomized wait, picked uniformly in [Min, Max]
type DelayRange struct {
	Min time.Duration `json:"min"`
	Max time.Duration `json:"max"`
}

// PipelineConfig holds batch-run configuration
type PipelineConfig struct {
	MaxAttempts       int        `json:"max_attempts"`
	CheckpointEvery   int        `json:"checkpoint_every"`
	DirectSettle      DelayRange `json:"direct_settle"`
	SearchSettle      DelayRange `json:"search_settle"`
	NavigateSettle    DelayRange `json:"navigate_settle"`
	ObstacleSettle    DelayRange `json:"obstacle_settle"`
	InterQueryDelay   DelayRange `json:"inter_query_delay"`
	RetryDelay        DelayRange `json:"retry_delay"`
	InputPath         string     `json:"input_path"`
	ProgressPath      string     `json:"progress_path"`
	OutputPath        string     `json:"output_path"`
	CacheEnabled      bool       `json:"cache_enabled"`
	MinNameSimilarity float64    `json:"min_name_similarity"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `json:"rate_limit"`
	CORS      CORSConfig      `json:"cors"`
	// AdminToken guards cache and browser maintenance routes. Empty disables the check.
	AdminToken string `json:"-"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// BrowserConfig holds browser automation configuration
type BrowserConfig struct {
	PoolSize       int           `json:"pool_size"`
	AcquireTimeout time.Duration `json:"acquire_timeout"`
	PageTimeout    time.Duration `json:"page_timeout"`
	Headless       bool          `json:"headless"`
	UserAgent      string        `json:"user_agent"`
	MinWidth       int           `json:"min_width"`
	MaxWidth       int           `json:"max_width"`
	MinHeight      int           `json:"min_height"`
	MaxHeight      int           `json:"max_height"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 600),
			IdleTimeout:  getEnvAsInt("IDLE_TIMEOUT", 60),
			JobQueueSize: getEnvAsInt("JOB_QUEUE_SIZE", 16),
			JobRetention: getEnvAsDuration("JOB_RETENTION", 24*time.Hour),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  time.Duration(getEnvAsInt("REDIS_DIAL_TIMEOUT", 5)) * time.Second,
			ReadTimeout:  time.Duration(getEnvAsInt("REDIS_READ_TIMEOUT", 3)) * time.Second,
			WriteTimeout: time.Duration(getEnvAsInt("REDIS_WRITE_TIMEOUT", 3)) * time.Second,
			CacheTTL:     time.Duration(getEnvAsInt("NIF_CACHE_TTL", 30*24*3600)) * time.Second,
		},
		Registry: RegistryConfig{
			BaseURL:        strings.TrimRight(getEnv("REGISTRY_BASE_URL", "https://www.racius.com"), "/"),
			NotFoundMarker: getEnv("REGISTRY_NOT_FOUND_MARKER", "Página não encontrada"),
			SearchPath:     getEnv("REGISTRY_SEARCH_PATH", "/q/"),
		},
		Search: SearchConfig{
			Enabled:           getEnvAsBool("SEARCH_ENABLED", true),
			EngineURL:         getEnv("SEARCH_ENGINE_URL", "https://www.google.com/search"),
			ObstacleMarker:    getEnv("SEARCH_OBSTACLE_MARKER", "recaptcha"),
			ClearanceSelector: getEnv("SEARCH_CLEARANCE_SELECTOR", "h3"),
			ObstacleTimeout:   getEnvAsDuration("SEARCH_OBSTACLE_TIMEOUT", 300*time.Second),
			ResultsTimeout:    getEnvAsDuration("SEARCH_RESULTS_TIMEOUT", 15*time.Second),
			PollInterval:      getEnvAsDuration("SEARCH_POLL_INTERVAL", time.Second),
		},
		Pipeline: PipelineConfig{
			MaxAttempts:       getEnvAsInt("PIPELINE_MAX_ATTEMPTS", 2),
			CheckpointEvery:   getEnvAsInt("PIPELINE_CHECKPOINT_EVERY", 5),
			DirectSettle:      getEnvAsDelay("DIRECT_SETTLE", time.Second, 3*time.Second),
			SearchSettle:      getEnvAsDelay("SEARCH_SETTLE", 3*time.Second, 5*time.Second),
			NavigateSettle:    getEnvAsDelay("NAVIGATE_SETTLE", 2*time.Second, 3*time.Second),
			ObstacleSettle:    getEnvAsDelay("OBSTACLE_SETTLE", 2*time.Second, 3*time.Second),
			InterQueryDelay:   getEnvAsDelay("INTER_QUERY_DELAY", 3*time.Second, 5*time.Second),
			RetryDelay:        getEnvAsDelay("RETRY_DELAY", 5*time.Second+500*time.Millisecond, 7*time.Second),
			InputPath:         getEnv("PIPELINE_INPUT", "empresas_lda_com_nif.csv"),
			ProgressPath:      getEnv("PIPELINE_PROGRESS", "companies_with_nifs_progress.csv"),
			OutputPath:        getEnv("PIPELINE_OUTPUT", "companies_with_nifs.csv"),
			CacheEnabled:      getEnvAsBool("PIPELINE_CACHE_ENABLED", true),
			MinNameSimilarity: getEnvAsFloat("PIPELINE_MIN_NAME_SIMILARITY", 0.85),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 30),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 5),
				CleanupInterval:   time.Duration(getEnvAsInt("RATE_LIMIT_CLEANUP", 60)) * time.Second,
			},
			CORS: CORSConfig{
				AllowedOrigins:   []string{"*"},
				AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: false,
			},
			AdminToken: getEnv("ADMIN_TOKEN", ""),
		},
		Browser: BrowserConfig{
			PoolSize:       getEnvAsInt("BROWSER_POOL_SIZE", 1),
			AcquireTimeout: time.Duration(getEnvAsInt("BROWSER_ACQUIRE_TIMEOUT", 10)) * time.Second,
			PageTimeout:    time.Duration(getEnvAsInt("PAGE_TIMEOUT", 30)) * time.Second,
			Headless:       getEnvAsBool("BROWSER_HEADLESS", false),
			UserAgent:      getEnv("BROWSER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"),
			MinWidth:       getEnvAsInt("BROWSER_MIN_WIDTH", 1024),
			MaxWidth:       getEnvAsInt("BROWSER_MAX_WIDTH", 1920),
			MinHeight:      getEnvAsInt("BROWSER_MIN_HEIGHT", 768),
			MaxHeight:      getEnvAsInt("BROWSER_MAX_HEIGHT", 1080),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the invariants the pipeline relies on
func (c *Config) Validate() error {
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("REGISTRY_BASE_URL is required")
	}
	if c.Registry.NotFoundMarker == "" {
		return fmt.Errorf("REGISTRY_NOT_FOUND_MARKER is required")
	}
	if c.Pipeline.MaxAttempts < 1 {
		return fmt.Errorf("PIPELINE_MAX_ATTEMPTS must be at least 1, got %d", c.Pipeline.MaxAttempts)
	}
	if c.Pipeline.CheckpointEvery < 1 {
		return fmt.Errorf("PIPELINE_CHECKPOINT_EVERY must be at least 1, got %d", c.Pipeline.CheckpointEvery)
	}
	if c.Browser.PoolSize < 1 {
		return fmt.Errorf("BROWSER_POOL_SIZE must be at least 1, got %d", c.Browser.PoolSize)
	}

	settles := map[string]DelayRange{
		"DIRECT_SETTLE":     c.Pipeline.DirectSettle,
		"SEARCH_SETTLE":     c.Pipeline.SearchSettle,
		"NAVIGATE_SETTLE":   c.Pipeline.NavigateSettle,
		"OBSTACLE_SETTLE":   c.Pipeline.ObstacleSettle,
		"INTER_QUERY_DELAY": c.Pipeline.InterQueryDelay,
		"RETRY_DELAY":       c.Pipeline.RetryDelay,
	}
	for name, d := range settles {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.Pipeline.RetryDelay.Min <= c.Pipeline.InterQueryDelay.Max {
		return fmt.Errorf("RETRY_DELAY minimum (%s) must be longer than INTER_QUERY_DELAY maximum (%s)",
			c.Pipeline.RetryDelay.Min, c.Pipeline.InterQueryDelay.Max)
	}

	if c.Search.Enabled {
		if c.Search.ObstacleTimeout <= 0 || c.Search.PollInterval <= 0 {
			return fmt.Errorf("search obstacle timeout and poll interval must be positive")
		}
	}

	return nil
}

// Validate checks that the range is positive and ordered
func (d DelayRange) Validate() error {
	if d.Min <= 0 {
		return fmt.Errorf("minimum delay must be positive, got %s", d.Min)
	}
	if d.Max < d.Min {
		return fmt.Errorf("maximum delay %s is shorter than minimum %s", d.Max, d.Min)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsDelay reads KEY_MIN and KEY_MAX as durations ("1s", "1500ms")
func getEnvAsDelay(key string, defaultMin, defaultMax time.Duration) DelayRange {
	return DelayRange{
		Min: getEnvAsDuration(key+"_MIN", defaultMin),
		Max: getEnvAsDuration(key+"_MAX", defaultMax),
	}
}
