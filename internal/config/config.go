package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Remote fetch methods
const (
	CloneMethodGit = "clone"
	CloneMethodAPI = "api"
)

// Config represents the main configuration structure
type Config struct {
	GitLab    GitLabConfig    `yaml:"gitlab"    mapstructure:"gitlab"`
	Templates TemplatesConfig `yaml:"templates" mapstructure:"templates"`
	Detection DetectionConfig `yaml:"detection" mapstructure:"detection"`
	Clone     CloneConfig     `yaml:"clone"     mapstructure:"clone"`
	Output    OutputConfig    `yaml:"output"    mapstructure:"output"`
	Timeout   TimeoutConfig   `yaml:"timeout"   mapstructure:"timeout"`
	Logging   LoggingConfig   `yaml:"logging"   mapstructure:"logging"`
}

// GitLabConfig represents GitLab connection settings
type GitLabConfig struct {
	BaseURL     string `yaml:"base_url"     mapstructure:"base_url"`
	Token       string `yaml:"token"        mapstructure:"token"`
	LintProject string `yaml:"lint_project" mapstructure:"lint_project"`
}

// TemplatesConfig points at an optional template overlay directory
type TemplatesConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// DetectionConfig bounds how much of a repository the detector reads
type DetectionConfig struct {
	MaxFileSizeBytes   int64 `yaml:"max_file_size_bytes"   mapstructure:"max_file_size_bytes"`
	ContentPrefixBytes int   `yaml:"content_prefix_bytes"  mapstructure:"content_prefix_bytes"`
	CacheSize          int   `yaml:"cache_size"            mapstructure:"cache_size"`
	ResultCacheSize    int   `yaml:"result_cache_size"     mapstructure:"result_cache_size"`
}

// CloneConfig controls how remote repositories are fetched
type CloneConfig struct {
	Method         string `yaml:"method"          mapstructure:"method"`
	TimeoutSeconds int    `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
	Depth          int    `yaml:"depth"           mapstructure:"depth"`
	MaxParallel    int    `yaml:"max_parallel"    mapstructure:"max_parallel"`
	MaxFiles       int    `yaml:"max_files"       mapstructure:"max_files"`
}

// OutputConfig represents default output paths; empty means stdout or skip
type OutputConfig struct {
	PipelineFile string `yaml:"pipeline_file" mapstructure:"pipeline_file"`
	JSONFile     string `yaml:"json_file"     mapstructure:"json_file"`
	HTMLFile     string `yaml:"html_file"     mapstructure:"html_file"`
	CSVFile      string `yaml:"csv_file"      mapstructure:"csv_file"`
}

// TimeoutConfig represents timeout configuration
type TimeoutConfig struct {
	AnalysisTimeoutMinutes int `yaml:"analysis_timeout_minutes" mapstructure:"analysis_timeout_minutes"`
	LintTimeoutSeconds     int `yaml:"lint_timeout_seconds"     mapstructure:"lint_timeout_seconds"`
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

// LoadConfig loads configuration from an optional file and environment
// variables. An empty configPath uses defaults and the environment only.
func LoadConfig(configPath string) (*Config, error) {
	// Create a new Viper instance to avoid data races in concurrent tests
	v := viper.New()

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
	}

	setDefaultValues(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("gitlab.base_url", "GITLAB_BASE_URL")
	_ = v.BindEnv("gitlab.token", "GITLAB_TOKEN")
	_ = v.BindEnv("gitlab.lint_project", "GITLAB_LINT_PROJECT")
	_ = v.BindEnv("templates.dir", "PIPEGEN_TEMPLATES_DIR")
	_ = v.BindEnv("clone.method", "CLONE_METHOD")
	_ = v.BindEnv("timeout.analysis_timeout_minutes", "ANALYSIS_TIMEOUT_MINUTES")
	_ = v.BindEnv("timeout.lint_timeout_seconds", "LINT_TIMEOUT_SECONDS")
	_ = v.BindEnv("logging.level", "LOG_LEVEL")

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaultValues sets default configuration values
func setDefaultValues(v *viper.Viper) {
	// GitLab defaults
	v.SetDefault("gitlab.base_url", "https://gitlab.com")
	v.SetDefault("gitlab.token", "")
	v.SetDefault("gitlab.lint_project", "")

	v.SetDefault("templates.dir", "")

	// Detection defaults
	v.SetDefault("detection.max_file_size_bytes", 1<<20)
	v.SetDefault("detection.content_prefix_bytes", 64<<10)
	v.SetDefault("detection.cache_size", 4096)
	v.SetDefault("detection.result_cache_size", 32)

	// Clone defaults
	v.SetDefault("clone.method", CloneMethodGit)
	v.SetDefault("clone.timeout_seconds", 300)
	v.SetDefault("clone.depth", 1)
	v.SetDefault("clone.max_parallel", 4)
	v.SetDefault("clone.max_files", 2000)

	// Output defaults
	v.SetDefault("output.pipeline_file", "")
	v.SetDefault("output.json_file", "")
	v.SetDefault("output.html_file", "")
	v.SetDefault("output.csv_file", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Timeout defaults (10 minutes for a full clone and scan)
	v.SetDefault("timeout.analysis_timeout_minutes", 10)
	v.SetDefault("timeout.lint_timeout_seconds", 30)
}

// validateConfig validates the configuration
func validateConfig(config Config) error {
	if config.GitLab.BaseURL == "" {
		return fmt.Errorf("gitlab.base_url is required")
	}
	u, err := url.Parse(config.GitLab.BaseURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("gitlab.base_url must be an http(s) URL, got %q", config.GitLab.BaseURL)
	}

	if config.GitLab.LintProject != "" && config.GitLab.Token == "" {
		return fmt.Errorf("gitlab.token is required when gitlab.lint_project is set")
	}

	switch config.Clone.Method {
	case CloneMethodGit:
	case CloneMethodAPI:
		if config.GitLab.Token == "" {
			return fmt.Errorf("gitlab.token is required when clone.method is %q", CloneMethodAPI)
		}
	default:
		return fmt.Errorf("clone.method must be %q or %q, got %q", CloneMethodGit, CloneMethodAPI, config.Clone.Method)
	}

	if config.Clone.TimeoutSeconds <= 0 {
		return fmt.Errorf("clone.timeout_seconds must be positive")
	}
	if config.Clone.Depth <= 0 {
		return fmt.Errorf("clone.depth must be positive")
	}
	if config.Clone.MaxParallel <= 0 {
		return fmt.Errorf("clone.max_parallel must be positive")
	}

	if config.Detection.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("detection.max_file_size_bytes must be positive")
	}
	if config.Detection.ContentPrefixBytes <= 0 {
		return fmt.Errorf("detection.content_prefix_bytes must be positive")
	}

	if config.Timeout.AnalysisTimeoutMinutes <= 0 {
		return fmt.Errorf("timeout.analysis_timeout_minutes must be positive")
	}
	if config.Timeout.LintTimeoutSeconds <= 0 {
		return fmt.Errorf("timeout.lint_timeout_seconds must be positive")
	}

	levels := []string{"debug", "info", "warn", "warning", "error"}
	if !slices.Contains(levels, strings.ToLower(config.Logging.Level)) {
		return fmt.Errorf("logging.level must be one of %s, got %q", strings.Join(levels, ", "), config.Logging.Level)
	}

	return nil
}
