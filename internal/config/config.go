package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	// JWTRequired forces WebSocket connect events to carry a valid token.
	JWTRequired bool `mapstructure:"jwt_required" yaml:"jwt_required"`

	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	HistoryPageLimit   int   `mapstructure:"history_page_limit" yaml:"history_page_limit"`

	// MaxBullyingCount is the abuse gate limit: reaching it blocks messaging and commenting.
	MaxBullyingCount int  `mapstructure:"max_bullying_count" yaml:"max_bullying_count"`
	EnforceAbuseGate bool `mapstructure:"enforce_abuse_gate" yaml:"enforce_abuse_gate"`

	MessageThreshold  float64       `mapstructure:"message_threshold" yaml:"message_threshold"`
	CommentThreshold  float64       `mapstructure:"comment_threshold" yaml:"comment_threshold"`
	ClassifierURL     string        `mapstructure:"classifier_url" yaml:"classifier_url"`
	ClassifierTimeout time.Duration `mapstructure:"classifier_timeout" yaml:"classifier_timeout"`
	ClassifierWorkers int           `mapstructure:"classifier_workers" yaml:"classifier_workers"`
	FlaggedTerms      []string      `mapstructure:"flagged_terms" yaml:"flagged_terms"`

	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// DefaultFlaggedTerms seeds the lexicon when no terms are configured.
var DefaultFlaggedTerms = []string{
	"idiot", "stupid", "loser", "ugly", "fat", "dumb", "worthless", "pathetic",
	"freak", "moron", "retard", "kill yourself", "kys", "nobody likes you", "shut up",
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		DatabasePath:       "safetalk.db",
		JWTSecret:          "change-me",
		JWTIssuer:          "safetalk",
		JWTAudience:        "safetalk",
		JWTTTL:             24 * time.Hour,
		MaxMessageBytes:    1 << 20,
		RateLimitPerMinute: 120,
		HistoryPageLimit:   50,
		MaxBullyingCount:   5,
		EnforceAbuseGate:   true,
		MessageThreshold:   0.6,
		CommentThreshold:   0.5,
		ClassifierTimeout:  3 * time.Second,
		ClassifierWorkers:  8,
		FlaggedTerms:       append([]string(nil), DefaultFlaggedTerms...),
		MetricsEnabled:     true,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.MaxBullyingCount != 0 {
		c.MaxBullyingCount = other.MaxBullyingCount
	}
	if other.ClassifierURL != "" {
		c.ClassifierURL = other.ClassifierURL
	}
}
