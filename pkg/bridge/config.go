package bridge

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Detector     DetectorConfig     `mapstructure:"detector"`
	Formatter    FormatterConfig    `mapstructure:"formatter"`
	Results      ResultsConfig      `mapstructure:"results"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Upstream     UpstreamConfig     `mapstructure:"upstream"`
	Server       ServerConfig       `mapstructure:"server"`
	Environment  string             `mapstructure:"environment"`
	LogLevel     string             `mapstructure:"log_level"`
	LogFormat    string             `mapstructure:"log_format"`
	Privacy      PrivacyConfig      `mapstructure:"privacy"`
	Stats        StatsConfig        `mapstructure:"stats"`
}

type DetectorConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MaxToolCalls        int     `mapstructure:"max_tool_calls"`
	IDPrefix            string  `mapstructure:"id_prefix"`
}

type FormatterConfig struct {
	MinFragmentSize int `mapstructure:"min_fragment_size"`
}

type ResultsConfig struct {
	ValidateIDs        bool `mapstructure:"validate_ids"`
	IncludeErrorDetail bool `mapstructure:"include_error_detail"`
	MaxContentLength   int  `mapstructure:"max_content_length"`
}

type ConversationConfig struct {
	MaxHistory int `mapstructure:"max_history"`
}

// UpstreamConfig selects the text generator behind the server. Settings are
// provider-specific and validated where the provider is built.
type UpstreamConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type ServerConfig struct {
	Addr  string `mapstructure:"addr"`
	Model string `mapstructure:"model"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

// StatsConfig enables pipeline event recording to a JSONL file. Empty file
// disables recording.
type StatsConfig struct {
	File   string `mapstructure:"file"`
	Buffer int    `mapstructure:"buffer"`
}

// LoadConfig reads a config file with defaults for every tunable. The 0.7
// threshold and rule ordering are heuristics, kept configurable on purpose.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the built-in defaults without reading a file.
func DefaultConfig() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("detector.confidence_threshold", 0.7)
	v.SetDefault("detector.max_tool_calls", 5)
	v.SetDefault("detector.id_prefix", "call_")
	v.SetDefault("formatter.min_fragment_size", 10)
	v.SetDefault("results.validate_ids", true)
	v.SetDefault("results.include_error_detail", true)
	v.SetDefault("results.max_content_length", 50000)
	v.SetDefault("conversation.max_history", 50)
	v.SetDefault("upstream.provider", "command")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.model", "claude-3-5-sonnet")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("privacy.redact_pii", false)
	v.SetDefault("stats.file", "")
	v.SetDefault("stats.buffer", 256)
}
