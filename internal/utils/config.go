package utils

import (
	"fmt"
	"os"
	"time"

	"netinsight/internal/model"
	"netinsight/internal/rules"
	"netinsight/internal/traffic"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Application ApplicationConfig `yaml:"application"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Traffic     TrafficConfig     `yaml:"traffic"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Storage     StorageConfig     `yaml:"storage"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
	Rules       []model.Rule      `yaml:"rules"`
	RulesFile   string            `yaml:"rules_file,omitempty"`
	Alerting    AlertingConfig    `yaml:"alerting"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ApplicationConfig struct {
	ListenPort     string   `yaml:"listen_port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DiscoveryConfig struct {
	ChunkSize        int      `yaml:"chunk_size"`
	ProbeTimeoutMs   int      `yaml:"probe_timeout_ms"`
	ResolveTimeoutMs int      `yaml:"resolve_timeout_ms"`
	MaxAddresses     int      `yaml:"max_addresses"`
	Privileged       bool     `yaml:"privileged"`
	DNSServers       []string `yaml:"dns_servers"`
}

type TrafficConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	TopN    int      `yaml:"top_n"`
}

type DiagnosticsConfig struct {
	PingCount         int `yaml:"ping_count"`
	CommandTimeoutSec int `yaml:"command_timeout_seconds"`
}

type StorageConfig struct {
	EventCapacity int `yaml:"event_capacity"`
	AlertCapacity int `yaml:"alert_capacity"`
}

type ClassifierConfig struct {
	ModelPath string `yaml:"model_path"`
}

type AlertingConfig struct {
	Channels AlertChannelsConfig `yaml:"channels"`
	Telegram TelegramConfig      `yaml:"telegram"`
}

type AlertChannelsConfig struct {
	Log      bool `yaml:"log"`
	Telegram bool `yaml:"telegram"`
}

type TelegramConfig struct {
	BotToken        string `yaml:"bot_token"`
	ChatID          string `yaml:"chat_id"`
	ParseMode       string `yaml:"parse_mode"`
	Enabled         bool   `yaml:"enabled"`
	MessageTemplate string `yaml:"message_template,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		filename = "configs/netinsight.yaml"
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file %s: %w", filename, err)
	}

	if config.RulesFile != "" {
		extra, err := rules.LoadRules(config.RulesFile)
		if err != nil {
			return nil, err
		}
		config.Rules = append(config.Rules, extra...)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate fills defaults and rejects values that cannot work.
func (c *Config) Validate() error {
	if c.Application.ListenPort == "" {
		c.Application.ListenPort = "5001"
	}

	if c.Discovery.ChunkSize < 0 {
		return fmt.Errorf("discovery chunk_size cannot be negative")
	}
	if c.Discovery.ChunkSize == 0 {
		c.Discovery.ChunkSize = 20
	}
	if c.Discovery.ProbeTimeoutMs <= 0 {
		c.Discovery.ProbeTimeoutMs = 1000
	}
	if c.Discovery.ResolveTimeoutMs <= 0 {
		c.Discovery.ResolveTimeoutMs = 1000
	}
	if c.Discovery.MaxAddresses <= 0 {
		c.Discovery.MaxAddresses = 65536
	}

	if c.Traffic.Command == "" {
		c.Traffic.Command = "netstat"
		if len(c.Traffic.Args) == 0 {
			c.Traffic.Args = []string{"-tn"}
		}
	}
	if c.Traffic.TopN < 0 || c.Traffic.TopN > traffic.MaxTopN {
		return fmt.Errorf("traffic top_n must be between 1 and %d", traffic.MaxTopN)
	}
	if c.Traffic.TopN == 0 {
		c.Traffic.TopN = traffic.MaxTopN
	}

	if c.Diagnostics.PingCount <= 0 {
		c.Diagnostics.PingCount = 4
	}
	if c.Diagnostics.CommandTimeoutSec <= 0 {
		c.Diagnostics.CommandTimeoutSec = 30
	}

	if c.Storage.EventCapacity <= 0 {
		c.Storage.EventCapacity = 100
	}
	if c.Storage.AlertCapacity <= 0 {
		c.Storage.AlertCapacity = 100
	}

	for i, rule := range c.Rules {
		if rule.Name == "" {
			return fmt.Errorf("rule #%d has no name", i+1)
		}
		if rule.Severity == "" {
			continue
		}
		if _, ok := model.ParseSeverity(rule.Severity); !ok {
			return fmt.Errorf("rule %s has unknown severity %q", rule.Name, rule.Severity)
		}
	}

	if c.Alerting.Telegram.ParseMode == "" {
		c.Alerting.Telegram.ParseMode = "Markdown"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	return nil
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Discovery.ProbeTimeoutMs) * time.Millisecond
}

func (c *Config) ResolveTimeout() time.Duration {
	return time.Duration(c.Discovery.ResolveTimeoutMs) * time.Millisecond
}

func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Diagnostics.CommandTimeoutSec) * time.Second
}

func (c *Config) GetRuleConfigByName(name string) (*model.Rule, bool) {
	for i := range c.Rules {
		if c.Rules[i].Name == name {
			return &c.Rules[i], true
		}
	}
	return nil, false
}

// GetDefaultConfig returns the configuration used when no file is given.
func GetDefaultConfig() *Config {
	config := &Config{
		Alerting: AlertingConfig{
			Channels: AlertChannelsConfig{Log: true},
		},
	}
	// Validate only fills defaults here and cannot fail.
	_ = config.Validate()
	return config
}
