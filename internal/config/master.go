package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.com/icecc-go.net/internal/comm"
)

// SchedulerConfig is a statically configured scheduler endpoint.
type SchedulerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DaemonConfig configures iceccd.
type DaemonConfig struct {
	DebugMode  bool             `yaml:"debug"`
	ListenAddr string           `yaml:"listen"`
	HTTPPort   int              `yaml:"http_port"`
	Scheduler  *SchedulerConfig `yaml:"scheduler"`
	Redis      *RedisConfig     `yaml:"redis"`

	// Announce publishes the static scheduler to redis for other daemons.
	Announce         bool          `yaml:"announce"`
	AnnounceInterval time.Duration `yaml:"announce_interval"`
}

func NewDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		DebugMode:  getBoolEnv("DEBUG_MODE", false),
		ListenAddr: getEnv("ICECCD_LISTEN", fmt.Sprintf("127.0.0.1:%d", comm.DefaultDaemonPort)),
		HTTPPort:   getIntEnv("ICECCD_HTTP_PORT", 0),
		Scheduler: &SchedulerConfig{
			Host: getEnv("ICECCD_SCHEDULER_HOST", ""),
			Port: getIntEnv("ICECCD_SCHEDULER_PORT", 8765),
		},
		Redis:            NewRedisConfig(),
		Announce:         getBoolEnv("ICECCD_ANNOUNCE", false),
		AnnounceInterval: getDurationEnv("ICECCD_ANNOUNCE_INTERVAL", 30*time.Second),
	}
}

// LoadDaemonConfig reads path (if non-empty) as YAML, then applies
// environment variables on top.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	cfg := &DaemonConfig{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	env := NewDaemonConfig()
	overlay(cfg, env)
	return cfg, nil
}

// overlay fills cfg from env: explicitly set variables always win, the
// file wins over built-in defaults.
func overlay(cfg, env *DaemonConfig) {
	if _, set := os.LookupEnv("DEBUG_MODE"); set {
		cfg.DebugMode = env.DebugMode
	}
	cfg.ListenAddr = pick("ICECCD_LISTEN", cfg.ListenAddr, env.ListenAddr)
	if _, set := os.LookupEnv("ICECCD_HTTP_PORT"); set || cfg.HTTPPort == 0 {
		cfg.HTTPPort = env.HTTPPort
	}

	if cfg.Scheduler == nil {
		cfg.Scheduler = &SchedulerConfig{}
	}
	cfg.Scheduler.Host = pick("ICECCD_SCHEDULER_HOST", cfg.Scheduler.Host, env.Scheduler.Host)
	if _, set := os.LookupEnv("ICECCD_SCHEDULER_PORT"); set || cfg.Scheduler.Port == 0 {
		cfg.Scheduler.Port = env.Scheduler.Port
	}

	if cfg.Redis == nil {
		cfg.Redis = &RedisConfig{}
	}
	cfg.Redis.Url = pick("ICECCD_REDIS_ADDR", cfg.Redis.Url, env.Redis.Url)
	cfg.Redis.Password = pick("ICECCD_REDIS_PASSWORD", cfg.Redis.Password, env.Redis.Password)
	cfg.Redis.Key = pick("ICECCD_REDIS_KEY", cfg.Redis.Key, env.Redis.Key)
	if _, set := os.LookupEnv("ICECCD_REDIS_DB"); set {
		cfg.Redis.DB = env.Redis.DB
	}

	if _, set := os.LookupEnv("ICECCD_ANNOUNCE"); set {
		cfg.Announce = env.Announce
	}
	if _, set := os.LookupEnv("ICECCD_ANNOUNCE_INTERVAL"); set || cfg.AnnounceInterval <= 0 {
		cfg.AnnounceInterval = env.AnnounceInterval
	}
}

func pick(key, fromFile, fromEnv string) string {
	if _, set := os.LookupEnv(key); set || fromFile == "" {
		return fromEnv
	}
	return fromFile
}
