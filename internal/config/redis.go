package config

type RedisConfig struct {
	DB       int    `yaml:"db"`
	Url      string `yaml:"url"`
	Password string `yaml:"password"`
	// Key is the hash the scheduler publishes its address under.
	Key string `yaml:"key"`
}

func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		DB:       getIntEnv("ICECCD_REDIS_DB", 0),
		Url:      getEnv("ICECCD_REDIS_ADDR", ""),
		Password: getEnv("ICECCD_REDIS_PASSWORD", ""),
		Key:      getEnv("ICECCD_REDIS_KEY", "icecc:scheduler"),
	}
}

// Enabled reports whether a redis address was configured.
func (c *RedisConfig) Enabled() bool {
	return c.Url != ""
}
