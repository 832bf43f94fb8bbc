package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	Port              string        `mapstructure:"PORT"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	CORSAllowed       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	OracleBaseURL     string        `mapstructure:"ORACLE_BASE_URL"`
	OracleModel       string        `mapstructure:"ORACLE_MODEL"`
	OracleAPIKey      string        `mapstructure:"ORACLE_API_KEY"`
	OracleTimeout     time.Duration `mapstructure:"ORACLE_TIMEOUT"`
	OracleMaxTokens   int           `mapstructure:"ORACLE_MAX_TOKENS"`
	OracleCacheTTL    time.Duration `mapstructure:"ORACLE_CACHE_TTL"`
	KafkaBrokersRaw   string        `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic        string        `mapstructure:"KAFKA_TOPIC"`
	RebalanceInterval time.Duration `mapstructure:"REBALANCE_INTERVAL"`
	NotifyWebhookURL  string        `mapstructure:"NOTIFY_WEBHOOK_URL"`
}

// KafkaBrokers splits the comma separated broker list. Empty disables events.
func (c Config) KafkaBrokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokersRaw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("ORACLE_BASE_URL", "")
	v.SetDefault("ORACLE_MODEL", "gpt-4o-mini")
	v.SetDefault("ORACLE_API_KEY", "")
	v.SetDefault("ORACLE_TIMEOUT", "10s")
	v.SetDefault("ORACLE_MAX_TOKENS", 8)
	v.SetDefault("ORACLE_CACHE_TTL", "0s")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "complaint-events")
	v.SetDefault("REBALANCE_INTERVAL", "0s")
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
