package config

import (
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata" // civil timezones must resolve without system zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseDriver string         `mapstructure:"database_driver"`
	DatabaseURL    string         `mapstructure:"database_url"`
	ServerPort     string         `mapstructure:"server_port"`
	JWTSecret      string         `mapstructure:"jwt_secret"`
	AllowedOrigins []string       `mapstructure:"allowed_origins"`
	Alerts         AlertsConfig   `mapstructure:"alerts"`
	Email          EmailConfig    `mapstructure:"email"`
	Firebase       FirebaseConfig `mapstructure:"firebase"`
	Temporal       TemporalConfig `mapstructure:"temporal"`
	MQTT           MQTTConfig     `mapstructure:"mqtt"`
}

// AlertsConfig controls the maintenance alert check loop and the daily digest.
type AlertsConfig struct {
	Timezone         string        `mapstructure:"timezone"`
	EmailHour        int           `mapstructure:"email_hour"`
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	MinCheckGap      time.Duration `mapstructure:"min_check_gap"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
	Recipients       []string      `mapstructure:"recipients"`
}

type EmailConfig struct {
	From          string `mapstructure:"from"`
	SMTPHost      string `mapstructure:"smtp_host"`
	SMTPPort      int    `mapstructure:"smtp_port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	RatePerMinute int    `mapstructure:"rate_per_minute"`
}

type FirebaseConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

type TemporalConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	HostPort     string `mapstructure:"host_port"`
	Namespace    string `mapstructure:"namespace"`
	CronSchedule string `mapstructure:"cron_schedule"`
}

type MQTTConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"client_id"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_url", "agrotrack.db")
	v.SetDefault("server_port", "8080")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("alerts.timezone", "America/Sao_Paulo")
	v.SetDefault("alerts.email_hour", 21)
	v.SetDefault("alerts.check_interval", 30*time.Minute)
	v.SetDefault("alerts.min_check_gap", 5*time.Minute)
	v.SetDefault("alerts.history_retention", 7*24*time.Hour)

	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.rate_per_minute", 30)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.cron_schedule", "*/30 * * * *")

	v.SetDefault("mqtt.client_id", "agrotrack-api")
	v.SetDefault("mqtt.topic", "farm/machines/+/meter")
}

// Load reads the configuration from config.yaml in the current directory or
// ./config, applying AGROTRACK_* environment overrides. It exits on error.
func Load() *Config {
	cfg, err := LoadFrom("")
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

// LoadFrom reads configuration from path, or from the default search paths
// when path is empty. A missing config file is not an error.
func LoadFrom(path string) (*Config, error) {
	// .env is optional and only feeds the environment.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.SetConfigName("config")
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix("agrotrack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("jwt_secret must be set")
	}
	if c.Alerts.EmailHour < 1 || c.Alerts.EmailHour > 23 {
		return fmt.Errorf("alerts.email_hour must be between 1 and 23, got %d", c.Alerts.EmailHour)
	}
	if c.Alerts.CheckInterval <= 0 {
		return fmt.Errorf("alerts.check_interval must be positive")
	}
	if _, err := c.Alerts.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the civil timezone used for the daily email window and
// for calendar-day notification dedup.
func (a AlertsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid alerts.timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}
