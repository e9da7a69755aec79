package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Radamanths/Irina-online-school-sub000/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. BILLING_DATABASE_HOST.
const EnvPrefix = "BILLING"

type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Log       logger.Config   `yaml:"log"`
	JWT       JWTConfig       `yaml:"jwt"`
	Providers ProvidersConfig `yaml:"providers"`
	Dunning   DunningConfig   `yaml:"dunning"`
	Redis     RedisConfig     `yaml:"redis"`
}

type JWTConfig struct {
	Secret     string   `yaml:"secret"`
	AdminRoles []string `yaml:"admin_roles"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

// LoadConfig reads the YAML file at CONFIG_PATH (default
// ./configs/billing.yaml), applies BILLING_* environment overrides and
// normalizes the result.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/billing.yaml"
	}
	return Load(configPath)
}

// Load reads the config from an explicit path.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.applyEnv(newEnvReader()); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newEnvReader() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnv overlays every key present in the environment.
func (c *Config) applyEnv(v *viper.Viper) error {
	strs := map[string]*string{
		"service.environment":                &c.Service.Environment,
		"service.frontend_url":               &c.Service.FrontendURL,
		"service.default_provider":           &c.Service.DefaultProvider,
		"database.host":                      &c.Database.Host,
		"database.name":                      &c.Database.Name,
		"database.user":                      &c.Database.User,
		"database.password":                  &c.Database.Password,
		"database.sslmode":                   &c.Database.SSLMode,
		"server.http.host":                   &c.Server.HTTP.Host,
		"server.grpc.host":                   &c.Server.GRPC.Host,
		"log.level":                          &c.Log.Level,
		"log.format":                         &c.Log.Format,
		"jwt.secret":                         &c.JWT.Secret,
		"providers.stripe.secret_key":        &c.Providers.Stripe.SecretKey,
		"providers.stripe.webhook_secret":    &c.Providers.Stripe.WebhookSecret,
		"providers.yookassa.shop_id":         &c.Providers.YooKassa.ShopID,
		"providers.yookassa.secret_key":      &c.Providers.YooKassa.SecretKey,
		"providers.yookassa.return_url":      &c.Providers.YooKassa.ReturnURL,
		"providers.cloudpayments.public_id":  &c.Providers.CloudPayments.PublicID,
		"providers.cloudpayments.api_secret": &c.Providers.CloudPayments.APISecret,
		"dunning.schedule":                   &c.Dunning.Schedule,
		"redis.addr":                         &c.Redis.Addr,
		"redis.password":                     &c.Redis.Password,
		"redis.channel":                      &c.Redis.Channel,
	}
	for key, dst := range strs {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	ints := map[string]*int{
		"database.port":                   &c.Database.Port,
		"database.max_open_conns":         &c.Database.MaxOpenConns,
		"database.max_idle_conns":         &c.Database.MaxIdleConns,
		"server.http.port":                &c.Server.HTTP.Port,
		"server.grpc.port":                &c.Server.GRPC.Port,
		"dunning.overdue_days":            &c.Dunning.OverdueDays,
		"dunning.reminder_interval_hours": &c.Dunning.ReminderIntervalHours,
		"dunning.max_reminders":           &c.Dunning.MaxReminders,
		"dunning.batch_size":              &c.Dunning.BatchSize,
		"redis.db":                        &c.Redis.DB,
	}
	for key, dst := range ints {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "billing"
	}
	if c.Service.DefaultProvider == "" {
		c.Service.DefaultProvider = "manual"
	}
	c.Service.FrontendURL = strings.TrimRight(c.Service.FrontendURL, "/")
	if c.Redis.Channel == "" {
		c.Redis.Channel = "billing.events"
	}
	if c.Providers.Timeout == 0 {
		c.Providers.Timeout = 10 * time.Second
	}
	if len(c.JWT.AdminRoles) == 0 {
		c.JWT.AdminRoles = []string{"admin"}
	}
	c.Database.applyDefaults()
	c.Dunning = c.Dunning.Normalize()
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Service.FrontendURL == "" {
		return fmt.Errorf("service.frontend_url is required")
	}
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("database.host and database.name are required")
	}
	switch c.Service.DefaultProvider {
	case "manual", "stripe", "yookassa", "cloudpayments":
	default:
		return fmt.Errorf("unsupported service.default_provider: %s", c.Service.DefaultProvider)
	}
	return nil
}
