package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/orderrelay/orderrelay/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Webhook    WebhookConfig    `validate:"required"`
	Zoho       ZohoConfig       `validate:"required"`
	Audit      AuditConfig
	Dedup      DedupConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

// WebhookConfig holds the shared secret used to verify inbound
// WooCommerce webhook signatures
type WebhookConfig struct {
	Secret string `validate:"required"`
}

// ZohoConfig holds Zoho CRM OAuth credentials and endpoints
type ZohoConfig struct {
	ClientID     string `mapstructure:"client_id" validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`
	RefreshToken string `mapstructure:"refresh_token" validate:"required"`
	AccountsURL  string `mapstructure:"accounts_url" validate:"required,url"`
	APIBaseURL   string `mapstructure:"api_base_url" validate:"required,url"`
	DealStage    string `mapstructure:"deal_stage" validate:"required"`
}

// AuditConfig controls the best-effort audit log. When disabled the
// relay runs with a no-op audit logger.
type AuditConfig struct {
	Enabled     bool
	DatabaseURL string `mapstructure:"database_url"`
}

// DedupConfig controls suppression of redelivered order events.
// Disabled by default: a redelivered webhook then creates a duplicate deal,
// matching the upstream platform's at-least-once delivery contract.
type DedupConfig struct {
	Enabled bool
	TTL     time.Duration
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Local development convenience, ignored when the file is absent
	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/orderrelay")

	v.SetEnvPrefix("ORDERRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every recognized key. Keys without a real default get
// an empty value so viper still resolves them from the environment during
// Unmarshal; unregistered keys are invisible to AutomaticEnv.
func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeAPI))
	v.SetDefault("server.address", ":3000")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("webhook.secret", "")
	v.SetDefault("zoho.client_id", "")
	v.SetDefault("zoho.client_secret", "")
	v.SetDefault("zoho.refresh_token", "")
	v.SetDefault("zoho.accounts_url", "https://accounts.zoho.com")
	v.SetDefault("zoho.api_base_url", "https://www.zohoapis.com/crm/v2")
	v.SetDefault("zoho.deal_stage", "Qualification")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.database_url", "")
	v.SetDefault("dedup.enabled", false)
	v.SetDefault("dedup.ttl", "24h")
}

func (c Configuration) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Audit.Enabled && c.Audit.DatabaseURL == "" {
		return errors.New("audit.database_url is required when audit logging is enabled")
	}
	return nil
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":3000"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Zoho: ZohoConfig{
			AccountsURL: "https://accounts.zoho.com",
			APIBaseURL:  "https://www.zohoapis.com/crm/v2",
			DealStage:   "Qualification",
		},
		Dedup: DedupConfig{TTL: 24 * time.Hour},
	}
}
