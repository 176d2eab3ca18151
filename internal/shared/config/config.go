package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	HTTPClient HTTPClientConfig `mapstructure:"http_client"`
	Storefront StorefrontConfig `mapstructure:"storefront"`
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Checkout   CheckoutConfig   `mapstructure:"checkout"`
	Log        LogConfig        `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database configuration. The database is optional;
// an empty host disables the webhook event log.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration. Redis is optional; without it the
// checkout intent store and reconciliation markers fall back to memory.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HTTPClientConfig holds outbound HTTP client configuration.
type HTTPClientConfig struct {
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	KeepAlive           time.Duration `mapstructure:"keep_alive"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	ResponseTimeout     time.Duration `mapstructure:"response_timeout"`
}

// StorefrontConfig holds storefront platform configuration.
type StorefrontConfig struct {
	APIBaseURL      string        `mapstructure:"api_base_url"`
	TokenURL        string        `mapstructure:"token_url"`
	StoreID         string        `mapstructure:"store_id"`
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	UserAgent       string        `mapstructure:"user_agent"`
	FallbackToken   string        `mapstructure:"fallback_token"`
	TokenFile       string        `mapstructure:"token_file"`
	RedirectURI     string        `mapstructure:"redirect_uri"`
	DefaultProvince string        `mapstructure:"default_province"`
	DefaultCountry  string        `mapstructure:"default_country"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

// GatewayConfig holds payment processor configuration.
type GatewayConfig struct {
	APIBaseURL     string        `mapstructure:"api_base_url"`
	AccessToken    string        `mapstructure:"access_token"`
	Mode           string        `mapstructure:"mode"` // test | prod
	Currency       string        `mapstructure:"currency"`
	ValidateAmount bool          `mapstructure:"validate_amount"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// CheckoutConfig holds checkout preference configuration.
type CheckoutConfig struct {
	FrontBaseURL string        `mapstructure:"front_base_url"`
	BackBaseURL  string        `mapstructure:"back_base_url"`
	IntentTTL    time.Duration `mapstructure:"intent_ttl"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/storebridge")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	v.SetEnvPrefix("STOREBRIDGE")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if secret := os.Getenv("STOREBRIDGE_STOREFRONT_CLIENT_SECRET"); secret != "" {
		cfg.Storefront.ClientSecret = secret
	}
	if token := os.Getenv("STOREBRIDGE_STOREFRONT_FALLBACK_TOKEN"); token != "" {
		cfg.Storefront.FallbackToken = token
	}
	if token := os.Getenv("STOREBRIDGE_GATEWAY_ACCESS_TOKEN"); token != "" {
		cfg.Gateway.AccessToken = token
	}
	if password := os.Getenv("STOREBRIDGE_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("STOREBRIDGE_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	// Database defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "storebridge")
	v.SetDefault("database.database", "storebridge")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 10*time.Minute)

	// HTTP client defaults
	v.SetDefault("http_client.dial_timeout", 5*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.response_timeout", 30*time.Second)

	// Storefront defaults
	v.SetDefault("storefront.api_base_url", "https://api.nuvemshop.com.br/v1")
	v.SetDefault("storefront.token_url", "https://www.nuvemshop.com.br/apps/token")
	v.SetDefault("storefront.token_file", "tokens.json")
	v.SetDefault("storefront.default_province", "SP")
	v.SetDefault("storefront.default_country", "BR")
	v.SetDefault("storefront.request_timeout", 15*time.Second)

	// Gateway defaults
	v.SetDefault("gateway.api_base_url", "https://api.mercadopago.com")
	v.SetDefault("gateway.mode", "test")
	v.SetDefault("gateway.currency", "BRL")
	v.SetDefault("gateway.validate_amount", true)
	v.SetDefault("gateway.request_timeout", 10*time.Second)

	// Checkout defaults
	v.SetDefault("checkout.intent_ttl", 72*time.Hour)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
