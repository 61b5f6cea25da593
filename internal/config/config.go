package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings shared by every service binary. Each service only
// reads the sections it needs.
type Config struct {
	Service        ServiceConfig      `mapstructure:"service"`
	Port           string             `mapstructure:"port"`
	Log            LogConfig          `mapstructure:"log"`
	Database       DatabaseConfig     `mapstructure:"database"`
	MongoDB        MongoConfig        `mapstructure:"mongodb"`
	Kafka          KafkaConfig        `mapstructure:"kafka"`
	Otel           OtelConfig         `mapstructure:"otel"`
	UserService    PeerConfig         `mapstructure:"user_service"`
	ProductService PeerConfig         `mapstructure:"product_service"`
	JWT            JWTConfig          `mapstructure:"jwt"`
	Notifications  NotificationConfig `mapstructure:"notifications"`
}

type ServiceConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// URL returns the postgres:// form understood by pgx and gorm.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
}

// DSN returns the key/value form used with lib/pq.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", d.Host, d.Port, d.User, d.Password, d.Name)
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type KafkaConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	BootstrapServers string        `mapstructure:"bootstrap_servers"`
	GroupID          string        `mapstructure:"group_id"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`
}

// Brokers splits the comma separated bootstrap list.
func (k KafkaConfig) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(k.BootstrapServers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

type OtelConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	ExporterOtlpEndpoint string `mapstructure:"exporter_otlp_endpoint"`
}

type PeerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

type NotificationConfig struct {
	AdminEmail        string `mapstructure:"admin_email"`
	LowStockThreshold int    `mapstructure:"low_stock_threshold"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryBatchSize    int64  `mapstructure:"retry_batch_size"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "ecommerce-service")
	v.SetDefault("service.version", "1.0.0")
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "pass")
	v.SetDefault("database.name", "ecommerce")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("mongodb.url", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "ecommerce")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.bootstrap_servers", "localhost:9092")
	v.SetDefault("kafka.group_id", "")
	v.SetDefault("kafka.batch_timeout", 10*time.Millisecond)

	v.SetDefault("otel.enabled", true)
	v.SetDefault("otel.exporter_otlp_endpoint", "localhost:4318")

	v.SetDefault("user_service.url", "http://user-service:8000")
	v.SetDefault("user_service.timeout", 30*time.Second)
	v.SetDefault("product_service.url", "http://product-service:8001")
	v.SetDefault("product_service.timeout", 30*time.Second)

	v.SetDefault("jwt.secret_key", "change-me")
	v.SetDefault("jwt.expire_minutes", 30)

	v.SetDefault("notifications.admin_email", "admin@ecommerce.com")
	v.SetDefault("notifications.low_stock_threshold", 10)
	v.SetDefault("notifications.max_retries", 3)
	v.SetDefault("notifications.retry_batch_size", 100)
}

// Load reads config.yaml (if any) and the environment on top of the defaults.
// overrides carries per-service defaults such as the port or database name and
// is applied below file and environment values.
func Load(overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, value := range overrides {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./")
	v.AddConfigPath("./deploy/")
	v.AddConfigPath("/etc/ecommerce/")

	// DATABASE_HOST, KAFKA_ENABLED, USER_SERVICE_URL and friends map onto the
	// nested keys above.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
