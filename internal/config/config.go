package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	HTTPPort            string `mapstructure:"http_port"`
	HTTPReadTimeout     int    `mapstructure:"http_read_timeout"`
	HTTPWriteTimeout    int    `mapstructure:"http_write_timeout"`
	HTTPShutdownTimeout int    `mapstructure:"http_shutdown_timeout"`
	HTTPRequestTimeout  int    `mapstructure:"http_request_timeout"`
	CORSAllowedOrigins  string `mapstructure:"cors_allowed_origins"`

	JWTSecret          string `mapstructure:"jwt_secret"           validate:"required,min=16"`
	JWTAccessTTLMin    int    `mapstructure:"jwt_access_ttl_min"`
	JWTRefreshTTLHours int    `mapstructure:"jwt_refresh_ttl_hours"`

	PostgresHost            string `mapstructure:"postgres_host"              validate:"required"`
	PostgresUsername        string `mapstructure:"postgres_username"          validate:"required"`
	PostgresPassword        string `mapstructure:"postgres_password"          validate:"required"`
	PostgresPort            string `mapstructure:"postgres_port"              validate:"required"`
	PostgresDatabase        string `mapstructure:"postgres_database"          validate:"required"`
	PostgresSSLMode         string `mapstructure:"postgres_sslmode"`
	PostgresMaxOpenConns    int    `mapstructure:"postgres_max_open_conns"`
	PostgresMaxIdleConns    int    `mapstructure:"postgres_max_idle_conns"`
	DBIntervalCB            uint32 `mapstructure:"db_interval_cb"`
	DBConsecutiveFailuresCB uint32 `mapstructure:"db_consecutive_failures_cb"`
	MigrationsPath          string `mapstructure:"migrations_path"`

	KafkaEnabled               bool   `mapstructure:"kafka_enabled"`
	KafkaBootstrapServer       string `mapstructure:"kafka_bootstrap_server"        validate:"required_if=KafkaEnabled true"`
	KafkaUsername              string `mapstructure:"kafka_username"`
	KafkaPassword              string `mapstructure:"kafka_password"`
	KafkaSASLEnabled           bool   `mapstructure:"kafka_sasl_enabled"`
	KafkaLeadTopic             string `mapstructure:"kafka_lead_topic"              validate:"required_if=KafkaEnabled true"`
	KafkaLeadGroupID           string `mapstructure:"kafka_lead_group_id"           validate:"required_if=KafkaEnabled true"`
	KafkaEventTopic            string `mapstructure:"kafka_event_topic"             validate:"required_if=KafkaEnabled true"`
	KafkaIntervalCB            uint32 `mapstructure:"kafka_interval_cb"`
	KafkaConsecutiveFailuresCB uint32 `mapstructure:"kafka_consecutive_failures_cb"`

	LogLevel    string `mapstructure:"log_level"`
	LogFilePath string `mapstructure:"log_file_path"`

	MinioEnabled                bool   `mapstructure:"minio_enabled"`
	MinioEndpointURL            string `mapstructure:"minio_endpoint_url"              validate:"required_if=MinioEnabled true"`
	MinioAccessKey              string `mapstructure:"minio_access_key"                validate:"required_if=MinioEnabled true"`
	MinioSecretKey              string `mapstructure:"minio_secret_key"                validate:"required_if=MinioEnabled true"`
	MinioBucketName             string `mapstructure:"minio_bucket_name"               validate:"required_if=MinioEnabled true"`
	MinioSecure                 bool   `mapstructure:"minio_secure"`
	MinioMaxRetryAttempts       uint   `mapstructure:"minio_max_retry_attempts"`
	MinioRetryBackoffMinSeconds int    `mapstructure:"minio_retry_backoff_min_seconds"`
	MinioRetryBackoffMaxSeconds int    `mapstructure:"minio_retry_backoff_max_seconds"`
	MinioPathPrefix             string `mapstructure:"minio_path_prefix"`
	MinioTimeout                int    `mapstructure:"minio_timeout"`
	MinioIntervalCB             uint32 `mapstructure:"minio_interval_cb"`
	MinioConsecutiveFailuresCB  uint32 `mapstructure:"minio_consecutive_failures_cb"`

	RedisURL string `mapstructure:"redis_url"`

	PoolSize           int `mapstructure:"pool_size"`
	EventPoolSize      int `mapstructure:"event_pool_size"`
	DeadLetterPoolSize int `mapstructure:"dead_letter_pool_size"`

	DeadLetterLeadMaxRetries int `mapstructure:"deadletter_lead_max_retries"`
	DeadLetterLeadLimit      int `mapstructure:"deadletter_lead_limit"`
	DeadLetterLeadInterval   int `mapstructure:"deadletter_lead_interval"`
	DeadLetterLeadRetryDelay int `mapstructure:"deadletter_lead_retry_delay"`

	ImportMaxFileSize int64 `mapstructure:"import_max_file_size"`

	PhoneDefaultRegion string `mapstructure:"phone_default_region"`

	HealthCheckerMonitorInterval int `mapstructure:"health_checker_monitor_interval"`

	PrometheusPort    string `mapstructure:"prometheus_port"`
	PrometheusTimeout int    `mapstructure:"prometheus_timeout"`
}

var Conf Config

func init() {
	err := loadEnvConfig(&Conf)
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.String("error", err.Error()))
	}
}

// Validate checks the loaded configuration. It is called by the binaries
// rather than in init so packages can be imported by tests without a full
// environment.
func Validate() error {
	return validator.New().Struct(&Conf)
}

func loadEnvConfig(cfg *Config) error {
	viper.AutomaticEnv()
	viper.AllowEmptyEnv(true)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setupDefaults()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	err := viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError

		ok := errors.As(err, &configFileNotFoundError)
		if !ok {
			return err
		}
	}

	return viper.Unmarshal(cfg)
}

func setupDefaults() {
	confType := reflect.TypeOf(Conf)
	for i := range confType.NumField() {
		field := confType.Field(i)
		viper.SetDefault(field.Tag.Get("mapstructure"), "")
	}

	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("HTTP_READ_TIMEOUT", "30")
	viper.SetDefault("HTTP_WRITE_TIMEOUT", "60")
	viper.SetDefault("HTTP_SHUTDOWN_TIMEOUT", "15")
	viper.SetDefault("HTTP_REQUEST_TIMEOUT", "30")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("JWT_ACCESS_TTL_MIN", "60")
	viper.SetDefault("JWT_REFRESH_TTL_HOURS", "168")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_OPEN_CONNS", "25")
	viper.SetDefault("POSTGRES_MAX_IDLE_CONNS", "5")
	viper.SetDefault("DB_INTERVAL_CB", "30")
	viper.SetDefault("DB_CONSECUTIVE_FAILURES_CB", "5")
	viper.SetDefault("MIGRATIONS_PATH", "migrations")
	viper.SetDefault("KAFKA_ENABLED", "false")
	viper.SetDefault("KAFKA_SASL_ENABLED", "true")
	viper.SetDefault("KAFKA_INTERVAL_CB", "30")
	viper.SetDefault("KAFKA_CONSECUTIVE_FAILURES_CB", "5")
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("LOG_FILE_PATH", "./access.log")
	viper.SetDefault("MINIO_ENABLED", "false")
	viper.SetDefault("MINIO_SECURE", "true")
	viper.SetDefault("MINIO_MAX_RETRY_ATTEMPTS", "3")
	viper.SetDefault("MINIO_RETRY_BACKOFF_MIN_SECONDS", "1")
	viper.SetDefault("MINIO_RETRY_BACKOFF_MAX_SECONDS", "10")
	viper.SetDefault("MINIO_PATH_PREFIX", "imports")
	viper.SetDefault("MINIO_TIMEOUT", "60")
	viper.SetDefault("MINIO_INTERVAL_CB", "300")
	viper.SetDefault("MINIO_CONSECUTIVE_FAILURES_CB", "3")
	viper.SetDefault("POOL_SIZE", "10")
	viper.SetDefault("EVENT_POOL_SIZE", "4")
	viper.SetDefault("DEAD_LETTER_POOL_SIZE", "3")
	viper.SetDefault("DEADLETTER_LEAD_MAX_RETRIES", "10")
	viper.SetDefault("DEADLETTER_LEAD_LIMIT", "100")
	viper.SetDefault("DEADLETTER_LEAD_INTERVAL", "1")
	viper.SetDefault("DEADLETTER_LEAD_RETRY_DELAY", "5")
	viper.SetDefault("IMPORT_MAX_FILE_SIZE", "10485760")
	viper.SetDefault("PHONE_DEFAULT_REGION", "IN")
	viper.SetDefault("HEALTH_CHECKER_MONITOR_INTERVAL", "60")
	viper.SetDefault("PROMETHEUS_PORT", "2112")
	viper.SetDefault("PROMETHEUS_TIMEOUT", "60")
}
