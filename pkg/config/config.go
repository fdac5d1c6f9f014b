package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ATT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	MercadoPago  MercadoPagoConfig
	Storage      StorageConfig
	GitHub       GitHubConfig
	Mail         MailConfig
	Media        MediaConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ATT_APP_ENV" required:"true"`
	Port         string `envconfig:"ATT_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"ATT_APP_BASE_URL" required:"true"`
	LogLevel     string `envconfig:"ATT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ATT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ATT_DB_DSN"`
	Driver string `envconfig:"ATT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ATT_DB_HOST"`
	Port     int    `envconfig:"ATT_DB_PORT" default:"5432"`
	User     string `envconfig:"ATT_DB_USER"`
	Password string `envconfig:"ATT_DB_PASSWORD"`
	Name     string `envconfig:"ATT_DB_NAME"`
	SSLMode  string `envconfig:"ATT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ATT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ATT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ATT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ATT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ATT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ATT_REDIS_ADDR"`
	Password     string        `envconfig:"ATT_REDIS_PASSWORD"`
	DB           int           `envconfig:"ATT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ATT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ATT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ATT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ATT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ATT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ATT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ATT_JWT_ISSUER" default:"armatutienda"`
	ExpirationMinutes int    `envconfig:"ATT_JWT_EXPIRATION_MINUTES" default:"720"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type MercadoPagoConfig struct {
	BaseURL       string        `envconfig:"ATT_MP_BASE_URL" default:"https://api.mercadopago.com"`
	FallbackToken string        `envconfig:"ATT_MP_FALLBACK_TOKEN"`
	ClientID      string        `envconfig:"ATT_MP_CLIENT_ID"`
	ClientSecret  string        `envconfig:"ATT_MP_CLIENT_SECRET"`
	Timeout       time.Duration `envconfig:"ATT_MP_TIMEOUT" default:"10s"`
	WebhookTTL    time.Duration `envconfig:"ATT_MP_WEBHOOK_GUARD_TTL" default:"72h"`
}

type StorageConfig struct {
	Endpoint  string `envconfig:"ATT_STORAGE_ENDPOINT" required:"true"`
	Region    string `envconfig:"ATT_STORAGE_REGION" default:"us-east-005"`
	AccessKey string `envconfig:"ATT_STORAGE_ACCESS_KEY" required:"true"`
	SecretKey string `envconfig:"ATT_STORAGE_SECRET_KEY" required:"true"`
	Bucket    string `envconfig:"ATT_STORAGE_BUCKET" default:"imagenes-appweb"`
	PublicURL string `envconfig:"ATT_STORAGE_PUBLIC_URL"`
}

type GitHubConfig struct {
	Token    string        `envconfig:"ATT_GITHUB_TOKEN"`
	Owner    string        `envconfig:"ATT_GITHUB_OWNER"`
	Branch   string        `envconfig:"ATT_GITHUB_BRANCH" default:"main"`
	Timeout  time.Duration `envconfig:"ATT_GITHUB_TIMEOUT" default:"10s"`
	Disabled bool          `envconfig:"ATT_GITHUB_DISABLED" default:"false"`
}

type MailConfig struct {
	Host     string `envconfig:"ATT_MAIL_HOST"`
	Port     string `envconfig:"ATT_MAIL_PORT" default:"587"`
	Username string `envconfig:"ATT_MAIL_USERNAME"`
	Password string `envconfig:"ATT_MAIL_PASSWORD"`
	From     string `envconfig:"ATT_MAIL_FROM"`
	FromName string `envconfig:"ATT_MAIL_FROM_NAME" default:"Arma Tu Tienda"`
}

type MediaConfig struct {
	MaxUploadBytes   int64 `envconfig:"ATT_MEDIA_MAX_UPLOAD_BYTES" default:"4194304"`
	MaxImagesPerUser int   `envconfig:"ATT_MEDIA_MAX_IMAGES" default:"60"`
	UploadWorkers    int   `envconfig:"ATT_MEDIA_UPLOAD_WORKERS" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ATT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for envVar, value := range map[string]string{
		"ATT_DB_HOST": db.Host,
		"ATT_DB_USER": db.User,
		"ATT_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, envVar)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either ATT_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
