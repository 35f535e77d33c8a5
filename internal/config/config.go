package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	App       App       `mapstructure:",squash"`
	Server    Server    `mapstructure:",squash"`
	Database  Database  `mapstructure:",squash"`
	Meta      Meta      `mapstructure:",squash"`
	Auth      Auth      `mapstructure:",squash"`
	AdSync    AdSync    `mapstructure:",squash"`
	RateLimit RateLimit `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Server struct {
	Host           string   `mapstructure:"host"`
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

// Meta agrupa credenciais da Graph API e os limites usados pelo fetcher paginado.
type Meta struct {
	BaseURL        string    `mapstructure:"meta_base_url"`
	URL            string    `mapstructure:"-"`
	Version        string    `mapstructure:"meta_version"`
	AccessToken    string    `mapstructure:"meta_access_token"`
	AppID          string    `mapstructure:"meta_app_id"`
	AppSecret      string    `mapstructure:"meta_app_secret"`
	LongLivedToken string    `mapstructure:"meta_long_lived_token"`
	TokenExpiresAt time.Time `mapstructure:"-"`

	RequestTimeout      time.Duration `mapstructure:"meta_request_timeout"`
	PageLimit           int           `mapstructure:"meta_page_limit"`
	MaxPages            int           `mapstructure:"meta_max_pages"`
	MaxGenericRetries   int           `mapstructure:"meta_max_generic_retries"`
	MaxRateLimitRetries int           `mapstructure:"meta_max_rate_limit_retries"`
	RateLimitBaseDelay  time.Duration `mapstructure:"meta_rate_limit_base_delay"`
	GenericRetryDelay   time.Duration `mapstructure:"meta_generic_retry_delay"`
	InterPageDelay      time.Duration `mapstructure:"meta_inter_page_delay"`
	InterRequestDelay   time.Duration `mapstructure:"meta_inter_request_delay"`

	BreakerMaxRequests  uint32        `mapstructure:"meta_breaker_max_requests"`
	BreakerInterval     time.Duration `mapstructure:"meta_breaker_interval"`
	BreakerTimeout      time.Duration `mapstructure:"meta_breaker_timeout"`
	BreakerMinRequests  uint32        `mapstructure:"meta_breaker_min_requests"`
	BreakerFailureRatio float64       `mapstructure:"meta_breaker_failure_ratio"`
}

type Auth struct {
	Secret string `mapstructure:"auth_secret"`
}

// AdSync controla janelas de sincronização, escrita em lote e o agendador.
type AdSync struct {
	CronSchedule          string             `mapstructure:"ad_sync_cron"`
	Enabled               bool               `mapstructure:"ad_sync_enabled"`
	LookbackDays          int                `mapstructure:"ad_sync_lookback_days"`
	BufferDays            int                `mapstructure:"ad_sync_buffer_days"`
	WriteBatchSize        int                `mapstructure:"ad_sync_write_batch_size"`
	MaxConcurrentAccounts int                `mapstructure:"ad_sync_max_concurrent_accounts"`
	RawEventValues        string             `mapstructure:"conversion_event_values"`
	EventValues           map[string]float64 `mapstructure:"-"`
}

type RateLimit struct {
	ManualSyncRequests int           `mapstructure:"manual_sync_requests"`
	ManualSyncWindow   time.Duration `mapstructure:"manual_sync_window"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/ads?sslmode=disable")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("META_BASE_URL", "https://graph.facebook.com")
	viper.SetDefault("META_VERSION", "v22.0")
	viper.SetDefault("META_APP_ID", "your_app_id")
	viper.SetDefault("META_APP_SECRET", "your_app_secret")
	viper.SetDefault("META_ACCESS_TOKEN", "your_access_token") // ONLY LOCAL

	// Limites do fetcher paginado
	viper.SetDefault("META_REQUEST_TIMEOUT", "20s")
	viper.SetDefault("META_PAGE_LIMIT", 500)
	viper.SetDefault("META_MAX_PAGES", 100)
	viper.SetDefault("META_MAX_GENERIC_RETRIES", 2)
	viper.SetDefault("META_MAX_RATE_LIMIT_RETRIES", 3)
	viper.SetDefault("META_RATE_LIMIT_BASE_DELAY", "30s")
	viper.SetDefault("META_GENERIC_RETRY_DELAY", "2s")
	viper.SetDefault("META_INTER_PAGE_DELAY", "500ms")
	viper.SetDefault("META_INTER_REQUEST_DELAY", "2s")

	// Circuit breaker da Graph API
	viper.SetDefault("META_BREAKER_MAX_REQUESTS", 3)
	viper.SetDefault("META_BREAKER_INTERVAL", "1m")
	viper.SetDefault("META_BREAKER_TIMEOUT", "2m")
	viper.SetDefault("META_BREAKER_MIN_REQUESTS", 10)
	viper.SetDefault("META_BREAKER_FAILURE_RATIO", 0.6)

	viper.SetDefault("AUTH_SECRET", "your_secret_key")

	viper.SetDefault("AD_SYNC_CRON", "0 3 * * *") // Todos os dias às 3h da manhã
	viper.SetDefault("AD_SYNC_ENABLED", false)
	viper.SetDefault("AD_SYNC_LOOKBACK_DAYS", 90)
	viper.SetDefault("AD_SYNC_BUFFER_DAYS", 3) // atribuição tardia do Meta
	viper.SetDefault("AD_SYNC_WRITE_BATCH_SIZE", 500)
	viper.SetDefault("AD_SYNC_MAX_CONCURRENT_ACCOUNTS", 3)
	viper.SetDefault("CONVERSION_EVENT_VALUES", "")

	viper.SetDefault("MANUAL_SYNC_REQUESTS", 5)
	viper.SetDefault("MANUAL_SYNC_WINDOW", "1m")

	viper.SetDefault("LOG_LEVEL", "debug")
}

func NewConfig() (*Config, error) {
	loadEnvFile() // ONLY LOCAL

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.AdSync.EventValues, err = ParseEventValues(config.AdSync.RawEventValues)
	if err != nil {
		return nil, fmt.Errorf("CONVERSION_EVENT_VALUES inválido: %w", err)
	}

	config.Meta.URL = fmt.Sprintf("%s/%s", config.Meta.BaseURL, config.Meta.Version)

	config.Database.DSN = fmt.Sprintf(
		"%s://%s:%s@%s",
		config.Database.Driver,
		config.Database.User,
		config.Database.Password,
		config.Database.URL,
	)

	return config, nil
}

// ParseEventValues interpreta a tabela de valor por evento no formato "lead:25,complete_registration:10".
func ParseEventValues(raw string) (map[string]float64, error) {
	values := make(map[string]float64)

	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, value, found := strings.Cut(entry, ":")
		if !found {
			return nil, fmt.Errorf("entrada sem valor: %q", entry)
		}

		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, fmt.Errorf("entrada sem nome de evento: %q", entry)
		}

		unit, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("valor inválido para %s: %w", name, err)
		}

		if unit < 0 {
			return nil, fmt.Errorf("valor negativo para %s", name)
		}

		values[name] = unit
	}

	return values, nil
}

// loadEnvFile procura um .env no diretório atual e nos diretórios acima
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
		filepath.Join(cwd, "../../.env"),
	}

	for _, location := range locations {
		if err := godotenv.Load(location); err == nil {
			logrus.Info("Arquivo .env carregado de:", location)
			return
		}
	}

	logrus.Debug("Nenhum arquivo .env encontrado, usando apenas variáveis de ambiente")
}
