package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/resilience"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv             string
	ServiceName        string
	ServiceVersion     string
	HTTPAddr           string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           logging.Level
	CORSAllowedOrigins []string
	SwaggerEnabled     bool
	InternalJobToken   string

	LocalStoreDriver        string
	LocalStoreSeed          bool
	DBURL                   string
	DBDisablePreparedBinary bool
	CacheEnabled            bool
	CacheTTL                time.Duration

	ProviderEnabled       bool
	ProviderBaseURL       string
	ProviderAPIKey        string
	ProviderTimezone      string
	ProviderTimeout       time.Duration
	ProviderMaxRetries    int
	ProviderRatePerMinute int
	ProviderWorkers       int
	ProviderCircuit       resilience.CircuitBreakerConfig

	IngestLiveInterval         time.Duration
	IngestUpcomingInterval     time.Duration
	IngestFinishedInterval     time.Duration
	IngestUpcomingWindowDays   int
	IngestFinishedLookbackDays int
	IngestFetchTimeout         time.Duration

	RealtimeSendBuffer   int
	RealtimeWriteTimeout time.Duration
	RealtimePongTimeout  time.Duration
	RealtimeRedisEnabled bool
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RealtimeRedisChannel string

	AnalyticsEnabled       bool
	AnalyticsEndpoint      string
	AnalyticsToken         string
	AnalyticsTimeout       time.Duration
	AnalyticsFlushInterval time.Duration
	AnalyticsCircuit       resilience.CircuitBreakerConfig

	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
	PprofEnabled               bool
	PprofAddr                  string
}

func Load() (Config, error) {
	var cfg Config
	loaders := []func(*Config) error{
		loadApp,
		loadStore,
		loadProvider,
		loadIngestion,
		loadRealtime,
		loadAnalytics,
		loadObservability,
	}
	for _, load := range loaders {
		if err := load(&cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func loadApp(cfg *Config) error {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return err
	}
	cfg.AppEnv = appEnv
	cfg.ServiceName = strings.TrimSpace(getEnv("APP_SERVICE_NAME", "livebaz-api"))
	cfg.ServiceVersion = strings.TrimSpace(getEnv("APP_SERVICE_VERSION", "dev"))
	cfg.HTTPAddr = strings.TrimSpace(getEnv("APP_HTTP_ADDR", ":8080"))
	cfg.LogLevel = parseLogLevel(getEnv("APP_LOG_LEVEL", "info"))
	cfg.InternalJobToken = strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", ""))

	swaggerDefault := "true"
	if appEnv == EnvProd {
		swaggerDefault = "false"
	}
	if cfg.SwaggerEnabled, err = getEnvAsBool("SWAGGER_ENABLED", swaggerDefault); err != nil {
		return err
	}
	if cfg.ReadTimeout, err = getEnvAsPositiveDuration("APP_READ_TIMEOUT", "10s"); err != nil {
		return err
	}
	// Websocket handlers run past the write timeout; it only bounds the
	// upgrade handshake and plain HTTP responses.
	if cfg.WriteTimeout, err = getEnvAsPositiveDuration("APP_WRITE_TIMEOUT", "15s"); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = getEnvAsPositiveDuration("APP_SHUTDOWN_TIMEOUT", "10s"); err != nil {
		return err
	}

	cfg.CORSAllowedOrigins = splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*"))
	if len(cfg.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	return nil
}

func loadStore(cfg *Config) error {
	var err error
	cfg.LocalStoreDriver = strings.ToLower(strings.TrimSpace(getEnv("LOCAL_STORE_DRIVER", StoreDriverMemory)))
	switch cfg.LocalStoreDriver {
	case StoreDriverMemory, StoreDriverPostgres:
	default:
		return fmt.Errorf("invalid LOCAL_STORE_DRIVER %q: valid values are %s, %s", cfg.LocalStoreDriver, StoreDriverMemory, StoreDriverPostgres)
	}

	cfg.DBURL = strings.TrimSpace(getEnv("DB_URL", ""))
	if cfg.LocalStoreDriver == StoreDriverPostgres && cfg.DBURL == "" {
		return fmt.Errorf("DB_URL is required when LOCAL_STORE_DRIVER=postgres")
	}
	if cfg.LocalStoreSeed, err = getEnvAsBool("LOCAL_STORE_SEED", strconv.FormatBool(cfg.AppEnv == EnvDev)); err != nil {
		return err
	}
	if cfg.DBDisablePreparedBinary, err = getEnvAsBool("DB_DISABLE_PREPARED_BINARY_RESULT", "true"); err != nil {
		return err
	}
	if cfg.CacheEnabled, err = getEnvAsBool("CACHE_ENABLED", "true"); err != nil {
		return err
	}
	if cfg.CacheTTL, err = getEnvAsPositiveDuration("CACHE_TTL", "10s"); err != nil {
		return err
	}
	return nil
}

func loadProvider(cfg *Config) error {
	var err error
	if cfg.ProviderEnabled, err = getEnvAsBool("PROVIDER_ENABLED", "false"); err != nil {
		return err
	}
	cfg.ProviderBaseURL = strings.TrimSpace(getEnv("PROVIDER_BASE_URL", "https://v3.football.api-sports.io"))
	cfg.ProviderAPIKey = strings.TrimSpace(getEnv("PROVIDER_API_KEY", ""))
	cfg.ProviderTimezone = strings.TrimSpace(getEnv("PROVIDER_TIMEZONE", "UTC"))
	if cfg.ProviderEnabled && cfg.ProviderAPIKey == "" {
		return fmt.Errorf("PROVIDER_API_KEY is required when PROVIDER_ENABLED=true")
	}
	if cfg.ProviderTimeout, err = getEnvAsPositiveDuration("PROVIDER_TIMEOUT", "10s"); err != nil {
		return err
	}
	if cfg.ProviderMaxRetries, err = getEnvAsBoundedInt("PROVIDER_MAX_RETRIES", 2, 0); err != nil {
		return err
	}
	if cfg.ProviderRatePerMinute, err = getEnvAsBoundedInt("PROVIDER_RATE_PER_MINUTE", 30, 1); err != nil {
		return err
	}
	if cfg.ProviderWorkers, err = getEnvAsBoundedInt("PROVIDER_WORKERS", 4, 1); err != nil {
		return err
	}
	cfg.ProviderCircuit, err = loadCircuit("PROVIDER")
	return err
}

func loadIngestion(cfg *Config) error {
	var err error
	if cfg.IngestLiveInterval, err = getEnvAsPositiveDuration("INGEST_LIVE_INTERVAL", "15s"); err != nil {
		return err
	}
	if cfg.IngestUpcomingInterval, err = getEnvAsPositiveDuration("INGEST_UPCOMING_INTERVAL", "5m"); err != nil {
		return err
	}
	if cfg.IngestFinishedInterval, err = getEnvAsPositiveDuration("INGEST_FINISHED_INTERVAL", "10m"); err != nil {
		return err
	}
	if cfg.IngestUpcomingWindowDays, err = getEnvAsBoundedInt("INGEST_UPCOMING_WINDOW_DAYS", 7, 1); err != nil {
		return err
	}
	if cfg.IngestFinishedLookbackDays, err = getEnvAsBoundedInt("INGEST_FINISHED_LOOKBACK_DAYS", 3, 1); err != nil {
		return err
	}
	if cfg.IngestFetchTimeout, err = getEnvAsPositiveDuration("INGEST_FETCH_TIMEOUT", "30s"); err != nil {
		return err
	}
	return nil
}

func loadRealtime(cfg *Config) error {
	var err error
	if cfg.RealtimeSendBuffer, err = getEnvAsBoundedInt("REALTIME_SEND_BUFFER", 64, 1); err != nil {
		return err
	}
	if cfg.RealtimeWriteTimeout, err = getEnvAsPositiveDuration("REALTIME_WRITE_TIMEOUT", "10s"); err != nil {
		return err
	}
	if cfg.RealtimePongTimeout, err = getEnvAsPositiveDuration("REALTIME_PONG_TIMEOUT", "60s"); err != nil {
		return err
	}
	if cfg.RealtimeRedisEnabled, err = getEnvAsBool("REALTIME_REDIS_ENABLED", "false"); err != nil {
		return err
	}
	cfg.RedisAddr = strings.TrimSpace(getEnv("REDIS_ADDR", ""))
	if cfg.RealtimeRedisEnabled && cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required when REALTIME_REDIS_ENABLED=true")
	}
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisDB, err = getEnvAsBoundedInt("REDIS_DB", 0, 0); err != nil {
		return err
	}
	cfg.RealtimeRedisChannel = strings.TrimSpace(getEnv("REALTIME_REDIS_CHANNEL", "livebaz:realtime"))
	return nil
}

func loadAnalytics(cfg *Config) error {
	var err error
	if cfg.AnalyticsEnabled, err = getEnvAsBool("ANALYTICS_ENABLED", "false"); err != nil {
		return err
	}
	cfg.AnalyticsEndpoint = strings.TrimSpace(getEnv("ANALYTICS_ENDPOINT", ""))
	cfg.AnalyticsToken = strings.TrimSpace(getEnv("ANALYTICS_TOKEN", ""))
	if cfg.AnalyticsEnabled && cfg.AnalyticsEndpoint == "" {
		return fmt.Errorf("ANALYTICS_ENDPOINT is required when ANALYTICS_ENABLED=true")
	}
	if cfg.AnalyticsTimeout, err = getEnvAsPositiveDuration("ANALYTICS_TIMEOUT", "5s"); err != nil {
		return err
	}
	if cfg.AnalyticsFlushInterval, err = getEnvAsPositiveDuration("ANALYTICS_FLUSH_INTERVAL", "1m"); err != nil {
		return err
	}
	cfg.AnalyticsCircuit, err = loadCircuit("ANALYTICS")
	return err
}

func loadObservability(cfg *Config) error {
	var err error
	if cfg.UptraceEnabled, err = getEnvAsBool("UPTRACE_ENABLED", "false"); err != nil {
		return err
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	if cfg.UptraceLogsEnabled, err = getEnvAsBool("UPTRACE_LOGS_ENABLED", "false"); err != nil {
		return err
	}

	if cfg.PprofEnabled, err = getEnvAsBool("PPROF_ENABLED", "false"); err != nil {
		return err
	}
	cfg.PprofAddr = strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))

	if cfg.PyroscopeEnabled, err = getEnvAsBool("PYROSCOPE_ENABLED", "false"); err != nil {
		return err
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))
	if cfg.PyroscopeUploadRate, err = getEnvAsPositiveDuration("PYROSCOPE_UPLOAD_RATE", "15s"); err != nil {
		return err
	}
	return nil
}

// loadCircuit reads <PREFIX>_CIRCUIT_{ENABLED,FAILURE_COUNT,OPEN_TIMEOUT,HALF_OPEN_MAX_REQ}.
func loadCircuit(prefix string) (resilience.CircuitBreakerConfig, error) {
	defaults := resilience.DefaultCircuitBreakerConfig()
	var (
		out resilience.CircuitBreakerConfig
		err error
	)
	if out.Enabled, err = getEnvAsBool(prefix+"_CIRCUIT_ENABLED", strconv.FormatBool(defaults.Enabled)); err != nil {
		return out, err
	}
	if out.FailureThreshold, err = getEnvAsBoundedInt(prefix+"_CIRCUIT_FAILURE_COUNT", defaults.FailureThreshold, 1); err != nil {
		return out, err
	}
	if out.OpenTimeout, err = getEnvAsPositiveDuration(prefix+"_CIRCUIT_OPEN_TIMEOUT", defaults.OpenTimeout.String()); err != nil {
		return out, err
	}
	if out.HalfOpenMaxReq, err = getEnvAsBoundedInt(prefix+"_CIRCUIT_HALF_OPEN_MAX_REQ", defaults.HalfOpenMaxReq, 1); err != nil {
		return out, err
	}
	return out, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsBool(key, fallback string) (bool, error) {
	out, err := strconv.ParseBool(strings.TrimSpace(getEnv(key, fallback)))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

func getEnvAsPositiveDuration(key, fallback string) (time.Duration, error) {
	out, err := time.ParseDuration(strings.TrimSpace(getEnv(key, fallback)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return out, nil
}

func getEnvAsBoundedInt(key string, fallback, minimum int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if out < minimum {
		return 0, fmt.Errorf("%s must be >= %d", key, minimum)
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		key, value, ok := strings.Cut(strings.TrimSpace(item), "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "uptrace-dsn") {
			return strings.Trim(strings.TrimSpace(value), "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
