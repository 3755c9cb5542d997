package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	LiveKit  LiveKitConfig
	Presence PresenceConfig
	Calls    CallsConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Migrate runs the schema migration at boot.
	Migrate bool

	// Pool tuning; zero means the pool default.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host string
	Port int
}

// AuthConfig describes how bearer tokens from the identity provider are verified.
// Exactly one mode is used: OIDC discovery when OIDCIssuer is set, shared secret otherwise.
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	OIDCIssuer   string
	OIDCClientID string
}

func (a AuthConfig) UsesOIDC() bool { return a.OIDCIssuer != "" }

type LiveKitConfig struct {
	URL       string
	APIKey    string
	APISecret string
	TokenTTL  time.Duration
}

type PresenceConfig struct {
	Window time.Duration
	// Backend is "redis" or "postgres".
	Backend string
	// Policy is "recent" or "all".
	Policy string
}

type CallsConfig struct {
	RequirePresence bool
	LongPollMax     time.Duration
}

const (
	PresenceBackendRedis    = "redis"
	PresenceBackendPostgres = "postgres"

	PresencePolicyRecent = "recent"
	PresencePolicyAll    = "all"
)

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	{
		b, err := optionalBool("DB_MIGRATE", c.App.Env != "production")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.DB.Migrate = b
	}
	c.DB.MaxOpenConns, parseErrs = appendOptionalInt(parseErrs, "DB_MAX_OPEN_CONNS")
	c.DB.MaxIdleConns, parseErrs = appendOptionalInt(parseErrs, "DB_MAX_IDLE_CONNS")
	c.DB.ConnMaxLifetime, parseErrs = appendDuration(parseErrs, "DB_CONN_MAX_LIFETIME")
	c.DB.ConnMaxIdleTime, parseErrs = appendDuration(parseErrs, "DB_CONN_MAX_IDLE_TIME")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("AUTH_JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("AUTH_JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("AUTH_JWT_AUDIENCE"))
	c.Auth.OIDCIssuer = strings.TrimSpace(os.Getenv("AUTH_OIDC_ISSUER"))
	c.Auth.OIDCClientID = strings.TrimSpace(os.Getenv("AUTH_OIDC_CLIENT_ID"))

	c.LiveKit.URL = strings.TrimSpace(os.Getenv("LIVEKIT_URL"))
	c.LiveKit.APIKey = strings.TrimSpace(os.Getenv("LIVEKIT_API_KEY"))
	c.LiveKit.APISecret = os.Getenv("LIVEKIT_API_SECRET")
	// Duration env vars are optional; defaults applied in Validate().
	c.LiveKit.TokenTTL, parseErrs = appendDuration(parseErrs, "LIVEKIT_TOKEN_TTL")

	c.Presence.Window, parseErrs = appendDuration(parseErrs, "PRESENCE_WINDOW")
	c.Presence.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("PRESENCE_BACKEND")))
	c.Presence.Policy = strings.ToLower(strings.TrimSpace(os.Getenv("PRESENCE_POLICY")))

	{
		b, err := optionalBool("CALLS_REQUIRE_PRESENCE", false)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Calls.RequirePresence = b
	}
	c.Calls.LongPollMax, parseErrs = appendDuration(parseErrs, "CALLS_LONGPOLL_MAX")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the configuration and fills defaults for optional values.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative"))
	}
	if c.DB.MaxOpenConns > 0 && c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		errs = append(errs, fmt.Errorf("DB_MAX_IDLE_CONNS (%d) must not exceed DB_MAX_OPEN_CONNS (%d)", c.DB.MaxIdleConns, c.DB.MaxOpenConns))
	}
	if c.DB.ConnMaxLifetime < 0 || c.DB.ConnMaxIdleTime < 0 {
		errs = append(errs, errors.New("DB_CONN_MAX_LIFETIME and DB_CONN_MAX_IDLE_TIME must not be negative"))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.UsesOIDC() {
		if c.IsProduction() && c.Auth.OIDCClientID == "" {
			errs = append(errs, errors.New("AUTH_OIDC_CLIENT_ID is required in production"))
		}
	} else {
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("AUTH_JWT_SECRET or AUTH_OIDC_ISSUER is required"))
		}
		if c.IsProduction() {
			if c.Auth.JWTIssuer == "" {
				errs = append(errs, errors.New("AUTH_JWT_ISSUER is required in production"))
			}
			if c.Auth.JWTAudience == "" {
				errs = append(errs, errors.New("AUTH_JWT_AUDIENCE is required in production"))
			}
		}
	}

	if c.LiveKit.URL == "" {
		errs = append(errs, errors.New("LIVEKIT_URL is required"))
	}
	if c.LiveKit.APIKey == "" {
		errs = append(errs, errors.New("LIVEKIT_API_KEY is required"))
	}
	if c.LiveKit.APISecret == "" {
		errs = append(errs, errors.New("LIVEKIT_API_SECRET is required"))
	}
	if c.LiveKit.TokenTTL <= 0 {
		c.LiveKit.TokenTTL = time.Hour
	}

	if c.Presence.Window <= 0 {
		c.Presence.Window = 5 * time.Minute
	}
	switch c.Presence.Backend {
	case "":
		c.Presence.Backend = PresenceBackendRedis
	case PresenceBackendRedis, PresenceBackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("PRESENCE_BACKEND must be one of redis, postgres, got %q", c.Presence.Backend))
	}
	switch c.Presence.Policy {
	case "":
		c.Presence.Policy = PresencePolicyRecent
	case PresencePolicyRecent, PresencePolicyAll:
	default:
		errs = append(errs, fmt.Errorf("PRESENCE_POLICY must be one of recent, all, got %q", c.Presence.Policy))
	}

	if c.Calls.LongPollMax <= 0 {
		c.Calls.LongPollMax = 25 * time.Second
	}
	if c.Calls.LongPollMax >= 30*time.Second {
		// Must stay below the HTTP server write timeout.
		errs = append(errs, errors.New("CALLS_LONGPOLL_MAX must be below 30s"))
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration, got %q", key, v)
	}
	return d, nil
}

func optionalBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func appendOptionalInt(errs []error, key string) (int, []error) {
	n, err := optionalInt(key)
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func appendDuration(errs []error, key string) (time.Duration, []error) {
	d, err := optionalDuration(key)
	if err != nil {
		errs = append(errs, err)
	}
	return d, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
