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
	Zoho     ZohoConfig
	VitalPBX VitalPBXConfig
	Popup    PopupConfig
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

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type ZohoConfig struct {
	// APIBase is the Zoho API root, e.g. https://www.zohoapis.com.
	// The PhoneBridge popup API lives under {APIBase}/phonebridge/v3.
	APIBase string

	// ContactCacheTTL bounds how long a phone->contact lookup is cached.
	ContactCacheTTL time.Duration
}

type VitalPBXConfig struct {
	// APIBase is the PBX admin API root; call control lives under {APIBase}/v2.
	APIBase string
	APIKey  string
	Tenant  string

	RequestTimeout time.Duration
}

// PopupConfig carries the screen-pop knobs the webhook pipeline depends on.
type PopupConfig struct {
	Enabled bool

	// Timeout bounds each outbound popup API call.
	Timeout time.Duration

	// MaxRetries bounds re-dispatch of transiently failed popups.
	MaxRetries int

	// RetryBatchSize bounds how many records one retry sweep picks up.
	RetryBatchSize int

	// DefaultCountry feeds the phone normalizer, e.g. "kenya".
	DefaultCountry string
}

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

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = optDuration("JWT_ACCESS_TTL")

	c.Zoho.APIBase = strings.TrimSpace(os.Getenv("ZOHO_API_BASE"))
	c.Zoho.ContactCacheTTL = optDuration("ZOHO_CONTACT_CACHE_TTL")

	c.VitalPBX.APIBase = strings.TrimSpace(os.Getenv("VITALPBX_API_BASE"))
	c.VitalPBX.APIKey = os.Getenv("VITALPBX_API_KEY")
	c.VitalPBX.Tenant = strings.TrimSpace(os.Getenv("VITALPBX_TENANT"))
	c.VitalPBX.RequestTimeout = optDuration("VITALPBX_REQUEST_TIMEOUT")

	c.Popup.Enabled = optBool("POPUP_ENABLED", true)
	c.Popup.Timeout = optDuration("POPUP_TIMEOUT")
	c.Popup.MaxRetries = optInt("POPUP_MAX_RETRIES", 0)
	c.Popup.RetryBatchSize = optInt("POPUP_RETRY_BATCH_SIZE", 0)
	c.Popup.DefaultCountry = strings.TrimSpace(os.Getenv("POPUP_DEFAULT_COUNTRY"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

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

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}

	if c.Zoho.APIBase == "" {
		c.Zoho.APIBase = "https://www.zohoapis.com"
	}
	if !strings.HasPrefix(c.Zoho.APIBase, "http://") && !strings.HasPrefix(c.Zoho.APIBase, "https://") {
		errs = append(errs, fmt.Errorf("ZOHO_API_BASE must be an http(s) URL, got %q", c.Zoho.APIBase))
	}
	if c.Zoho.ContactCacheTTL <= 0 {
		c.Zoho.ContactCacheTTL = 5 * time.Minute
	}

	if c.VitalPBX.APIBase == "" {
		errs = append(errs, errors.New("VITALPBX_API_BASE is required"))
	} else if !strings.HasPrefix(c.VitalPBX.APIBase, "http://") && !strings.HasPrefix(c.VitalPBX.APIBase, "https://") {
		errs = append(errs, fmt.Errorf("VITALPBX_API_BASE must be an http(s) URL, got %q", c.VitalPBX.APIBase))
	}
	if c.VitalPBX.APIKey == "" {
		errs = append(errs, errors.New("VITALPBX_API_KEY is required"))
	}
	if c.VitalPBX.RequestTimeout <= 0 {
		c.VitalPBX.RequestTimeout = 30 * time.Second
	}

	if c.Popup.Timeout <= 0 {
		c.Popup.Timeout = 10 * time.Second
	}
	if c.Popup.MaxRetries <= 0 {
		c.Popup.MaxRetries = 3
	}
	if c.Popup.RetryBatchSize <= 0 {
		c.Popup.RetryBatchSize = 10
	}
	if c.Popup.DefaultCountry == "" {
		c.Popup.DefaultCountry = "kenya"
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

func optInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func optBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
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
