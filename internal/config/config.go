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
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Airtable  AirtableConfig
	Retell    RetellConfig
	Webhook   WebhookConfig
	Notify    NotifyConfig
	RateLimit RateLimitConfig
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

	// SSLMode is kept explicit; production must not rely on defaults.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional: when Host is empty the rate limiter
// falls back to a per-process fixed window.
type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AirtableConfig addresses the external records store.
// Per-clinic base/table coordinates live in the tenant directory;
// only the credential and the shared leads table are process-level.
type AirtableConfig struct {
	APIURL     string
	APIKey     string
	LeadsBase  string
	LeadsTable string

	// Optional field-name overrides for the leads table.
	LeadFieldName      string
	LeadFieldCompany   string
	LeadFieldEmail     string
	LeadFieldPhone     string
	LeadFieldSource    string
	LeadFieldCreatedAt string
}

type RetellConfig struct {
	APIURL         string
	APIKey         string
	DemoAgentID    string
	DemoFromNumber string
}

// WebhookConfig drives the call-completion normalizer.
type WebhookConfig struct {
	AutomationURL string
	PortalBaseURL string

	// DemoClinicID is the clinic assigned when the payload names the demo
	// agent and no other resolution step succeeded. Leave empty to disable
	// the demo fallback entirely.
	DemoClinicID string
}

type NotifyConfig struct {
	SlackWebhookURL string
	N8NLeadsURL     string
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
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
	c.Redis.Port = optionalInt("REDIS_PORT", 6379)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Airtable.APIURL = urlOrDefault("AIRTABLE_API_URL", "https://api.airtable.com/v0")
	c.Airtable.APIKey = os.Getenv("AIRTABLE_API_KEY")
	c.Airtable.LeadsBase = strings.TrimSpace(os.Getenv("AIRTABLE_LEADS_BASE_ID"))
	c.Airtable.LeadsTable = stringOrDefault("AIRTABLE_LEADS_TABLE", "Leads")
	c.Airtable.LeadFieldName = strings.TrimSpace(os.Getenv("AIRTABLE_LEADS_FIELD_NAME"))
	c.Airtable.LeadFieldCompany = strings.TrimSpace(os.Getenv("AIRTABLE_LEADS_FIELD_COMPANY"))
	c.Airtable.LeadFieldEmail = strings.TrimSpace(os.Getenv("AIRTABLE_LEADS_FIELD_EMAIL"))
	c.Airtable.LeadFieldPhone = strings.TrimSpace(os.Getenv("AIRTABLE_LEADS_FIELD_PHONE"))
	c.Airtable.LeadFieldSource = strings.TrimSpace(os.Getenv("AIRTABLE_LEADS_FIELD_SOURCE"))
	c.Airtable.LeadFieldCreatedAt = strings.TrimSpace(os.Getenv("AIRTABLE_LEADS_FIELD_CREATED_AT"))

	c.Retell.APIURL = urlOrDefault("RETELL_API_URL", "https://api.retellai.com")
	c.Retell.APIKey = os.Getenv("RETELL_API_KEY")
	c.Retell.DemoAgentID = strings.TrimSpace(os.Getenv("RETELL_DEMO_AGENT_ID"))
	c.Retell.DemoFromNumber = strings.TrimSpace(os.Getenv("RETELL_DEMO_FROM_NUMBER"))

	c.Webhook.AutomationURL = strings.TrimSpace(os.Getenv("AUTOMATION_WEBHOOK_URL"))
	c.Webhook.PortalBaseURL = strings.TrimSpace(os.Getenv("PORTAL_BASE_URL"))
	c.Webhook.DemoClinicID = strings.TrimSpace(os.Getenv("DEMO_CLINIC_ID"))

	c.Notify.SlackWebhookURL = strings.TrimSpace(os.Getenv("SLACK_WEBHOOK_URL"))
	c.Notify.N8NLeadsURL = strings.TrimSpace(os.Getenv("N8N_LEADS_WEBHOOK_URL"))

	c.RateLimit.MaxRequests = optionalInt("RATE_LIMIT_MAX", 5)
	c.RateLimit.Window = mustDuration("RATE_LIMIT_WINDOW")

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

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
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
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Airtable.APIKey == "" {
		errs = append(errs, errors.New("AIRTABLE_API_KEY is required"))
	}
	if c.Retell.APIKey == "" {
		errs = append(errs, errors.New("RETELL_API_KEY is required"))
	}

	if c.Webhook.AutomationURL == "" {
		errs = append(errs, errors.New("AUTOMATION_WEBHOOK_URL is required"))
	}
	if c.Webhook.PortalBaseURL == "" {
		errs = append(errs, errors.New("PORTAL_BASE_URL is required"))
	}
	if c.IsProduction() && c.Webhook.DemoClinicID != "" {
		// The demo-clinic fallback is a pre-launch shortcut; refuse to carry
		// it into production silently.
		errs = append(errs, errors.New("DEMO_CLINIC_ID must not be set in production"))
	}

	if c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", c.RateLimit.MaxRequests))
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = time.Minute
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
	if c.Redis.Host == "" {
		return ""
	}
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

func optionalInt(key string, def int) int {
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

func mustDuration(key string) time.Duration {
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

func stringOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func urlOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.TrimRight(v, "/")
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
