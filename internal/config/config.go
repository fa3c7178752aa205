package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del servicio. Se arma en tres pasos:
// defaults → YAML (opcional) → variables de entorno.
type Config struct {
	App struct {
		// dev | staging | prod
		Env  string `yaml:"env" env:"APP_ENV"`
		Name string `yaml:"name" env:"APP_NAME"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`

	Server struct {
		Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
		ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
		// Orígenes permitidos para la API de tenants. "*" = cualquiera.
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"SERVER_CORS_ALLOWED_ORIGINS" envSeparator:","`
		// Confiar en X-Forwarded-For / X-Real-IP (detrás de un proxy).
		TrustProxy bool `yaml:"trust_proxy" env:"SERVER_TRUST_PROXY"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver      string `yaml:"driver" env:"STORAGE_DRIVER"`
		DSN         string `yaml:"dsn" env:"STORAGE_DSN"`
		AutoMigrate bool   `yaml:"auto_migrate" env:"STORAGE_AUTO_MIGRATE"`
		Postgres    struct {
			MaxConns        int32         `yaml:"max_conns" env:"STORAGE_PG_MAX_CONNS"`
			MinConns        int32         `yaml:"min_conns" env:"STORAGE_PG_MIN_CONNS"`
			MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"STORAGE_PG_MAX_CONN_LIFETIME"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	// TenantPool controla los pools hacia las bases externas de cada tenant.
	TenantPool struct {
		MaxOpenConns    int           `yaml:"max_open_conns" env:"TENANT_POOL_MAX_OPEN_CONNS"`
		MaxIdleConns    int           `yaml:"max_idle_conns" env:"TENANT_POOL_MAX_IDLE_CONNS"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"TENANT_POOL_CONN_MAX_LIFETIME"`
		ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"TENANT_POOL_CONN_MAX_IDLE_TIME"`
		QueryTimeout    time.Duration `yaml:"query_timeout" env:"TENANT_POOL_QUERY_TIMEOUT"`
		OpenTimeout     time.Duration `yaml:"open_timeout" env:"TENANT_POOL_OPEN_TIMEOUT"`
	} `yaml:"tenant_pool"`

	Cache struct {
		// memory | redis
		Kind       string        `yaml:"kind" env:"CACHE_KIND"`
		MappingTTL time.Duration `yaml:"mapping_ttl" env:"CACHE_MAPPING_TTL"`
		Redis      struct {
			Addr     string `yaml:"addr" env:"REDIS_ADDR"`
			Password string `yaml:"password" env:"REDIS_PASSWORD"`
			DB       int    `yaml:"db" env:"REDIS_DB"`
			Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Rate struct {
		Enabled bool `yaml:"enabled" env:"RATE_ENABLED"`
		// memory | redis
		Backend string `yaml:"backend" env:"RATE_BACKEND"`
		// Emisión de tokens (send-verification / send-magic-link), por tenant.
		Issue struct {
			Limit  int           `yaml:"limit" env:"RATE_ISSUE_LIMIT"`
			Window time.Duration `yaml:"window" env:"RATE_ISSUE_WINDOW"`
		} `yaml:"issue"`
		// Endpoints públicos del vault, por IP.
		Vault struct {
			Limit  int           `yaml:"limit" env:"RATE_VAULT_LIMIT"`
			Window time.Duration `yaml:"window" env:"RATE_VAULT_WINDOW"`
		} `yaml:"vault"`
		Whitelist []string `yaml:"whitelist" env:"RATE_WHITELIST" envSeparator:","`
	} `yaml:"rate"`

	SMTP struct {
		Host               string `yaml:"host" env:"SMTP_HOST"`
		Port               int    `yaml:"port" env:"SMTP_PORT"`
		Username           string `yaml:"username" env:"SMTP_USERNAME"`
		Password           string `yaml:"password" env:"SMTP_PASSWORD"`
		From               string `yaml:"from" env:"SMTP_FROM"`
		TLS                string `yaml:"tls" env:"SMTP_TLS"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify" env:"SMTP_INSECURE_SKIP_VERIFY"`
	} `yaml:"smtp"`

	Email struct {
		// Base para armar links cuando el caller no manda verifyUrl/loginUrl.
		BaseURL    string `yaml:"base_url" env:"EMAIL_BASE_URL"`
		VerifyPath string `yaml:"verify_path" env:"EMAIL_VERIFY_PATH"`
		LoginPath  string `yaml:"login_path" env:"EMAIL_LOGIN_PATH"`
		// Sin SMTP configurado los mails se loguean en vez de enviarse.
		LogOnly bool `yaml:"log_only" env:"EMAIL_LOG_ONLY"`
	} `yaml:"email"`

	Vault struct {
		// Único origen habilitado para /vault/check-ip y /vault/record-attempt.
		AllowedOrigin string `yaml:"allowed_origin" env:"VAULT_ALLOWED_ORIGIN"`
		// Intentos fallidos antes de bloquear una IP. 0 desactiva el auto-lock.
		MaxAttempts int    `yaml:"max_attempts" env:"VAULT_MAX_ATTEMPTS"`
		LockReason  string `yaml:"lock_reason" env:"VAULT_LOCK_REASON"`
	} `yaml:"vault"`

	Admin struct {
		SessionSecret string        `yaml:"session_secret" env:"ADMIN_SESSION_SECRET"`
		SessionTTL    time.Duration `yaml:"session_ttl" env:"ADMIN_SESSION_TTL"`
		CookieName    string        `yaml:"cookie_name" env:"ADMIN_COOKIE_NAME"`
		CookieSecure  bool          `yaml:"cookie_secure" env:"ADMIN_COOKIE_SECURE"`
		Users         []AdminUser   `yaml:"users"`
		// Alta rápida de un admin por env (además de los del YAML).
		Email        string `yaml:"-" env:"ADMIN_EMAIL"`
		PasswordHash string `yaml:"-" env:"ADMIN_PASSWORD_HASH"`
	} `yaml:"admin"`

	Security struct {
		// base64(32 bytes). Cifra credenciales y URLs de los tenants.
		SecretBoxMasterKey string `yaml:"secretbox_master_key" env:"SECRETBOX_MASTER_KEY"`
	} `yaml:"security"`
}

// AdminUser es un operador habilitado para /admin/*. PasswordHash es un PHC argon2id.
type AdminUser struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

// Default retorna la configuración base, usable en dev sin archivo.
func Default() *Config {
	var c Config
	c.App.Env = "dev"
	c.App.Name = "authmanager"
	c.Log.Level = "info"

	c.Server.Addr = ":8080"
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 15 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.CORSAllowedOrigins = []string{"*"}

	c.Storage.Driver = "postgres"
	c.Storage.Postgres.MaxConns = 10
	c.Storage.Postgres.MaxConnLifetime = 30 * time.Minute

	c.TenantPool.MaxOpenConns = 5
	c.TenantPool.MaxIdleConns = 2
	c.TenantPool.ConnMaxLifetime = 30 * time.Minute
	c.TenantPool.ConnMaxIdleTime = 5 * time.Minute
	c.TenantPool.QueryTimeout = 5 * time.Second
	c.TenantPool.OpenTimeout = 10 * time.Second

	c.Cache.Kind = "memory"
	c.Cache.MappingTTL = 2 * time.Minute
	c.Cache.Redis.Prefix = "authmanager:"

	c.Rate.Enabled = true
	c.Rate.Backend = "memory"
	c.Rate.Issue.Limit = 30
	c.Rate.Issue.Window = time.Minute
	c.Rate.Vault.Limit = 60
	c.Rate.Vault.Window = time.Minute

	c.SMTP.Port = 587
	c.SMTP.TLS = "auto"

	c.Email.VerifyPath = "/verify-email"
	c.Email.LoginPath = "/magic-link"

	c.Vault.AllowedOrigin = "http://localhost:3000"
	c.Vault.MaxAttempts = 5
	c.Vault.LockReason = "too many failed attempts"

	c.Admin.SessionTTL = 12 * time.Hour
	c.Admin.CookieName = "admin_session"
	return &c
}

// Load lee el YAML (si path != "") y aplica los overrides de entorno.
func Load(path string) (*Config, error) {
	c := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if c.Admin.Email != "" && c.Admin.PasswordHash != "" {
		c.Admin.Users = append(c.Admin.Users, AdminUser{Email: c.Admin.Email, PasswordHash: c.Admin.PasswordHash})
	}

	// En prod nunca se loguean los mails en lugar de enviarlos.
	if strings.EqualFold(c.App.Env, "prod") {
		c.Email.LogOnly = false
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate revisa combinaciones obligatorias.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported", c.Storage.Driver))
	}

	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required when cache.kind=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported", c.Cache.Kind))
	}

	if c.Rate.Enabled {
		if c.Rate.Backend == "redis" && c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("rate.backend=redis needs cache.redis.addr"))
		}
		if c.Rate.Issue.Limit <= 0 || c.Rate.Issue.Window <= 0 {
			errs = append(errs, errors.New("rate.issue needs a positive limit and window"))
		}
		if c.Rate.Vault.Limit <= 0 || c.Rate.Vault.Window <= 0 {
			errs = append(errs, errors.New("rate.vault needs a positive limit and window"))
		}
	}

	if strings.TrimSpace(c.Security.SecretBoxMasterKey) == "" {
		errs = append(errs, errors.New("security.secretbox_master_key is required"))
	}

	if len(c.Admin.Users) > 0 && len(c.Admin.SessionSecret) < 32 {
		errs = append(errs, errors.New("admin.session_secret must be at least 32 bytes when admin users are configured"))
	}

	if !c.Email.LogOnly && c.SMTP.Host == "" && strings.EqualFold(c.App.Env, "prod") {
		errs = append(errs, errors.New("smtp.host is required in prod"))
	}

	return errors.Join(errs...)
}

// IsProd indica si corremos en producción.
func (c *Config) IsProd() bool { return strings.EqualFold(c.App.Env, "prod") }
