package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all the configuration for the application.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	App          AppConfig          `mapstructure:"app"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Verification VerificationConfig `mapstructure:"verification"`
	Reaper       ReaperConfig       `mapstructure:"reaper"`
	Google       GoogleConfig       `mapstructure:"google"`
	Apple        AppleConfig        `mapstructure:"apple"`
	SMTP         SMTPConfig         `mapstructure:"smtp"`
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"loglevel"`
}

// AppConfig holds settings about the frontend consuming this API.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	FrontendURL string `mapstructure:"frontendurl"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"maxconns"`
}

// RedisConfig holds the Redis configuration.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig controls token signing, token lifetimes and auth cookies.
type AuthConfig struct {
	AccessSecret  string        `mapstructure:"accesssecret"`
	RefreshSecret string        `mapstructure:"refreshsecret"`
	AccessTTL     time.Duration `mapstructure:"accessttl"`
	RefreshTTL    time.Duration `mapstructure:"refreshttl"`
	CookieDomain  string        `mapstructure:"cookiedomain"`
	// RevealUnknownEmail makes forgot-password answer 404 for unknown emails.
	RevealUnknownEmail bool `mapstructure:"revealunknownemail"`
}

// VerificationConfig controls the one-time code ledger.
type VerificationConfig struct {
	// Policy is "extend" (mark used, keep for the confirmed window) or "consume"
	// (codes stay unused until the dependent action deletes them).
	Policy          string        `mapstructure:"policy"`
	CodeLength      int           `mapstructure:"codelength"`
	TTL             time.Duration `mapstructure:"ttl"`
	ConfirmedWindow time.Duration `mapstructure:"confirmedwindow"`
}

// ReaperConfig controls the background deletion of expired rows.
type ReaperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"clientid"`
	ClientSecret string `mapstructure:"clientsecret"`
	RedirectURL  string `mapstructure:"redirecturl"`
}

type AppleConfig struct {
	ClientID    string `mapstructure:"clientid"`
	TeamID      string `mapstructure:"teamid"`
	KeyID       string `mapstructure:"keyid"`
	PrivateKey  string `mapstructure:"privatekey"`
	RedirectURL string `mapstructure:"redirecturl"`
}

type SMTPConfig struct {
	From     string `mapstructure:"from"`
	Password string `mapstructure:"password"`
	Username string `mapstructure:"username"`
	Port     int    `mapstructure:"port"`
	Host     string `mapstructure:"host"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

var envBindings = map[string]string{
	"server.port":                    "SERVER_PORT",
	"server.env":                     "SERVER_ENV",
	"server.loglevel":                "LOG_LEVEL",
	"app.name":                       "APP_NAME",
	"app.frontendurl":                "FRONTEND_URL",
	"database.url":                   "DATABASE_URL",
	"database.maxconns":              "DATABASE_MAX_CONNS",
	"redis.url":                      "REDIS_URL",
	"auth.accesssecret":              "JWT_ACCESS_SECRET",
	"auth.refreshsecret":             "JWT_REFRESH_SECRET",
	"auth.accessttl":                 "JWT_ACCESS_TTL",
	"auth.refreshttl":                "JWT_REFRESH_TTL",
	"auth.cookiedomain":              "AUTH_COOKIE_DOMAIN",
	"auth.revealunknownemail":        "AUTH_REVEAL_UNKNOWN_EMAIL",
	"verification.policy":            "VERIFICATION_POLICY",
	"verification.codelength":        "VERIFICATION_CODE_LENGTH",
	"verification.ttl":               "VERIFICATION_TTL",
	"verification.confirmedwindow":   "VERIFICATION_CONFIRMED_WINDOW",
	"reaper.interval":                "REAPER_INTERVAL",
	"google.clientid":                "GOOGLE_CLIENT_ID",
	"google.clientsecret":            "GOOGLE_CLIENT_SECRET",
	"google.redirecturl":             "GOOGLE_CALLBACK_URL",
	"apple.clientid":                 "APPLE_CLIENT_ID",
	"apple.teamid":                   "APPLE_TEAM_ID",
	"apple.keyid":                    "APPLE_KEY_ID",
	"apple.privatekey":               "APPLE_PRIVATE_KEY",
	"apple.redirecturl":              "APPLE_CALLBACK_URL",
	"smtp.from":                      "SMTP_FROM",
	"smtp.password":                  "SMTP_PASSWORD",
	"smtp.username":                  "SMTP_USERNAME",
	"smtp.port":                      "SMTP_PORT",
	"smtp.host":                      "SMTP_HOST",
}

// Load creates a new Config object from the .env file and environment variables.
func Load() *Config {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Load .env into process environment for BindEnv to work with file-based envs
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ godotenv could not load .env: %v", err)
	} else {
		log.Printf("ℹ️ .env loaded into process environment via godotenv")
	}

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("⚠️ error reading config file, relying on environment variables: %v", err)
		} else {
			log.Printf("⚠️ .env file not found, relying on environment variables")
		}
	} else {
		log.Printf("ℹ️ Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("❌ Unable to decode config into struct: %v", err)
	}

	log.Printf("🔎 Config after Unmarshal: Server.Port=%q Server.Env=%q Verification.Policy=%q AccessSecretEmpty=%t RefreshSecretEmpty=%t",
		cfg.Server.Port,
		cfg.Server.Env,
		cfg.Verification.Policy,
		cfg.Auth.AccessSecret == "",
		cfg.Auth.RefreshSecret == "",
	)

	log.Println("✅ Configuration loaded successfully")
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("app.name", "RefMe")
	v.SetDefault("app.frontendurl", "http://localhost:3000")
	v.SetDefault("auth.accessttl", 15*time.Minute)
	v.SetDefault("auth.refreshttl", 7*24*time.Hour)
	v.SetDefault("auth.revealunknownemail", false)
	v.SetDefault("verification.policy", "extend")
	v.SetDefault("verification.codelength", 4)
	v.SetDefault("verification.ttl", 5*time.Minute)
	v.SetDefault("verification.confirmedwindow", 30*time.Minute)
	v.SetDefault("reaper.interval", time.Minute)
	v.SetDefault("smtp.port", 587)
}
