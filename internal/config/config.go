package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Database DatabaseConfig
	JWT      JWTConfig
	Cookie   CookieConfig
	SMTP     SMTPConfig
	Google   GoogleConfig
	Frontend FrontendConfig
	Upload   UploadConfig
	Token    TokenConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// SMTPConfig holds outgoing mail configuration
type SMTPConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	From           string
	TimeoutSeconds int
}

// GoogleConfig holds Google sign-in configuration
type GoogleConfig struct {
	ClientID string
}

// FrontendConfig holds the frontend URLs embedded in outgoing mails
type FrontendConfig struct {
	VerifyEmailURL   string
	SetPasswordURL   string
	ResetPasswordURL string
}

// UploadConfig holds attachment storage configuration
type UploadConfig struct {
	Dir string
}

// TokenConfig holds one-time token lifetimes in minutes
type TokenConfig struct {
	VerifyEmailMins   int
	SetPasswordMins   int
	PasswordResetMins int
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Database: loadDatabaseConfig(appMode),
		JWT:      loadJWTConfig(appMode),
		Cookie:   loadCookieConfig(appMode),
		SMTP:     loadSMTPConfig(),
		Google: GoogleConfig{
			ClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		},
		Frontend: loadFrontendConfig(),
		Upload: UploadConfig{
			Dir: getEnv("UPLOAD_DIR", "./uploads"),
		},
		Token: loadTokenConfig(),
	}

	if appMode == "prod" && config.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in prod mode")
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "taskmanager"),
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadSMTPConfig loads outgoing mail config
func loadSMTPConfig() SMTPConfig {
	timeout, _ := strconv.Atoi(getEnv("SMTP_TIMEOUT_SECONDS", "10"))

	return SMTPConfig{
		Host:           getEnv("SMTP_HOST", "localhost"),
		Port:           getEnv("SMTP_PORT", "587"),
		User:           getEnv("SMTP_USER", ""),
		Password:       getEnv("SMTP_PASS", ""),
		From:           getEnv("SMTP_FROM", "no-reply@taskmanager.local"),
		TimeoutSeconds: timeout,
	}
}

// loadFrontendConfig loads the frontend URLs used in mails
func loadFrontendConfig() FrontendConfig {
	base := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/")

	return FrontendConfig{
		VerifyEmailURL:   getEnv("FRONTEND_VERIFY_EMAIL_URL", base+"/verify-email"),
		SetPasswordURL:   getEnv("FRONTEND_SET_PASSWORD_URL", base+"/set-password"),
		ResetPasswordURL: getEnv("FRONTEND_RESET_PASSWORD_URL", base+"/reset-password"),
	}
}

// loadTokenConfig loads one-time token lifetimes
func loadTokenConfig() TokenConfig {
	verifyMins, _ := strconv.Atoi(getEnv("VERIFY_EMAIL_TOKEN_MINUTES", "60"))
	setMins, _ := strconv.Atoi(getEnv("SET_PASSWORD_TOKEN_MINUTES", "60"))
	resetMins, _ := strconv.Atoi(getEnv("PASSWORD_RESET_TOKEN_MINUTES", "15"))

	return TokenConfig{
		VerifyEmailMins:   verifyMins,
		SetPasswordMins:   setMins,
		PasswordResetMins: resetMins,
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// GetAllowedOrigins returns the comma-separated CORS origins for prod mode
func (c *Config) GetAllowedOrigins() string {
	return getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
}
