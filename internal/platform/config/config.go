// Package config builds the immutable configuration passed into services at
// construction. Nothing reads the environment after startup.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	Addr        string
	PostgresDSN string
	Redis       Redis
	SMS         SMS
	Federation  Federation
	Datapass    Datapass

	// SessionTTL bounds how long a switched active organisation sticks.
	SessionTTL time.Duration

	// CallbackRatePerMinute limits unauthenticated callback endpoints per IP.
	CallbackRatePerMinute int
}

// Redis holds connection settings for the session store.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SMS configures the gateway used for remote consent.
type SMS struct {
	Enabled      bool
	BaseURL      string
	ServiceName  string
	AccountLogin string
	Password     string
	SenderID     string
	Timeout      time.Duration

	// AgreeKeywords are the normalized message bodies accepted as consent.
	AgreeKeywords []string
}

// Federation configures the identity broker used for usager login.
type Federation struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Timeout      time.Duration
}

// Datapass configures the habilitation intake receiver.
type Datapass struct {
	SharedSecret string
}

// Load reads an optional .env file, then the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:        getenv("AC_ADDR", ":8080"),
		PostgresDSN: os.Getenv("AC_POSTGRES_DSN"),
		Redis: Redis{
			URL:          os.Getenv("AC_REDIS_URL"),
			DialTimeout:  getduration("AC_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getduration("AC_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getduration("AC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		SMS: SMS{
			Enabled:       getbool("AC_SMS_ENABLED", false),
			BaseURL:       getenv("AC_SMS_BASE_URL", "https://www.ovh.com/cgi-bin/sms"),
			ServiceName:   os.Getenv("AC_SMS_SERVICE_NAME"),
			AccountLogin:  os.Getenv("AC_SMS_ACCOUNT_LOGIN"),
			Password:      os.Getenv("AC_SMS_PASSWORD"),
			SenderID:      getenv("AC_SMS_SENDER_ID", "AidantsCo"),
			Timeout:       getduration("AC_SMS_TIMEOUT", 10*time.Second),
			AgreeKeywords: getlist("AC_SMS_AGREE_KEYWORDS", []string{"OUI", "YES"}),
		},
		Federation: Federation{
			BaseURL:      os.Getenv("AC_FEDERATION_BASE_URL"),
			ClientID:     os.Getenv("AC_FEDERATION_CLIENT_ID"),
			ClientSecret: os.Getenv("AC_FEDERATION_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("AC_FEDERATION_REDIRECT_URI"),
			Timeout:      getduration("AC_FEDERATION_TIMEOUT", 10*time.Second),
		},
		Datapass: Datapass{
			SharedSecret: os.Getenv("AC_DATAPASS_SECRET"),
		},
		SessionTTL:            getduration("AC_SESSION_TTL", 12*time.Hour),
		CallbackRatePerMinute: getint("AC_CALLBACK_RATE_PER_MINUTE", 60),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1"
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getlist(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
