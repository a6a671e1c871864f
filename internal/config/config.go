package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// Collections は Mongo コレクション名。
type Collections struct {
	Deals         string
	Notifications string
	Chats         string
	UserChats     string
	SavedDeals    string
	Ratings       string
}

// Config holds runtime configuration shared across the application.
type Config struct {
	AppEnv         string
	Addr           string
	StoreDriver    string
	MongoURI       string
	MongoDatabase  string
	Collections    Collections
	Timeout        time.Duration
	RedisURL       string
	RatingCacheTTL time.Duration
	LogLevel       string
	JWTConfigs     []JWTConfig
	JWTAudience    string
	AllowedOrigins []string
}

// Development reports whether the process runs outside production.
func (c Config) Development() bool {
	return c.AppEnv != "production"
}

// Load reads environment variables, and CONFIG_FILE when set, into a Config.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	var jwtConfigs []JWTConfig
	if secret := strings.TrimSpace(v.GetString("AUTH_MERCHANT_JWT_SECRET")); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{
			Issuer: v.GetString("AUTH_MERCHANT_JWT_ISSUER"),
			Secret: []byte(secret),
		})
	}
	if secret := strings.TrimSpace(v.GetString("AUTH_INFLUENCER_JWT_SECRET")); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{
			Issuer: v.GetString("AUTH_INFLUENCER_JWT_ISSUER"),
			Secret: []byte(secret),
		})
	}
	if len(jwtConfigs) == 0 {
		return Config{}, errors.New("JWT secrets not configured. Set AUTH_MERCHANT_JWT_SECRET or AUTH_INFLUENCER_JWT_SECRET")
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER")))
	if driver != StoreDriverMongo && driver != StoreDriverMemory {
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", driver)
	}

	cfg := Config{
		AppEnv:        v.GetString("APP_ENV"),
		Addr:          v.GetString("HTTP_ADDR"),
		StoreDriver:   driver,
		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DB"),
		Collections: Collections{
			Deals:         v.GetString("DEALS_COLLECTION"),
			Notifications: v.GetString("NOTIFICATIONS_COLLECTION"),
			Chats:         v.GetString("CHATS_COLLECTION"),
			UserChats:     v.GetString("USERCHATS_COLLECTION"),
			SavedDeals:    v.GetString("SAVED_DEALS_COLLECTION"),
			Ratings:       v.GetString("RATINGS_COLLECTION"),
		},
		Timeout:        v.GetDuration("MONGO_CONNECT_TIMEOUT"),
		RedisURL:       strings.TrimSpace(v.GetString("REDIS_URL")),
		RatingCacheTTL: v.GetDuration("RATING_CACHE_TTL"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		JWTConfigs:     jwtConfigs,
		JWTAudience:    strings.TrimSpace(v.GetString("AUTH_JWT_AUDIENCE")),
		AllowedOrigins: parseList(v.GetString("API_ALLOWED_ORIGINS"), []string{"*"}),
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("STORE_DRIVER", StoreDriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://mongo:27017")
	v.SetDefault("MONGO_DB", "collab")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", "10s")
	v.SetDefault("DEALS_COLLECTION", "deals")
	v.SetDefault("NOTIFICATIONS_COLLECTION", "notifications")
	v.SetDefault("CHATS_COLLECTION", "chats")
	v.SetDefault("USERCHATS_COLLECTION", "userchats")
	v.SetDefault("SAVED_DEALS_COLLECTION", "saveDeal")
	v.SetDefault("RATINGS_COLLECTION", "ratings")
	v.SetDefault("RATING_CACHE_TTL", "10m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_MERCHANT_JWT_ISSUER", "collab-merchant-auth")
	v.SetDefault("AUTH_INFLUENCER_JWT_ISSUER", "collab-influencer-auth")
	v.SetDefault("API_ALLOWED_ORIGINS", "*")
}

func parseList(raw string, fallback []string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
