package config

import (
	"strings"
	"time"

	"shuttle/internal/utils"

	"github.com/spf13/viper"
)

type Env struct {
	AppAddr string
	GinMode string

	MySQLDSN string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string

	AdminPassword     string
	AdminPasswordHash string
	JWTSecret         string

	FarePerPassenger int64
	MaxPassengers    int
	LocalQuotaBytes  int64
	RemoteTimeout    time.Duration
	UploadDir        string

	MailerSendAPIKey     string
	MailerSendFromEmail  string
	MailerSendFromName   string
	MailerSendTemplateID string
	AdminEmail           string

	CORSAllowedOrigins []string

	LogLevel  string
	LogFormat string
}

// LoadEnv membaca konfigurasi dari environment (dan .env/config.yaml kalau ada).
func LoadEnv() Env {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// file config opsional, env tetap menang
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	return Env{
		AppAddr: strings.TrimSpace(v.GetString("APP_ADDR")),
		GinMode: strings.TrimSpace(v.GetString("GIN_MODE")),

		MySQLDSN: strings.TrimSpace(v.GetString("MYSQL_DSN")),

		MongoURI:      strings.TrimSpace(v.GetString("MONGO_URI")),
		MongoDatabase: strings.TrimSpace(v.GetString("MONGO_DATABASE")),

		RedisAddr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
		RedisPassword: v.GetString("REDIS_PASSWORD"),

		AdminPassword:     v.GetString("ADMIN_PASSWORD"),
		AdminPasswordHash: strings.TrimSpace(v.GetString("ADMIN_PASSWORD_HASH")),
		JWTSecret:         v.GetString("JWT_SECRET"),

		FarePerPassenger: v.GetInt64("FARE_PER_PASSENGER"),
		MaxPassengers:    v.GetInt("MAX_PASSENGERS"),
		LocalQuotaBytes:  v.GetInt64("LOCAL_QUOTA_BYTES"),
		RemoteTimeout:    v.GetDuration("REMOTE_TIMEOUT"),
		UploadDir:        strings.TrimSpace(v.GetString("UPLOAD_DIR")),

		MailerSendAPIKey:     strings.TrimSpace(v.GetString("MAILERSEND_API_KEY")),
		MailerSendFromEmail:  strings.TrimSpace(v.GetString("MAILERSEND_FROM_EMAIL")),
		MailerSendFromName:   strings.TrimSpace(v.GetString("MAILERSEND_FROM_NAME")),
		MailerSendTemplateID: strings.TrimSpace(v.GetString("MAILERSEND_TEMPLATE_ID")),
		AdminEmail:           strings.TrimSpace(v.GetString("ADMIN_EMAIL")),

		CORSAllowedOrigins: utils.SplitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		LogLevel:  strings.TrimSpace(v.GetString("LOG_LEVEL")),
		LogFormat: strings.TrimSpace(v.GetString("LOG_FORMAT")),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("MONGO_DATABASE", "shuttle")
	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("FARE_PER_PASSENGER", 35)
	v.SetDefault("MAX_PASSENGERS", 10)
	v.SetDefault("LOCAL_QUOTA_BYTES", 5*1024*1024)
	v.SetDefault("REMOTE_TIMEOUT", "10s")
	v.SetDefault("UPLOAD_DIR", "uploads/payment-proofs")
	v.SetDefault("MAILERSEND_FROM_NAME", "Shuttle Booking")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}
