package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName       string `env:"APP_NAME" envDefault:"rental-marketplace"`
	ServerPort    string `env:"SERVER_PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBUser      string `env:"DB_USER" envDefault:"postgres"`
	DBPassword  string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName      string `env:"DB_NAME" envDefault:"rental_db"`
	DBSSLMode   string `env:"DB_SSLMODE" envDefault:"disable"`

	RabbitURL string `env:"RABBITMQ_URL"`
	RedisURL  string `env:"REDIS_URL"`

	MongoURI string `env:"MONGO_URI"`
	MongoDB  string `env:"MONGO_DB" envDefault:"rental_files"`

	ElasticsearchURL      string `env:"ELASTICSEARCH_URL"`
	ElasticsearchUsername string `env:"ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string `env:"ELASTICSEARCH_PASSWORD"`
	ElasticsearchIndex    string `env:"ELASTICSEARCH_INDEX" envDefault:"properties"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	PaymentCurrency     string `env:"PAYMENT_CURRENCY" envDefault:"usd"`

	Geocoder         string `env:"GEOCODER" envDefault:"nominatim"`
	GoogleMapsAPIKey string `env:"GOOGLE_MAPS_API_KEY"`
	NominatimURL     string `env:"NOMINATIM_URL" envDefault:"https://nominatim.openstreetmap.org"`

	SendgridAPIKey  string `env:"SENDGRID_API_KEY"`
	MailFrom        string `env:"MAIL_FROM" envDefault:"no-reply@rental.local"`
	MailFromName    string `env:"MAIL_FROM_NAME" envDefault:"Rental Marketplace"`
	SendgridSandbox bool   `env:"SENDGRID_SANDBOX" envDefault:"false"`

	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	UploadMaxBytes    int64         `env:"UPLOAD_MAX_BYTES" envDefault:"10485760"`
	BookingPendingTTL time.Duration `env:"BOOKING_PENDING_TTL" envDefault:"48h"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Geocoder = strings.ToLower(strings.TrimSpace(cfg.Geocoder))
	return cfg, nil
}

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
