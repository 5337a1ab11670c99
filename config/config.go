package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Settings is the whole runtime configuration, read from the environment.
type Settings struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	Env            string        `envconfig:"APP_ENV" default:"development"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	CORSOrigins    []string      `envconfig:"CORS_ORIGINS" default:"*"`
	FrontendURL    string        `envconfig:"FRONTEND_URL" default:"http://localhost:5173"`
	PublicBaseURL  string        `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`

	// Database
	DBDriver    string `envconfig:"DB_DRIVER" default:"mysql"` // mysql | postgres | sqlite
	DBLogLevel  string `envconfig:"DB_LOG_LEVEL" default:"warn"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"rental.db"`

	// Auth
	JWTSecret          string `envconfig:"JWT_SECRET"`
	JWTExpireMin       int    `envconfig:"JWT_EXPIRE_MIN" default:"60"`
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL"`
	OTPProvider        string `envconfig:"OTP_PROVIDER" default:"code"` // code | static

	// Mail
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     string `envconfig:"SMTP_PORT"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFromName string `envconfig:"SMTP_FROM_NAME" default:"Basha Bhara"`

	// Image storage
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"local"` // local | gridfs
	UploadDir     string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MongoURI      string `envconfig:"MONGO_URI"`
	MongoDB       string `envconfig:"MONGO_DB" default:"rental"`

	// Payments
	PaymentGateway  string `envconfig:"PAYMENT_GATEWAY" default:"simulated"` // simulated | omise
	PaymentCurrency string `envconfig:"PAYMENT_CURRENCY" default:"bdt"`
	OmisePublicKey  string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey  string `envconfig:"OMISE_SECRET_KEY"`

	// Broker / tracing
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"rental"`
	OTELEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadDotEnv loads .env when present. It reports whether a file was read.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

func Load() (Settings, error) {
	var s Settings
	err := envconfig.Process("", &s)
	return s, err
}

func (s Settings) JWTTTL() time.Duration {
	return time.Duration(s.JWTExpireMin) * time.Minute
}
