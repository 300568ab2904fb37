package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppName  string `envconfig:"APP_NAME" default:"Travel Booking"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	TimeZone string `envconfig:"TIME_ZONE" default:"Africa/Addis_Ababa"`

	// Database
	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// JWT
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Payment gateway
	ChapaBaseURL   string        `envconfig:"CHAPA_BASE_URL" default:"https://api.chapa.co/v1"`
	ChapaSecretKey string        `envconfig:"CHAPA_SECRET_KEY" required:"true"`
	ChapaTimeout   time.Duration `envconfig:"CHAPA_TIMEOUT" default:"10s"`
	Currency       string        `envconfig:"PAYMENT_CURRENCY" default:"ETB"`
	TxRefPrefix    string        `envconfig:"TX_REF_PREFIX" default:"TRAVEL"`
	PublicBaseURL  string        `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
	ReturnURL      string        `envconfig:"PAYMENT_RETURN_URL"`
	WebhookSecret  string        `envconfig:"CHAPA_WEBHOOK_SECRET"`

	// Reconciliation of payments stuck in pending
	ReconcileSchedule string        `envconfig:"RECONCILE_SCHEDULE" default:"*/5 * * * *"`
	ReconcileAfter    time.Duration `envconfig:"RECONCILE_AFTER" default:"15m"`
	ReconcileBatch    int           `envconfig:"RECONCILE_BATCH" default:"50"`

	// Notifications
	RabbitURL        string        `envconfig:"RABBIT_URL"`
	NotifyExchange   string        `envconfig:"NOTIFY_EXCHANGE" default:"booking.exchange"`
	NotifyQueue      string        `envconfig:"NOTIFY_QUEUE" default:"booking.notifications"`
	NotifyWorkers    int           `envconfig:"NOTIFY_WORKERS" default:"4"`
	NotifyMaxRetries int           `envconfig:"NOTIFY_MAX_RETRIES" default:"3"`
	NotifyBackoff    time.Duration `envconfig:"NOTIFY_BACKOFF" default:"60s"`
	OutboxSchedule   string        `envconfig:"OUTBOX_SCHEDULE" default:"@every 10s"`
	OutboxBatch      int           `envconfig:"OUTBOX_BATCH" default:"100"`

	// Brevo
	BrevoAPIKey     string `envconfig:"BREVO_API_KEY"`
	EmailSender     string `envconfig:"EMAIL_SENDER" default:"no-reply@travel.example"`
	EmailSenderName string `envconfig:"EMAIL_SENDER_NAME" default:"Travel Booking"`
}

// Load reads .env (if present) into the process environment and then
// decodes it into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	var c Config
	err := envconfig.Process("", &c)
	return c, err
}
