package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config 从环境变量读取
type Config struct {
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName      string `envconfig:"DB_NAME" default:"lendshare"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPwd  string `envconfig:"REDIS_PASSWORD"`

	Port          string        `envconfig:"PORT" default:"3001"`
	WebOrigin     string        `envconfig:"WEB_ORIGIN" default:"http://localhost:5173"`
	RPID          string        `envconfig:"RP_ID" default:"localhost"`
	RPOrigins     []string      `envconfig:"RP_ORIGINS" default:"http://localhost:5173"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"10m"`
	AppSessionTTL time.Duration `envconfig:"APP_SESSION_TTL" default:"24h"`
	AdminEmails   []string      `envconfig:"ADMIN_EMAILS"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"12h"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	NotifyExchange string `envconfig:"NOTIFY_EXCHANGE" default:"lendshare.notifications"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	LoanDefaultDuration time.Duration `envconfig:"LOAN_DEFAULT_DURATION" default:"48h"`
	DueSoonWindow       time.Duration `envconfig:"DUE_SOON_WINDOW" default:"24h"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// LoadEnv reads .env into the process environment. A missing file is fine.
func LoadEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "err", err)
	}
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}
	admins := make([]string, 0, len(c.AdminEmails))
	for _, a := range c.AdminEmails {
		if t := strings.TrimSpace(a); t != "" {
			admins = append(admins, strings.ToLower(t))
		}
	}
	c.AdminEmails = admins
	return c, nil
}

// DSN prefers DATABASE_URL and falls back to the DB_* parts.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range c.AdminEmails {
		if a == email {
			return true
		}
	}
	return false
}

// SetupLogger installs the process-wide slog handler.
func SetupLogger(format string) *slog.Logger {
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		h = slog.NewTextHandler(os.Stderr, nil)
	}
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}
