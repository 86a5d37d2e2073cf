package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/lexvia/case-gateway/pkg/logger"
	"github.com/pkg/errors"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every environment-driven value of the service. Only this
// struct may be used to read configuration; no direct env lookups elsewhere.
// Pipeline-facing knobs are copied into explicit option structs at wiring
// time so the triage logic stays testable without process-level env state.
type Config struct {
	AppEnv   string `env:"APP_ENV" default:"dev"`
	AppName  string `env:"APP_NAME" default:"case_gateway"`
	AppDebug bool   `env:"APP_DEBUG" default:"1"`

	HttpListenAddr string `env:"HTTP_LISTEN_ADDR" validation:"mustExists"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	LogLevel []string `env:"LOG_LEVEL"`

	// Webhook intake
	WebhookSecret      string `env:"WEBHOOK_SECRET"`
	DefaultCountryCode string `env:"DEFAULT_COUNTRY_CODE" default:"54"`
	ActiveWindowHours  int    `env:"ACTIVE_TICKET_WINDOW_HOURS" default:"48"`
	EscalationNotice   string `env:"ESCALATION_NOTICE"`

	// BuilderBot-style relay
	RelayBaseURL        string        `env:"RELAY_BASE_URL" default:"https://app.builderbot.cloud"`
	RelayBotID          string        `env:"RELAY_BOT_ID"`
	RelayAPIKey         string        `env:"RELAY_API_KEY"`
	RelaySendTimeout    time.Duration `env:"RELAY_SEND_TIMEOUT" default:"30s"`
	RelayMuteTimeout    time.Duration `env:"RELAY_MUTE_TIMEOUT" default:"10s"`
	RelayMuteMaxRetries int           `env:"RELAY_MUTE_MAX_RETRIES" default:"3"`
	RelayMuteRetryDelay time.Duration `env:"RELAY_MUTE_RETRY_DELAY" default:"2s"`

	// AI summarizer (optional collaborator)
	OpenAIAPIKey  string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL" default:"https://api.openai.com"`
	OpenAIModel   string        `env:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAITimeout time.Duration `env:"OPENAI_TIMEOUT" default:"30s"`

	// Media archive
	MediaDir     string        `env:"MEDIA_DIR" default:"./media"`
	MediaBaseURL string        `env:"MEDIA_BASE_URL" default:"/media"`
	MediaTimeout time.Duration `env:"MEDIA_TIMEOUT" default:"20s"`

	// Mute-sync queue
	QueueName              string        `env:"QUEUE_NAME" default:"mute-sync"`
	QueueConsumerGroup     string        `env:"QUEUE_CONSUMER_GROUP" default:"mute-sync-group"`
	QueueConsumerName      string        `env:"QUEUE_CONSUMER_NAME"`
	QueueMaxRetries        int           `env:"QUEUE_MAX_RETRIES"`
	QueueVisibilityTimeout time.Duration `env:"QUEUE_VISIBILITY_TIMEOUT"`
	QueuePollInterval      time.Duration `env:"QUEUE_POLL_INTERVAL"`
	QueueBatchSize         int64         `env:"QUEUE_BATCH_SIZE"`
	QueueMaxLen            int64         `env:"QUEUE_MAX_LEN"`
	QueueEnableDLQ         bool          `env:"QUEUE_ENABLE_DLQ"`
}

// ActiveWindow is the rolling window within which an unresolved ticket keeps
// absorbing new inbound messages.
func (c *Config) ActiveWindow() time.Duration {
	hours := c.ActiveWindowHours
	if hours <= 0 {
		hours = 48
	}
	return time.Duration(hours) * time.Hour
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
