package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Drum struct {
		ID string
	}
	MES struct {
		BaseURL string
	}
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker string
		Topic  string
	}
	Telegram struct {
		BotToken  string
		ChatID    int64
		RateLimit int
	}
	S3 struct {
		Region    string
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
	}
	Recorder struct {
		TerminalURL string
	}
	Scheduler struct {
		TickSeconds       int
		AlertLeadSeconds  int
		InspectionSeconds int
		MaxTimeRecord     int
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.Drum.ID = os.Getenv("DRUM_ID")
	cfg.MES.BaseURL = os.Getenv("MES_BASE_URL")
	cfg.DB.DSN = os.Getenv("DB_DSN")

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}
	if r, err := strconv.Atoi(os.Getenv("TELEGRAM_RATE_LIMIT")); err == nil {
		cfg.Telegram.RateLimit = r
	}

	cfg.S3.Region = os.Getenv("S3_REGION")
	cfg.S3.Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3.AccessKey = os.Getenv("S3_ACCESS_KEY")
	cfg.S3.SecretKey = os.Getenv("S3_SECRET_KEY")
	cfg.S3.Bucket = os.Getenv("S3_BUCKET")

	cfg.Recorder.TerminalURL = os.Getenv("RECORDER_TERMINAL_URL")

	if v, err := strconv.Atoi(os.Getenv("SCHEDULER_TICK_SECONDS")); err == nil {
		cfg.Scheduler.TickSeconds = v
	}
	if v, err := strconv.Atoi(os.Getenv("ALERT_LEAD_SECONDS")); err == nil {
		cfg.Scheduler.AlertLeadSeconds = v
	}
	if v, err := strconv.Atoi(os.Getenv("INSPECTION_TIME")); err == nil {
		cfg.Scheduler.InspectionSeconds = v
	}
	if v, err := strconv.Atoi(os.Getenv("MAX_TIME_RECORD")); err == nil {
		cfg.Scheduler.MaxTimeRecord = v
	}

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	// Validate required settings
	missing := []string{}
	if cfg.Drum.ID == "" {
		missing = append(missing, "DRUM_ID")
	}
	if cfg.MES.BaseURL == "" {
		missing = append(missing, "MES_BASE_URL")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.Scheduler.TickSeconds == 0 {
		cfg.Scheduler.TickSeconds = 10
	}
	if cfg.Scheduler.AlertLeadSeconds == 0 {
		cfg.Scheduler.AlertLeadSeconds = 10
	}
	if cfg.Scheduler.InspectionSeconds == 0 {
		cfg.Scheduler.InspectionSeconds = 30
	}
	if cfg.Scheduler.MaxTimeRecord == 0 {
		cfg.Scheduler.MaxTimeRecord = 300
	}
	if cfg.Telegram.RateLimit == 0 {
		cfg.Telegram.RateLimit = 1
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return cfg, nil
}
