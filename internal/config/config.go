package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	DBDSN         string
	Environment   string

	// Через DialogTimeout бездействия диалог бронирования считается брошенным
	DialogTimeout time.Duration
	// Сколько учитель может думать над запросом переноса
	RescheduleTTL time.Duration

	// Доступные для записи часы: FirstHour..LastHour включительно
	FirstHour int
	LastHour  int
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		Environment:   os.Getenv("ENV"),
		DialogTimeout: durationEnv("DIALOG_TIMEOUT", 15*time.Minute),
		RescheduleTTL: durationEnv("RESCHEDULE_TTL", 24*time.Hour),
		FirstHour:     intEnv("FIRST_HOUR", 6),
		LastHour:      intEnv("LAST_HOUR", 23),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is required but not set")
	}
	if cfg.FirstHour < 0 || cfg.LastHour > 23 || cfg.FirstHour > cfg.LastHour {
		return nil, fmt.Errorf("invalid bookable hours range: %d..%d", cfg.FirstHour, cfg.LastHour)
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %s", key, raw, def)
		return def
	}
	return d
}

func intEnv(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, raw, def)
		return def
	}
	return n
}
