package config

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"tiffinloop/internal/domain"
	"tiffinloop/internal/fulfillment"
)

// Load reads .env if present; real deployments set the environment directly.
func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] no .env file, using environment")
	}
}

func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func EnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func MustInitPostgres() *sql.DB {
	connStr := "host=" + Env("DB_HOST", "localhost") +
		" port=" + Env("DB_PORT", "5432") +
		" user=" + Env("DB_USER", "postgres") +
		" password=" + os.Getenv("DB_PASSWORD") +
		" dbname=" + Env("DB_NAME", "tiffinloop") +
		" sslmode=disable"

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	if err = db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	return db
}

func MustInitRedis() *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: Env("REDIS_HOST", "localhost") + ":" + Env("REDIS_PORT", "6379"),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}

	return client
}

func NewKafkaReader(topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{Env("KAFKA_BROKER", "localhost:9092")},
		Topic:   topic,
		GroupID: groupID,
	})
}

func NewKafkaWriter(topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(Env("KAFKA_BROKER", "localhost:9092")),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

// SlotHours reads the per-slot delivery hours, falling back to the defaults
// when unset or malformed.
func SlotHours() fulfillment.SlotHours {
	hours := fulfillment.DefaultSlotHours()
	for slot, envKey := range map[domain.Slot]string{
		domain.SlotMorning:   "SLOT_HOUR_MORNING",
		domain.SlotAfternoon: "SLOT_HOUR_AFTERNOON",
		domain.SlotEvening:   "SLOT_HOUR_EVENING",
	} {
		if v := os.Getenv(envKey); v != "" {
			if h, err := strconv.Atoi(v); err == nil && h >= 0 && h < 24 {
				hours[slot] = h
			}
		}
	}
	return hours
}
