package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           string `envconfig:"PORT" default:"8082"`
	DBHost         string `envconfig:"DB_HOST" default:"localhost"`
	DBPort         string `envconfig:"DB_PORT" default:"5432"`
	DBUser         string `envconfig:"DB_USER" default:"postgres"`
	DBPassword     string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName         string `envconfig:"DB_NAME" default:"transactiondb"`
	KafkaBroker    string `envconfig:"KAFKA_BROKER" default:"localhost:9092"`
	KafkaTopic     string `envconfig:"KAFKA_TOPIC" default:"transaction_events"`
	RedisHost      string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort      string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD" default:""`
	JaegerEndpoint string `envconfig:"JAEGER_ENDPOINT" default:"http://localhost:14268/api/traces"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"change-me-in-production"`
	ReportHour     int    `envconfig:"REPORT_HOUR" default:"1"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
