package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the full service configuration
type Config struct {
	Port           int
	LogLevel       string
	Env            string
	DefaultCarrier string
	DB             DBConfig
	RabbitMQ       RabbitMQConfig
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RabbitMQConfig holds the broker configuration
type RabbitMQConfig struct {
	Host     string
	Port     int
	VHost    string
	User     string
	Password string
	Exchange string
	Queue    string
	Enabled  bool
}

// getEnv retrieves the value of an environment variable or returns a default
// value if not set.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

// Load reads the configuration from environment variables and returns a
// Config struct.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("PORT", "8080"))

	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))

	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	mqPort, err := strconv.Atoi(getEnv("RABBITMQ_PORT", "5672"))

	if err != nil {
		return nil, fmt.Errorf("invalid RABBITMQ_PORT: %w", err)
	}

	mqEnabled, err := strconv.ParseBool(getEnv("RABBITMQ_ENABLED", "true"))

	if err != nil {
		return nil, fmt.Errorf("invalid RABBITMQ_ENABLED: %w", err)
	}

	return &Config{
		Port:           port,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Env:            getEnv("APP_ENV", "development"),
		DefaultCarrier: getEnv("DEFAULT_CARRIER", "DHL"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "shipping"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RabbitMQ: RabbitMQConfig{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     mqPort,
			VHost:    getEnv("RABBITMQ_VHOST", "/"),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "shipping_events"),
			Queue:    getEnv("RABBITMQ_QUEUE", "shipping_queue"),
			Enabled:  mqEnabled,
		},
	}, nil
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}

// URL returns the AMQP connection URL. The vhost becomes the URL path, so a
// bare name like "orders" gets its leading slash added.
func (c *RabbitMQConfig) URL() string {
	vhost := c.VHost
	if !strings.HasPrefix(vhost, "/") {
		vhost = "/" + vhost
	}

	return fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, vhost)
}
