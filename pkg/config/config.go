package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Danieloutliers/loanbook/pkg/models"
	"github.com/shopspring/decimal"
)

// Config holds application configuration
type Config struct {
	Port          string
	LogLevel      string
	SweepSchedule string // cron spec for the nightly status sweep

	DefaultInterestRate     decimal.Decimal
	DefaultPaymentFrequency models.PaymentFrequency
	DefaultInstallments     int
	Currency                string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	rate, err := decimal.NewFromString(getEnv("DEFAULT_INTEREST_RATE", "5"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_INTEREST_RATE: %w", err)
	}

	installments, err := strconv.Atoi(getEnv("DEFAULT_INSTALLMENTS", "12"))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_INSTALLMENTS: %w", err)
	}

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		LogLevel:                getEnv("LOG_LEVEL", "INFO"),
		SweepSchedule:           getEnv("STATUS_SWEEP_SCHEDULE", "@daily"),
		DefaultInterestRate:     rate,
		DefaultPaymentFrequency: models.PaymentFrequency(getEnv("DEFAULT_PAYMENT_FREQUENCY", "monthly")),
		DefaultInstallments:     installments,
		Currency:                getEnv("CURRENCY", "BRL"),
	}

	return cfg, nil
}

// Settings returns the new-loan defaults to seed the store with.
func (c *Config) Settings() models.Settings {
	return models.Settings{
		DefaultInterestRate:     c.DefaultInterestRate,
		DefaultPaymentFrequency: c.DefaultPaymentFrequency,
		DefaultInstallments:     c.DefaultInstallments,
		Currency:                c.Currency,
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
