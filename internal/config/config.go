// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the desk's runtime settings, read from the environment.
type Config struct {
	LoanPeriodDays         int
	DailyOverdueFee        decimal.Decimal
	SeedSampleData         bool
	StaffPasscode          string
	RegistrationsPerMinute int
	RegistrationBurst      int
	LogLevel               slog.Level
	LogFormat              string
	OTLPEndpoint           string
	ServiceName            string
}

// Load reads the configuration from environment variables, falling back to
// defaults for anything unset.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(lookup func(string) string) (Config, error) {
	getEnv := func(key, fallback string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return fallback
	}

	var (
		cfg  Config
		errs []error
	)

	cfg.LoanPeriodDays = positiveInt(getEnv("LIBRADESK_LOAN_PERIOD_DAYS", "14"), "LIBRADESK_LOAN_PERIOD_DAYS", &errs)
	cfg.RegistrationsPerMinute = positiveInt(getEnv("LIBRADESK_REGISTRATIONS_PER_MINUTE", "30"), "LIBRADESK_REGISTRATIONS_PER_MINUTE", &errs)
	cfg.RegistrationBurst = positiveInt(getEnv("LIBRADESK_REGISTRATION_BURST", "10"), "LIBRADESK_REGISTRATION_BURST", &errs)

	fee, err := decimal.NewFromString(getEnv("LIBRADESK_DAILY_OVERDUE_FEE", "0.50"))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("LIBRADESK_DAILY_OVERDUE_FEE: %w", err))
	case fee.IsNegative():
		errs = append(errs, fmt.Errorf("LIBRADESK_DAILY_OVERDUE_FEE: must not be negative, got %s", fee))
	}
	cfg.DailyOverdueFee = fee

	seed, err := strconv.ParseBool(getEnv("LIBRADESK_SEED_SAMPLE_DATA", "true"))
	if err != nil {
		errs = append(errs, fmt.Errorf("LIBRADESK_SEED_SAMPLE_DATA: %w", err))
	}
	cfg.SeedSampleData = seed

	cfg.StaffPasscode = getEnv("LIBRADESK_STAFF_PASSCODE", "librarian")

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT: want text or json, got %q", cfg.LogFormat))
	}

	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	cfg.ServiceName = getEnv("OTEL_SERVICE_NAME", "libradesk")

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return cfg, nil
}

func positiveInt(raw, key string, errs *[]error) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return 0
	}
	if n <= 0 {
		*errs = append(*errs, fmt.Errorf("%s: must be positive, got %d", key, n))
	}
	return n
}
