package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the capacity service.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Booking  BookingConfig
	Mail     MailConfig
}

type AppConfig struct {
	Environment string
	Port        string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// BookingConfig carries the booking-window policy. Closed weekdays replace
// the weekend literal the calling UIs used to hardcode.
type BookingConfig struct {
	ClosedWeekdays map[time.Weekday]bool
	HorizonDays    int
}

type MailConfig struct {
	SendGridAPIKey string
	FromAddress    string
	FromName       string
}

// Load reads configuration from the environment, with a .env file as a
// convenience for local runs.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// fine in production; env comes from the deployment
		fmt.Println("No .env file found")
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	horizon, err := strconv.Atoi(getEnv("BOOKING_HORIZON_DAYS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_HORIZON_DAYS: %w", err)
	}

	closed, err := ParseClosedWeekdays(getEnv("BOOKING_CLOSED_WEEKDAYS", "saturday,sunday"))
	if err != nil {
		return nil, err
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "yardbook"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Booking: BookingConfig{
			ClosedWeekdays: closed,
			HorizonDays:    horizon,
		},
		Mail: MailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromAddress:    getEnv("MAIL_FROM_ADDRESS", "bookings@yardbook.example"),
			FromName:       getEnv("MAIL_FROM_NAME", "Yard Bookings"),
		},
	}, nil
}

// DSN returns the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseClosedWeekdays parses a comma-separated weekday list ("saturday,sunday").
// An empty string means no closed days.
func ParseClosedWeekdays(s string) (map[time.Weekday]bool, error) {
	closed := make(map[time.Weekday]bool)
	if strings.TrimSpace(s) == "" {
		return closed, nil
	}
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("invalid BOOKING_CLOSED_WEEKDAYS entry %q", part)
		}
		closed[wd] = true
	}
	return closed, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
