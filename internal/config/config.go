// Package config loads the trading engine's runtime configuration from
// environment variables (with an optional .env overlay), following the
// teacher's getEnv/getEnvAsInt helper idiom.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every knob the core recognizes, per spec.md §6's
// enumerated configuration keys plus the ambient data-dir/port/log-level
// settings every deployment needs regardless of domain.
type Config struct {
	DataDir  string
	Port     int
	LogLevel string

	// Safety rail.
	MaxDrawdown float64 // negative, e.g. -0.05 for a 5% drawdown kill threshold
	MaxMsgsPerS int

	// Optimizer objective coefficients.
	RiskAversion  float64 // λ
	TCPenalty     float64 // c1
	ImpactCoef    float64 // c2
	LeverageLimit float64 // L
	MaxPosition   float64 // P
	PCANFactors   int
	LambdaNet     float64
	LambdaGross   float64
	LambdaPos     float64
}

// Load reads configuration from environment variables, loading a .env
// file first if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:  getEnv("DATA_DIR", "./data"),
		Port:     getEnvAsInt("GO_PORT", 8001),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MaxDrawdown: getEnvAsFloat("MAX_DRAWDOWN", -0.10),
		MaxMsgsPerS: getEnvAsInt("MAX_MSGS_PER_SEC", 100),

		RiskAversion:  getEnvAsFloat("RISK_AVERSION", 1.0),
		TCPenalty:     getEnvAsFloat("TC_PENALTY", 0.001),
		ImpactCoef:    getEnvAsFloat("IMPACT_COEF", 0.005),
		LeverageLimit: getEnvAsFloat("LEVERAGE_LIMIT", 1.0),
		MaxPosition:   getEnvAsFloat("MAX_POSITION", 0.2),
		PCANFactors:   getEnvAsInt("PCA_N_FACTORS", 5),
		LambdaNet:     getEnvAsFloat("LAMBDA_NET", 10.0),
		LambdaGross:   getEnvAsFloat("LAMBDA_GROSS", 5.0),
		LambdaPos:     getEnvAsFloat("LAMBDA_POS", 1.0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the system assumes hold:
// a drawdown threshold must actually describe a drawdown (negative), and
// the rate limiter must allow at least one message per second.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.MaxDrawdown >= 0 {
		return fmt.Errorf("MAX_DRAWDOWN must be negative, got %v", c.MaxDrawdown)
	}
	if c.MaxMsgsPerS < 1 {
		return fmt.Errorf("MAX_MSGS_PER_SEC must be >= 1, got %v", c.MaxMsgsPerS)
	}
	if c.PCANFactors < 1 {
		return fmt.Errorf("PCA_N_FACTORS must be >= 1, got %v", c.PCANFactors)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
