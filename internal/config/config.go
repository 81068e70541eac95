package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // Timeout durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	ProtectedUserID  uint          // Account the deletion orchestrator must never remove
	StandardFee      int64         // Standard delivery fee, minor units
	ExpressFee       int64         // Express delivery fee, minor units
	RequestTimeout   time.Duration // Outer deadline per HTTP request
	StatementTimeout time.Duration // Per-statement deadline, shorter than RequestTimeout
}

// DSN assembles the MySQL connection string.
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    os.Getenv("APP_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBName:     os.Getenv("DB_NAME"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisPass:  os.Getenv("REDIS_PASS"),
		RedisDB:    redisDB,
		IsProd:     os.Getenv("IS_PROD") == "true",

		ProtectedUserID:  uintEnv("PROTECTED_USER_ID", 0),
		StandardFee:      int64Env("DELIVERY_FEE_STANDARD", 2000),
		ExpressFee:       int64Env("DELIVERY_FEE_EXPRESS", 3500),
		RequestTimeout:   durationEnv("REQUEST_TIMEOUT", 15*time.Second),
		StatementTimeout: durationEnv("STATEMENT_TIMEOUT", 5*time.Second),
	}
}

func uintEnv(key string, def uint) uint {
	if v, err := strconv.ParseUint(os.Getenv(key), 10, 32); err == nil {
		return uint(v)
	}
	return def
}

func int64Env(key string, def int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
