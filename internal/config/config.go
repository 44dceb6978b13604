package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time for token lifetimes
)

// Config holds all runtime configuration values. It is built once at process
// start and passed by value into the constructors that need it; nothing in
// the app reads the environment after Load returns.
type Config struct {
	Env        string        // application environment (e.g. "dev", "prod")
	Port       string        // HTTP port to listen on
	DBUser     string        // database username
	DBPass     string        // database password (optional)
	DBHost     string        // database host address
	DBPort     string        // database port number
	DBName     string        // database name
	JWTSecret  string        // secret used to sign JWTs, at least 32 chars
	JWTTTL     time.Duration // access token time-to-live
	BcryptCost int           // bcrypt cost for password hashing
	AMQPURL    string        // RabbitMQ URL for the outbound email queue (optional)
	EmailFrom  string        // From address stamped on outbound email
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:        must("APP_ENV"),
		Port:       must("APP_PORT"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"), // empty allowed
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		JWTSecret:  must("JWT_SECRET"),
		JWTTTL:     time.Duration(mustInt("JWT_TTL_MIN")) * time.Minute,
		BcryptCost: mustInt("BCRYPT_COST"),
		AMQPURL:    os.Getenv("AMQP_URL"), // empty disables the email queue
		EmailFrom:  envDefault("EMAIL_FROM", "Tours Admin <admin@tours.io>"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
