package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time parses duration values
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for
// timeouts and lifetimes.
type Config struct {
	Env          string        // application environment (e.g. "dev", "prod")
	Port         string        // HTTP port to listen on
	DBUser       string        // database username
	DBPass       string        // database password (optional)
	DBHost       string        // database host address
	DBPort       string        // database port number
	DBName       string        // database name
	CookieSecret string        // secret used to sign the realm cookie value
	BcryptCost   int           // bcrypt cost for password hashing
	SessionTTL   time.Duration // server-side session lifetime
	MailHost     string        // SMTP server host
	MailPort     int           // SMTP server port
	MailUser     string        // SMTP username (empty disables auth)
	MailPass     string        // SMTP password
	MailFrom     string        // From address on outbound mail
	MailDomain   string        // domain appended to account names for reset mail
	MailTimeout  time.Duration // upper bound on one outbound mail call
	ResetBaseURL string        // base URL embedded in reset links
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"), // empty allowed
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		CookieSecret: must("COOKIE_SECRET"),
		BcryptCost:   mustInt("BCRYPT_COST"),
		SessionTTL:   envDur("SESSION_TTL", 24*time.Hour),
		MailHost:     must("MAIL_HOST"),
		MailPort:     envInt("MAIL_PORT", 587),
		MailUser:     os.Getenv("MAIL_USER"),
		MailPass:     os.Getenv("MAIL_PASS"),
		MailFrom:     must("MAIL_FROM"),
		MailDomain:   must("MAIL_DOMAIN"),
		MailTimeout:  envDur("MAIL_TIMEOUT", 10*time.Second),
		ResetBaseURL: must("RESET_BASE_URL"),
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
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
