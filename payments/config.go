package payments

// Config is a configuration for the payment processor application
type Config struct {
	HTTPAddr string
	// DSN is the Postgres connection string; required for the pg backend.
	DSN string
	// Timezone is an IANA timezone name used when parsing expiry dates and
	// history bounds (e.g. "Australia/Sydney"). Empty means UTC.
	Timezone string
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr: "localhost:9090",
	}
}
