// Package config loads application configuration from environment variables.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
//
//   - Load reads the optional default `.env` file once, then parses the environment
//     into any struct annotated with `env` tags and returns it by value.
//   - LoadEnv loads one or more explicit `.env` files before parsing.
//   - Snapshot keeps the parsed value behind an atomic pointer and replaces it only
//     when Reload is called, so a configuration is loaded once at startup and
//     passed explicitly to the components that depend on it.
//
// # Usage
//
//	type TOTPConfig struct {
//	    Passphrase string `env:"TOTP_ENCRYPTION_PASSPHRASE,required"`
//	}
//
//	snap, err := config.NewSnapshot[TOTPConfig]()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc := newService(snap.Get())
//
//	// later, e.g. on SIGHUP
//	if err := snap.Reload(); err != nil {
//	    // previous value is still in effect
//	}
//
// # Error Handling
//
// Parsing failures wrap ErrParsingConfig, unreadable env files wrap
// ErrLoadingEnvFile. Compare with errors.Is.
package config
