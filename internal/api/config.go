package api

// Config holds HTTP adapter settings.
type Config struct {
	CORSOrigins   []string `env:"HTTP_CORS_ORIGINS" envSeparator:","`
	CodeRateLimit int      `env:"TWOFACTOR_RATE_LIMIT" envDefault:"10"` // code submissions per minute per client IP
	QRSize        int      `env:"TWOFACTOR_QR_SIZE" envDefault:"256"`
}
