package buildresponse

type Config struct {
	// ValidatePayload runs the shaped payload through the response schema.
	ValidatePayload bool
}

func LoadConfig() *Config {
	return &Config{ValidatePayload: true}
}
