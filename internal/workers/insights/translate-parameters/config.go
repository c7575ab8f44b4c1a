package translateparameters

const DefaultTake = 10

type Config struct {
	DefaultTake int
}

func LoadConfig() *Config {
	return &Config{
		DefaultTake: DefaultTake,
	}
}
