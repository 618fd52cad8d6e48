package game

// Config collects match setup parameters.
type Config struct {
	Seed     int64 // Master seed; every subsystem stream derives from it
	MaxTurns int   // Turn cap before a forced draw; 0 = DefaultMaxTurns
}

// DefaultConfig returns the standard match setup.
func DefaultConfig() Config {
	return Config{
		Seed:     42,
		MaxTurns: DefaultMaxTurns,
	}
}
