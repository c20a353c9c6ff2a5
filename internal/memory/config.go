package memory

import "time"

// Config holds the thread memory settings.
type Config struct {
	// Window is the number of most recent turns kept verbatim.
	Window int
	// LockWait bounds how long Begin waits for another turn on the same
	// thread before carrying on without the lock.
	LockWait time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Window:   10,
		LockWait: 10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Window <= 0 {
		c.Window = def.Window
	}
	if c.LockWait <= 0 {
		c.LockWait = def.LockWait
	}
	return c
}
