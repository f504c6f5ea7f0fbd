package session

import "time"

// Config holds the session-layer tunables named in the specification's
// configuration section that are not table-scoped.
type Config struct {
	// ReconnectSwapGrace is how long a dropped connection's seat is held
	// as a silent, undetectable swap: a reconnect inside this window
	// never touches table state.
	ReconnectSwapGrace time.Duration

	// DisconnectGrace is how long after ReconnectSwapGrace expires the
	// seat is auto-sat-out if no reconnect arrives, so the sit-out comes
	// ReconnectSwapGrace+DisconnectGrace after the drop.
	DisconnectGrace time.Duration

	// ChallengeTTL and SessionTTL feed internal/auth.NewChallengeStore.
	ChallengeTTL time.Duration
	SessionTTL   time.Duration
}

// DefaultConfig returns the documented default tunables.
func DefaultConfig() Config {
	return Config{
		ReconnectSwapGrace: 10 * time.Second,
		DisconnectGrace:    60 * time.Second,
		ChallengeTTL:       60 * time.Second,
		SessionTTL:         24 * time.Hour,
	}
}
