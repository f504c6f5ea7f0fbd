package table

import "time"

// Config holds the tunables named in the specification's configuration
// section. Every table is constructed from one Config; defaults match
// the documented values.
type Config struct {
	NumSeats int

	StartingStack int
	SmallBlind    int
	BigBlind      int

	BaseActionDuration   time.Duration
	DefaultTimeBank      time.Duration
	TimeBankCap          time.Duration
	TimeBankGrowth       time.Duration
	TimeBankGrowthHands  int
	SitOutKick           time.Duration
	HandStartDebounce    time.Duration
	RunoutRevealDelay    time.Duration
	RunoutFlopDelay      time.Duration
	RunoutTurnDelay      time.Duration
	RunoutRiverDelay     time.Duration
	MinBuyin             int
	MaxBuyin             int
	RatholeWindow        time.Duration
}

// DefaultConfig returns the documented default tunables.
func DefaultConfig() Config {
	return Config{
		NumSeats:            6,
		StartingStack:       2000,
		SmallBlind:          50,
		BigBlind:            100,
		BaseActionDuration:  15 * time.Second,
		DefaultTimeBank:     15 * time.Second,
		TimeBankCap:         60 * time.Second,
		TimeBankGrowth:      5 * time.Second,
		TimeBankGrowthHands: 10,
		SitOutKick:          5 * time.Minute,
		HandStartDebounce:   2 * time.Second,
		RunoutRevealDelay:   2 * time.Second,
		RunoutFlopDelay:     2 * time.Second,
		RunoutTurnDelay:     3 * time.Second,
		RunoutRiverDelay:    2 * time.Second,
		MinBuyin:            2000,
		MaxBuyin:            10000,
		RatholeWindow:       2 * time.Hour,
	}
}
