// Package config loads the server's HCL configuration file into the
// typed settings the rest of the process needs: listen address, CORS
// origin, admin shared secret, and every table/session/auth tunable.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/pokertable/internal/session"
	"github.com/lox/pokertable/internal/table"
)

// Config is the top-level decoded shape of the HCL config file.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableSettings  `hcl:"table,block"`
	Auth   AuthSettings   `hcl:"auth,block"`
}

// ServerSettings controls the listener and the admin/CORS surface.
type ServerSettings struct {
	Port       int    `hcl:"port,optional"`
	CORSOrigin string `hcl:"cors_origin,optional"`
	AdminToken string `hcl:"admin_token,optional"`
}

// TableSettings mirrors table.Config and session.Config's tunables, in
// milliseconds/seconds as the wire format, converted to time.Duration
// when loaded.
type TableSettings struct {
	NumSeats             int `hcl:"num_seats,optional"`
	StartingStack        int `hcl:"starting_stack,optional"`
	SmallBlind           int `hcl:"small_blind,optional"`
	BigBlind             int `hcl:"big_blind,optional"`
	BaseActionMs         int `hcl:"base_action_ms,optional"`
	DefaultTimeBankMs    int `hcl:"default_time_bank_ms,optional"`
	TimeBankCapMs        int `hcl:"time_bank_cap_ms,optional"`
	TimeBankGrowthMs     int `hcl:"time_bank_growth_ms,optional"`
	TimeBankGrowthHands  int `hcl:"time_bank_growth_hands,optional"`
	SitOutKickMs         int `hcl:"sit_out_kick_ms,optional"`
	DisconnectGraceMs    int `hcl:"disconnect_grace_ms,optional"`
	ReconnectSwapGraceMs int `hcl:"reconnect_swap_grace_ms,optional"`
	MinBuyin             int `hcl:"min_buyin,optional"`
	MaxBuyin             int `hcl:"max_buyin,optional"`
	RatholeWindowMs      int `hcl:"rathole_window_ms,optional"`
}

// AuthSettings controls the challenge/session HTTP handshake lifetimes.
type AuthSettings struct {
	ChallengeTTLSeconds int `hcl:"challenge_ttl_s,optional"`
	SessionTTLSeconds   int `hcl:"session_ttl_s,optional"`
}

// Default returns the documented default configuration, matching
// table.DefaultConfig/session.DefaultConfig/internal/auth's defaults so
// an absent config file behaves identically to an explicit one naming
// every default value.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Port:       8080,
			CORSOrigin: "*",
		},
		Table: TableSettings{
			NumSeats:             6,
			StartingStack:        2000,
			SmallBlind:           50,
			BigBlind:             100,
			BaseActionMs:         15000,
			DefaultTimeBankMs:    15000,
			TimeBankCapMs:        60000,
			TimeBankGrowthMs:     5000,
			TimeBankGrowthHands:  10,
			SitOutKickMs:         300000,
			DisconnectGraceMs:    60000,
			ReconnectSwapGraceMs: 10000,
			MinBuyin:             2000,
			MaxBuyin:             10000,
			RatholeWindowMs:      7200000,
		},
		Auth: AuthSettings{
			ChallengeTTLSeconds: 60,
			SessionTTLSeconds:   86400,
		},
	}
}

// Load reads and decodes an HCL file at path. A missing file is not an
// error: it yields Default() unchanged, matching the donor's
// LoadServerConfig "absent file means defaults" behavior.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse config %s: %s", path, diags.Error())
	}

	cfg := Default()
	diags = gohcl.DecodeBody(file.Body, nil, cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("decode config %s: %s", path, diags.Error())
	}
	return cfg, nil
}

// Validate checks the decoded configuration for internally inconsistent
// values before the process commits to them.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Table.SmallBlind <= 0 {
		return fmt.Errorf("small_blind must be positive")
	}
	if c.Table.BigBlind <= c.Table.SmallBlind {
		return fmt.Errorf("big_blind must be greater than small_blind")
	}
	if c.Table.NumSeats < 2 || c.Table.NumSeats > 10 {
		return fmt.Errorf("num_seats must be between 2 and 10")
	}
	if c.Table.MinBuyin >= c.Table.MaxBuyin {
		return fmt.Errorf("min_buyin must be less than max_buyin")
	}
	return nil
}

// ToTableConfig builds a table.Config from the decoded settings.
func (c *Config) ToTableConfig() table.Config {
	return table.Config{
		NumSeats:             c.Table.NumSeats,
		StartingStack:        c.Table.StartingStack,
		SmallBlind:           c.Table.SmallBlind,
		BigBlind:             c.Table.BigBlind,
		BaseActionDuration:   ms(c.Table.BaseActionMs),
		DefaultTimeBank:      ms(c.Table.DefaultTimeBankMs),
		TimeBankCap:          ms(c.Table.TimeBankCapMs),
		TimeBankGrowth:       ms(c.Table.TimeBankGrowthMs),
		TimeBankGrowthHands:  c.Table.TimeBankGrowthHands,
		SitOutKick:           ms(c.Table.SitOutKickMs),
		HandStartDebounce:    table.DefaultConfig().HandStartDebounce,
		RunoutRevealDelay:    table.DefaultConfig().RunoutRevealDelay,
		RunoutFlopDelay:      table.DefaultConfig().RunoutFlopDelay,
		RunoutTurnDelay:      table.DefaultConfig().RunoutTurnDelay,
		RunoutRiverDelay:     table.DefaultConfig().RunoutRiverDelay,
		MinBuyin:             c.Table.MinBuyin,
		MaxBuyin:             c.Table.MaxBuyin,
		RatholeWindow:        ms(c.Table.RatholeWindowMs),
	}
}

// ToSessionConfig builds a session.Config from the decoded settings.
func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		ReconnectSwapGrace: ms(c.Table.ReconnectSwapGraceMs),
		DisconnectGrace:    ms(c.Table.DisconnectGraceMs),
		ChallengeTTL:       sec(c.Auth.ChallengeTTLSeconds),
		SessionTTL:         sec(c.Auth.SessionTTLSeconds),
	}
}

func ms(n int) time.Duration  { return time.Duration(n) * time.Millisecond }
func sec(n int) time.Duration { return time.Duration(n) * time.Second }
