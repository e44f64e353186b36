package werewolf

import (
	"math/rand/v2"
	"time"
)

// Config tunes one game. The zero value of any field falls back to
// DefaultConfig's, so the waits below take a negative value to turn off.
type Config struct {
	NightTimeout   time.Duration
	DayVoteTimeout time.Duration
	HunterTimeout  time.Duration

	// Bots wait a random duration in [BotDelayMin, BotDelayMax] before
	// each move. Zero in both means the 2s to 8s default; a negative
	// BotDelayMax disables the wait.
	BotDelayMin time.Duration
	BotDelayMax time.Duration

	// NarrationPauseMax caps the pause after a narrated announcement.
	// Negative disables pauses.
	NarrationPauseMax time.Duration

	MinPlayers   int
	MaxPlayers   int
	EventLogSize int
	Gates        RoleGates

	Rand   *rand.Rand
	Debugf func(format string, args ...any)
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		NightTimeout:      3 * time.Minute,
		DayVoteTimeout:    3 * time.Minute,
		HunterTimeout:     45 * time.Second,
		BotDelayMin:       2 * time.Second,
		BotDelayMax:       8 * time.Second,
		NarrationPauseMax: 20 * time.Second,
		MinPlayers:        1,
		MaxPlayers:        30,
		EventLogSize:      10,
		Gates:             DefaultRoleGates(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NightTimeout == 0 {
		c.NightTimeout = d.NightTimeout
	}
	if c.DayVoteTimeout == 0 {
		c.DayVoteTimeout = d.DayVoteTimeout
	}
	if c.HunterTimeout == 0 {
		c.HunterTimeout = d.HunterTimeout
	}
	if c.BotDelayMin == 0 && c.BotDelayMax == 0 {
		c.BotDelayMin, c.BotDelayMax = d.BotDelayMin, d.BotDelayMax
	}
	if c.BotDelayMax < c.BotDelayMin {
		c.BotDelayMax = c.BotDelayMin
	}
	if c.NarrationPauseMax == 0 {
		c.NarrationPauseMax = d.NarrationPauseMax
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = d.MinPlayers
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.EventLogSize <= 0 {
		c.EventLogSize = d.EventLogSize
	}
	if c.Gates == nil {
		c.Gates = d.Gates
	}
	if c.Rand == nil {
		c.Rand = newRand()
	}
	if c.Debugf == nil {
		c.Debugf = func(string, ...any) {}
	}
	return c
}
