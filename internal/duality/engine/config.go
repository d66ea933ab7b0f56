package engine

import (
	"github.com/louisbranch/dualitydice/internal/duality/attribute"
	"github.com/louisbranch/dualitydice/internal/duality/help"
	"github.com/louisbranch/dualitydice/internal/platform/config"
)

// Config holds the tunable rules of a check.
type Config struct {
	BaseDiceSides      int `env:"DUALITY_BASE_DICE_SIDES" envDefault:"12"`
	AdvantageDiceSides int `env:"DUALITY_ADVANTAGE_DICE_SIDES" envDefault:"6"`
	HopeWinBonus       int `env:"DUALITY_HOPE_WIN_BONUS" envDefault:"1"`
	DefaultHopeMax     int `env:"DUALITY_DEFAULT_HOPE_MAX" envDefault:"6"`
	MaxFear            int `env:"DUALITY_MAX_FEAR" envDefault:"12"`

	Help help.Config
}

// DefaultConfig returns the standard rules.
func DefaultConfig() Config {
	return Config{
		BaseDiceSides:      12,
		AdvantageDiceSides: 6,
		HopeWinBonus:       1,
		DefaultHopeMax:     attribute.DefaultHopeMax,
		MaxFear:            attribute.DefaultFearMax,
		Help:               help.DefaultConfig(),
	}
}

// LoadConfig reads the rules from DUALITY_* variables.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.BaseDiceSides < 2 {
		c.BaseDiceSides = def.BaseDiceSides
	}
	if c.AdvantageDiceSides < 2 {
		c.AdvantageDiceSides = def.AdvantageDiceSides
	}
	if c.HopeWinBonus < 0 {
		c.HopeWinBonus = 0
	}
	if c.DefaultHopeMax <= 0 {
		c.DefaultHopeMax = def.DefaultHopeMax
	}
	if c.MaxFear <= 0 {
		c.MaxFear = def.MaxFear
	}
	return c
}
